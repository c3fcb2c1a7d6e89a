package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moviebox-restful/config"
	"moviebox-restful/database"
	"moviebox-restful/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{Secret: "test-secret", TTL: time.Hour, CookieName: "sessionid"}
}

func newGormStore(t *testing.T) *GormSessionStore {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: database.MemoryDSN(t.Name())}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormSessionStore(db)
}

func newBadgerStore(t *testing.T) *BadgerSessionStore {
	t.Helper()
	db, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerSessionStore(db)
}

func TestTokenRoundTrip(t *testing.T) {
	signer := NewSigner("k1")
	token, err := signer.GenerateToken("abc", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := signer.ParseAndValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.SessionID)

	_, err = NewSigner("k2").ParseAndValidateToken(token)
	assert.EqualError(t, err, "invalid token signature")

	expired, err := signer.GenerateToken("abc", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = signer.ParseAndValidateToken(expired)
	assert.EqualError(t, err, "token is either expired or not active yet")

	_, err = signer.ParseAndValidateToken("garbage")
	assert.EqualError(t, err, "malformed token")
}

func TestSessionStores(t *testing.T) {
	stores := map[string]func(*testing.T) SessionStore{
		"gorm":   func(t *testing.T) SessionStore { return newGormStore(t) },
		"badger": func(t *testing.T) SessionStore { return newBadgerStore(t) },
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			userID := uint(7)
			session := &models.Session{ID: "s1", UserID: &userID, CSRFToken: "c1", ExpiresAt: time.Now().Add(time.Hour)}
			require.NoError(t, store.Save(ctx, session))

			got, err := store.Get(ctx, "s1")
			require.NoError(t, err)
			require.NotNil(t, got.UserID)
			assert.Equal(t, userID, *got.UserID)
			assert.Equal(t, "c1", got.CSRFToken)

			got.CSRFToken = "c2"
			require.NoError(t, store.Save(ctx, got))
			got, err = store.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "c2", got.CSRFToken)

			require.NoError(t, store.Delete(ctx, "s1"))
			require.NoError(t, store.Delete(ctx, "s1"))
			_, err = store.Get(ctx, "s1")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestGormStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t)

	require.NoError(t, store.Save(ctx, &models.Session{ID: "old", CSRFToken: "c", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, &models.Session{ID: "new", CSRFToken: "c", ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, &models.Session{ID: "old2", CSRFToken: "c", ExpiresAt: time.Now().Add(-time.Minute)}))
	n, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newBadgerStore(t), testSessionConfig(), zap.NewNop())

	rec := httptest.NewRecorder()
	anon, err := m.Ensure(ctx, rec, nil)
	require.NoError(t, err)
	assert.False(t, anon.Authenticated())
	cookie := cookieFrom(t, rec, "sessionid")
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := m.Load(req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, anon.ID, loaded.ID)

	same, err := m.Ensure(ctx, httptest.NewRecorder(), loaded)
	require.NoError(t, err)
	assert.Equal(t, anon.ID, same.ID)

	rec = httptest.NewRecorder()
	authed, err := m.Login(ctx, rec, loaded, 42)
	require.NoError(t, err)
	assert.True(t, authed.Authenticated())
	assert.NotEqual(t, anon.ID, authed.ID)
	assert.NotEqual(t, anon.CSRFToken, authed.CSRFToken)

	// The pre-login cookie no longer resolves.
	loaded, err = m.Load(req)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	rec = httptest.NewRecorder()
	after, err := m.Logout(ctx, rec, authed)
	require.NoError(t, err)
	assert.False(t, after.Authenticated())
	assert.Equal(t, authed.CSRFToken, after.CSRFToken)

	token, err := m.Token(authed)
	require.NoError(t, err)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadIgnoresForeignCookie(t *testing.T) {
	m := NewManager(newBadgerStore(t), testSessionConfig(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "not-a-jwt"})
	session, err := m.Load(req)
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestCheckCSRF(t *testing.T) {
	session := &models.Session{CSRFToken: "right"}
	assert.NoError(t, CheckCSRF(session, "right"))
	assert.ErrorIs(t, CheckCSRF(session, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, CheckCSRF(session, "wrong"), ErrCSRFTokenInvalid)
	assert.ErrorIs(t, CheckCSRF(nil, "right"), ErrCSRFTokenInvalid)
}

func TestFiltersOnContainer(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newBadgerStore(t), testSessionConfig(), zap.NewNop())

	ws := new(restful.WebService)
	ws.Filter(SessionFilter(m)).Filter(CSRFFilter("X-CSRFToken"))
	handler := func(req *restful.Request, resp *restful.Response) {
		_ = resp.WriteAsJson(map[string]uint{"user_id": ActorFrom(req).UserID})
	}
	ws.Route(ws.GET("/who").To(handler))
	ws.Route(ws.POST("/who").To(handler))
	container := restful.NewContainer()
	container.Add(ws)

	rec := httptest.NewRecorder()
	session, err := m.Login(ctx, rec, nil, 5)
	require.NoError(t, err)
	cookie := cookieFrom(t, rec, "sessionid")

	get := httptest.NewRequest(http.MethodGet, "/who", nil)
	get.AddCookie(cookie)
	rec = httptest.NewRecorder()
	container.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":5}`, rec.Body.String())

	post := httptest.NewRequest(http.MethodPost, "/who", nil)
	post.AddCookie(cookie)
	rec = httptest.NewRecorder()
	container.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"CSRF token missing"}`, rec.Body.String())

	post.Header.Set("X-CSRFToken", "nope")
	rec = httptest.NewRecorder()
	container.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"CSRF token invalid"}`, rec.Body.String())

	post.Header.Set("X-CSRFToken", session.CSRFToken)
	rec = httptest.NewRecorder()
	container.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusOK, rec.Code)
}
