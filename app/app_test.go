package app

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"moviebox-restful/auth"
	"moviebox-restful/config"
	"moviebox-restful/database"
	"moviebox-restful/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	srv *httptest.Server
	db  *gorm.DB
	app *App
}

func testConfig() config.Config {
	return config.Config{
		Session: config.SessionConfig{
			Secret:     "test-secret",
			TTL:        time.Hour,
			CookieName: "sessionid",
		},
		CSRF:       config.CSRFConfig{HeaderName: "X-CSRFToken"},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Pagination: config.PaginationConfig{PageSize: 2},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DSN: database.MemoryDSN(t.Name())}, zap.NewNop())
	require.NoError(t, err)

	a, err := New(testConfig(), db, auth.NewGormSessionStore(db), zap.NewNop(), WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testServer{srv: srv, db: db, app: a}
}

// client is a browser-like caller: it keeps cookies and echoes the CSRF token.
type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func (s *testServer) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: s.srv.URL, http: &http.Client{Jar: jar}}
}

type result struct {
	status int
	body   []byte
}

func (r result) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (r result) object(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	r.decode(t, &m)
	return m
}

func (c *client) do(method, path string, body interface{}) result {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.csrf != "" {
		req.Header.Set("X-CSRFToken", c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return result{status: resp.StatusCode, body: raw}
}

func (c *client) refreshCSRF() {
	c.t.Helper()
	res := c.do(http.MethodGet, "/api/auth/csrf-token", nil)
	require.Equal(c.t, http.StatusOK, res.status)
	var out struct {
		CSRFToken string `json:"csrfToken"`
	}
	res.decode(c.t, &out)
	require.NotEmpty(c.t, out.CSRFToken)
	c.csrf = out.CSRFToken
}

func (c *client) signUp(username string) uint {
	c.t.Helper()
	c.refreshCSRF()
	res := c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": username, "password": "pw123"})
	require.Equal(c.t, http.StatusCreated, res.status, string(res.body))
	var out struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	res.decode(c.t, &out)
	c.refreshCSRF()
	return out.User.ID
}

func errorOf(t *testing.T, r result) string {
	t.Helper()
	msg, _ := r.object(t)["error"].(string)
	return msg
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)

	me := c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, me.status)
	assert.Nil(t, me.object(t)["user"])

	c.refreshCSRF()
	res := c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "password": "pw123", "email": "alice@example.com"})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	user := res.object(t)["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, "alice", user["display_name"])
	assert.NotContains(t, user, "password")

	me = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, "alice", me.object(t)["user"].(map[string]interface{})["username"])

	// Signing in rotated the token.
	res = c.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "CSRF token invalid", errorOf(t, res))

	c.refreshCSRF()
	res = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, true, res.object(t)["ok"])

	me = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Nil(t, me.object(t)["user"])

	// The token survives logout.
	res = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "wrongpw"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "invalid credentials", errorOf(t, res))

	res = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "nobody", "password": "pw123"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "invalid credentials", errorOf(t, res))

	res = c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "pw123"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "alice", res.object(t)["user"].(map[string]interface{})["username"])

	me = c.do(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, "alice", me.object(t)["user"].(map[string]interface{})["username"])

	// Logging out twice is fine.
	c.refreshCSRF()
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/logout", nil).status)
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/logout", nil).status)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.newClient(t).signUp("alice")

	c := s.newClient(t)
	c.refreshCSRF()

	res := c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "username taken", errorOf(t, res))

	res = c.do(http.MethodPost, "/api/auth/register", map[string]string{"username": "  ", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "username and password required", errorOf(t, res))

	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, s.db.Model(&models.Profile{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCSRFRequiredOnUnsafeMethods(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)

	res := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "pw123"})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "CSRF token missing", errorOf(t, res))

	c.csrf = "forged"
	res = c.do(http.MethodPost, "/api/movies", map[string]string{"title": "Heat"})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "CSRF token invalid", errorOf(t, res))

	// Reads never need the token.
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/movies", nil).status)
}

func TestCSRFTrailingSlashAlias(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)

	res := c.do(http.MethodGet, "/api/auth/csrf/", nil)
	require.Equal(t, http.StatusOK, res.status)
	token, _ := res.object(t)["csrfToken"].(string)
	assert.NotEmpty(t, token)

	// The same session answers with the same token.
	again := c.do(http.MethodGet, "/api/auth/csrf", nil)
	assert.Equal(t, token, again.object(t)["csrfToken"])
}

func createMovie(t *testing.T, c *client, body map[string]interface{}) uint {
	t.Helper()
	res := c.do(http.MethodPost, "/api/movies", body)
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var out struct {
		ID uint `json:"id"`
	}
	res.decode(t, &out)
	return out.ID
}

func createLabel(t *testing.T, c *client, path, name string) uint {
	t.Helper()
	res := c.do(http.MethodPost, path, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var out struct {
		ID uint `json:"id"`
	}
	res.decode(t, &out)
	return out.ID
}

type moviePage struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []struct {
		ID          uint   `json:"id"`
		Title       string `json:"title"`
		ReleaseYear *int   `json:"release_year"`
		InWatchlist bool   `json:"in_watchlist"`
		Genres      []struct {
			Name string `json:"name"`
		} `json:"genres"`
	} `json:"results"`
}

func TestMovieListGenreFilterAndYearSort(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)
	c.signUp("alice")

	drama := createLabel(t, c, "/api/genres", "Drama")
	comedy := createLabel(t, c, "/api/genres", "Comedy")
	createMovie(t, c, map[string]interface{}{"title": "Old Drama", "release_year": 1999, "genre_ids": []uint{drama}})
	createMovie(t, c, map[string]interface{}{"title": "New Drama", "release_year": 2001, "genre_ids": []uint{drama}})
	createMovie(t, c, map[string]interface{}{"title": "Comedy", "release_year": 2010, "genre_ids": []uint{comedy}})

	res := c.do(http.MethodGet, "/api/movies?genre=Drama&sort=year", nil)
	require.Equal(t, http.StatusOK, res.status)
	var page moviePage
	res.decode(t, &page)
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 2001, *page.Results[0].ReleaseYear)
	assert.Equal(t, 1999, *page.Results[1].ReleaseYear)
	assert.Equal(t, "Drama", page.Results[0].Genres[0].Name)
	assert.Nil(t, page.Next)

	// Unknown genres filter everything out rather than failing.
	res = c.do(http.MethodGet, "/api/movies?genre=Western", nil)
	require.Equal(t, http.StatusOK, res.status)
	page = moviePage{}
	res.decode(t, &page)
	assert.Zero(t, page.Count)
	assert.Empty(t, page.Results)

	res = c.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, res.status)
	var stats struct {
		ByGenre []struct {
			Name  string `json:"name"`
			Count int64  `json:"count"`
		} `json:"by_genre"`
	}
	res.decode(t, &stats)
	require.Len(t, stats.ByGenre, 2)
	assert.Equal(t, "Comedy", stats.ByGenre[0].Name)
	assert.Equal(t, int64(1), stats.ByGenre[0].Count)
	assert.Equal(t, "Drama", stats.ByGenre[1].Name)
	assert.Equal(t, int64(2), stats.ByGenre[1].Count)
}

func TestMoviePaginationLinks(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)
	c.signUp("alice")
	for i := 1; i <= 3; i++ {
		createMovie(t, c, map[string]interface{}{"title": fmt.Sprintf("Movie %d", i)})
	}
	base := s.srv.URL + "/api/movies"

	var first moviePage
	c.do(http.MethodGet, "/api/movies", nil).decode(t, &first)
	assert.Equal(t, int64(3), first.Count)
	require.Len(t, first.Results, 2)
	assert.Equal(t, "Movie 3", first.Results[0].Title)
	require.NotNil(t, first.Next)
	assert.Equal(t, base+"?page=2", *first.Next)
	assert.Nil(t, first.Previous)

	var second moviePage
	c.do(http.MethodGet, "/api/movies?page=2", nil).decode(t, &second)
	require.Len(t, second.Results, 1)
	assert.Equal(t, "Movie 1", second.Results[0].Title)
	assert.Nil(t, second.Next)
	require.NotNil(t, second.Previous)
	assert.Equal(t, base, *second.Previous)

	var bogus moviePage
	c.do(http.MethodGet, "/api/movies?page=abc", nil).decode(t, &bogus)
	assert.Len(t, bogus.Results, 2)

	var far moviePage
	c.do(http.MethodGet, "/api/movies?page=9223372036854775807", nil).decode(t, &far)
	assert.Equal(t, int64(3), far.Count)
	assert.Empty(t, far.Results)
	assert.Nil(t, far.Next)
}

func TestWatchlistToggles(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)
	userID := c.signUp("alice")
	movieID := createMovie(t, c, map[string]interface{}{"title": "Heat", "rating": 8.34})
	other := createMovie(t, c, map[string]interface{}{"title": "Ronin"})

	add := fmt.Sprintf("/api/movies/%d/add_to_watchlist", movieID)
	for i := 0; i < 2; i++ {
		res := c.do(http.MethodPost, add, nil)
		require.Equal(t, http.StatusOK, res.status, string(res.body))
		assert.Equal(t, true, res.object(t)["in_watchlist"])
	}
	var rows int64
	require.NoError(t, s.db.Model(&models.Watchlist{}).Where("user_id = ? AND movie_id = ?", userID, movieID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	detail := c.do(http.MethodGet, fmt.Sprintf("/api/movies/%d", movieID), nil).object(t)
	assert.Equal(t, true, detail["in_watchlist"])
	assert.Equal(t, 8.3, detail["rating"])

	list := c.do(http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, list.status)
	var watchlist []map[string]interface{}
	list.decode(t, &watchlist)
	require.Len(t, watchlist, 1)
	assert.Equal(t, "Heat", watchlist[0]["title"])

	res := c.do(http.MethodPost, fmt.Sprintf("/api/movies/%d/remove_from_watchlist", other), nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, false, res.object(t)["in_watchlist"])

	for i := 0; i < 2; i++ {
		res := c.do(http.MethodPost, fmt.Sprintf("/api/movies/%d/remove_from_watchlist", movieID), nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, false, res.object(t)["in_watchlist"])
	}

	res = c.do(http.MethodPost, "/api/movies/9999/add_to_watchlist", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "movie not found", errorOf(t, res))

	anon := s.newClient(t)
	anon.refreshCSRF()
	res = anon.do(http.MethodPost, add, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, http.StatusForbidden, anon.do(http.MethodGet, "/api/watchlist", nil).status)

	// Anonymous viewers never see watchlist state.
	anonDetail := anon.do(http.MethodGet, fmt.Sprintf("/api/movies/%d", movieID), nil).object(t)
	assert.Equal(t, false, anonDetail["in_watchlist"])
}

func TestMovieWritesRequireSignIn(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)
	c.signUp("alice")
	movieID := createMovie(t, c, map[string]interface{}{"title": "Heat"})

	anon := s.newClient(t)
	anon.refreshCSRF()
	res := anon.do(http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), map[string]string{"title": "Cold"})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Authentication credentials were not provided.", errorOf(t, res))

	// Anonymous writers are rejected before the lookup.
	res = anon.do(http.MethodDelete, "/api/movies/9999", nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	// Any signed-in user may edit any movie.
	bob := s.newClient(t)
	bob.signUp("bob")
	res = bob.do(http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), map[string]string{"title": "Cold"})
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	assert.Equal(t, "Cold", res.object(t)["title"])

	res = bob.do(http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), map[string]interface{}{"rating": 7.1})
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	assert.Equal(t, 7.1, res.object(t)["rating"])
	res = bob.do(http.MethodPatch, fmt.Sprintf("/api/movies/%d", movieID), map[string]interface{}{"rating": nil})
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	assert.Nil(t, res.object(t)["rating"])
	assert.Equal(t, "Cold", res.object(t)["title"])

	res = bob.do(http.MethodPut, fmt.Sprintf("/api/movies/%d", movieID), map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "title is required", errorOf(t, res))

	res = bob.do(http.MethodPost, "/api/movies", map[string]interface{}{"title": "Bad", "genre_ids": []uint{42}})
	assert.Equal(t, http.StatusBadRequest, res.status)

	assert.Equal(t, http.StatusNoContent, bob.do(http.MethodDelete, fmt.Sprintf("/api/movies/%d", movieID), nil).status)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodGet, fmt.Sprintf("/api/movies/%d", movieID), nil).status)
	assert.Equal(t, http.StatusNotFound, bob.do(http.MethodDelete, fmt.Sprintf("/api/movies/%d", movieID), nil).status)
}

func TestItemOwnershipAndFavorites(t *testing.T) {
	s := newTestServer(t)
	alice := s.newClient(t)
	alice.signUp("alice")
	bob := s.newClient(t)
	bob.signUp("bob")

	tag := createLabel(t, alice, "/api/tags", "Tools")
	res := alice.do(http.MethodPost, "/api/items", map[string]interface{}{"title": "Hammer", "tag_ids": []uint{tag}})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var item struct {
		ID uint `json:"id"`
	}
	res.decode(t, &item)
	path := fmt.Sprintf("/api/items/%d", item.ID)

	res = bob.do(http.MethodPatch, path, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "You do not have permission to perform this action.", errorOf(t, res))
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, path, nil).status)

	anon := s.newClient(t)
	res = anon.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Hammer", res.object(t)["title"])

	// Favoriting is open to everyone signed in, owner or not.
	for i := 0; i < 2; i++ {
		res = bob.do(http.MethodPost, path+"/favorite", nil)
		require.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, map[string]interface{}{"ok": true, "is_favorited": true}, res.object(t))
	}

	var items []map[string]interface{}
	bob.do(http.MethodGet, "/api/items?tag=tools", nil).decode(t, &items)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0]["is_favorited"])

	items = nil
	alice.do(http.MethodGet, "/api/items", nil).decode(t, &items)
	require.Len(t, items, 1)
	assert.Equal(t, false, items[0]["is_favorited"])

	var favorites []map[string]interface{}
	bob.do(http.MethodGet, "/api/favorites", nil).decode(t, &favorites)
	assert.Len(t, favorites, 1)

	res = bob.do(http.MethodPost, path+"/unfavorite", nil)
	assert.Equal(t, map[string]interface{}{"ok": true, "is_favorited": false}, res.object(t))

	var stats struct {
		ByTag []struct {
			Name  string `json:"name"`
			Count int64  `json:"count"`
		} `json:"by_tag"`
	}
	anon.do(http.MethodGet, "/api/stats/tags", nil).decode(t, &stats)
	require.Len(t, stats.ByTag, 1)
	assert.Equal(t, int64(1), stats.ByTag[0].Count)

	res = alice.do(http.MethodPatch, path, map[string]string{"title": "Mallet"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Mallet", res.object(t)["title"])
	assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, path, nil).status)
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, path, nil).status)
}

func TestGenreCRUD(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)
	c.signUp("alice")

	createLabel(t, c, "/api/genres", "Thriller")
	id := createLabel(t, c, "/api/genres", "Action")

	res := c.do(http.MethodPost, "/api/genres", map[string]string{"name": "Action"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "genre already exists", errorOf(t, res))

	var genres []map[string]interface{}
	c.do(http.MethodGet, "/api/genres", nil).decode(t, &genres)
	require.Len(t, genres, 2)
	assert.Equal(t, "Action", genres[0]["name"])

	res = c.do(http.MethodPut, fmt.Sprintf("/api/genres/%d", id), map[string]string{"name": "Adventure"})
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Adventure", res.object(t)["name"])

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, fmt.Sprintf("/api/genres/%d", id), nil).status)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, fmt.Sprintf("/api/genres/%d", id), nil).status)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)
	c := s.newClient(t)

	res := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "ok", res.object(t)["status"])

	res = c.do(http.MethodGet, "/apidocs.json", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, string(res.body), "/api/movies/{movie-id}/add_to_watchlist")

	res = c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, res.status)
	assert.True(t, strings.Contains(string(res.body), "moviebox_http_requests_total"))

	res = c.do(http.MethodGet, "/api/movies/1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.NotEmpty(t, errorOf(t, res))
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.srv.URL + "/api/genres")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}
