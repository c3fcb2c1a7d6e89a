package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"moviebox-restful/config"
	"moviebox-restful/models"

	"go.uber.org/zap"
)

// Manager drives the session lifecycle: anonymous, authenticated, anonymous.
type Manager struct {
	store  SessionStore
	signer *Signer
	cfg    config.SessionConfig
	logger *zap.Logger
}

func NewManager(store SessionStore, cfg config.SessionConfig, logger *zap.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "sessionid"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, signer: NewSigner(cfg.Secret), cfg: cfg, logger: logger}
}

func (m *Manager) CookieName() string { return m.cfg.CookieName }

func (m *Manager) Store() SessionStore { return m.store }

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Resolve returns the session a signed token points at.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	claims, err := m.signer.ParseAndValidateToken(token)
	if err != nil {
		return nil, err
	}
	session, err := m.store.Get(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, &storeError{err}
	}
	return session, err
}

// Load returns the request's session, or nil when it has none or the cookie
// is stale. Only store failures are errors.
func (m *Manager) Load(r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	session, err := m.Resolve(r.Context(), cookie.Value)
	if IsStoreError(err) {
		return nil, err
	}
	if err != nil {
		m.logger.Debug("Ignoring session cookie", zap.Error(err))
		return nil, nil
	}
	return session, nil
}

// IsStoreError reports whether err came from the session store rather than
// from a bad or stale token.
func IsStoreError(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}

type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

// Ensure returns session, creating and issuing an anonymous one when nil.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, session *models.Session) (*models.Session, error) {
	if session != nil {
		return session, nil
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, w, nil, csrf)
}

// Login replaces current with a new authenticated session. The session id
// and CSRF token both change.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, current *models.Session, userID uint) (*models.Session, error) {
	if current != nil {
		if err := m.store.Delete(ctx, current.ID); err != nil {
			return nil, &storeError{err}
		}
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	return m.issue(ctx, w, &userID, csrf)
}

// Logout destroys current and leaves the client with a fresh anonymous
// session. The CSRF token is carried over so the client can keep using it.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, current *models.Session) (*models.Session, error) {
	if current == nil {
		return m.Ensure(ctx, w, nil)
	}
	if err := m.store.Delete(ctx, current.ID); err != nil {
		return nil, &storeError{err}
	}
	return m.issue(ctx, w, nil, current.CSRFToken)
}

func (m *Manager) issue(ctx context.Context, w http.ResponseWriter, userID *uint, csrf string) (*models.Session, error) {
	id, err := randomToken()
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		ID:        id,
		UserID:    userID,
		CSRFToken: csrf,
		ExpiresAt: time.Now().Add(m.cfg.TTL),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, &storeError{err}
	}

	token, err := m.signer.GenerateToken(session.ID, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return session, nil
}

// Token returns the signed token for session, as sent in the cookie. gRPC
// clients pass it as a bearer token.
func (m *Manager) Token(session *models.Session) (string, error) {
	return m.signer.GenerateToken(session.ID, session.ExpiresAt)
}

// PurgeExpired removes expired sessions from stores that need it.
func (m *Manager) PurgeExpired(ctx context.Context) {
	n, err := m.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		m.logger.Warn("Failed to purge expired sessions", zap.Error(err))
		return
	}
	if n > 0 {
		m.logger.Info("Purged expired sessions", zap.Int64("count", n))
	}
}
