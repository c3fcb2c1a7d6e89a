package auth

import (
	"context"
	"errors"
	"time"

	"moviebox-restful/models"

	"gorm.io/gorm"
)

// ErrSessionNotFound is returned for missing and expired sessions alike.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists server-side sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	// Save inserts or replaces the session.
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GormSessionStore keeps sessions in the sessions table.
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *GormSessionStore) Save(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func (s *GormSessionStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error
}

func (s *GormSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}
