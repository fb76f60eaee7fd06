package session

import (
	"context"
	"errors"
	"fmt"

	"carparts-storefront/internal/model"

	"gorm.io/gorm"
)

type DatabaseStore struct {
	db   *gorm.DB
	opts Options
}

func NewDatabaseStore(db *gorm.DB, opts Options) *DatabaseStore {
	return &DatabaseStore{db: db, opts: opts}
}

func (s *DatabaseStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := s.opts.now()
	err = s.db.WithContext(ctx).Create(&model.Session{
		ID:        hashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(s.opts.TTL),
		CreatedAt: now,
	}).Error
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (s *DatabaseStore) Lookup(ctx context.Context, token string) (int64, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", hashToken(token), s.opts.now()).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	return sess.UserID, nil
}

func (s *DatabaseStore) Destroy(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).
		Where("id = ?", hashToken(token)).
		Delete(&model.Session{}).Error
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions past their expiry.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.opts.now()).
		Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
