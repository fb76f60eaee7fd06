// Package session resolves an opaque cookie value to a user id. Backends are
// interchangeable; the auth guard only ever calls Lookup.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("session not found or expired")

type Store interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, token string) (int64, error)
	Destroy(ctx context.Context, token string) error
}

// Purger is implemented by backends that keep expired sessions until swept.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Options configures every backend.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashToken keeps raw tokens out of server-side storage.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
