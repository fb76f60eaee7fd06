package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSecret = errors.New("jwt session store requires SESSION_SECRET")

// JWTStore keeps no server-side state: the cookie is an HS256-signed token.
// Destroy cannot revoke an issued token; logout only clears the cookie.
type JWTStore struct {
	secret []byte
	opts   Options
}

func NewJWTStore(secret string, opts Options) (*JWTStore, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &JWTStore{secret: []byte(secret), opts: opts}, nil
}

func (s *JWTStore) Create(ctx context.Context, userID int64) (string, error) {
	now := s.opts.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TTL)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (s *JWTStore) Lookup(ctx context.Context, token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.opts.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, ErrNotFound
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrNotFound
	}
	return userID, nil
}

func (s *JWTStore) Destroy(ctx context.Context, token string) error {
	return nil
}
