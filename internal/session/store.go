package session

import (
	"errors"
	"fmt"

	"carparts-storefront/internal/config"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// NewStore builds the backend named by cfg.Backend. rdb is only required for
// the redis backend.
func NewStore(cfg *config.Session, db *gorm.DB, rdb *redis.Client) (Store, error) {
	opts := Options{TTL: cfg.TTL}

	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(opts), nil
	case "database", "":
		return NewDatabaseStore(db, opts), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("redis session backend requires a redis client")
		}
		return NewRedisStore(rdb, opts), nil
	case "jwt":
		return NewJWTStore(cfg.Secret, opts)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
