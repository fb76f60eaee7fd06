package testutil

import (
	"carparts-storefront/internal/client"
	"carparts-storefront/internal/config"
	"io"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory sqlite database that lives for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient(&config.Database{
		Driver:      "sqlite",
		URL:         "file::memory:",
		AutoMigrate: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// Logger returns a logger that discards output.
func Logger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}
