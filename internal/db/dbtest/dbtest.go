// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"testing"

	"pokerstats/internal/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated in-memory sqlite database that lives until the test
// ends. It is configured like db.InitDB, so unique violations surface as
// gorm.ErrDuplicatedKey.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// Each connection to :memory: is its own database. A single connection
	// also makes concurrent transactions wait for each other.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn), "Database migration should not return an error")
	return conn
}

// Repository is Open wrapped in the gorm repository.
func Repository(t testing.TB) db.Repository {
	t.Helper()
	return db.NewRepository(Open(t))
}
