package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saltyorg/dbscope/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Driver: DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err, "failed to open db")
	t.Cleanup(func() { db.Close() })
	return db
}
