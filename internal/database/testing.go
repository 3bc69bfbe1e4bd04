package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// OpenTestSQLite opens a migrated SQLite database in t's temporary
// directory.  The pool is limited to one connection so concurrent callers
// queue instead of racing for the write lock.
func OpenTestSQLite(t testing.TB) *sqlx.DB {
	t.Helper()
	return OpenTestSQLitePool(t, 1)
}

// OpenTestSQLitePool is OpenTestSQLite with up to conns open connections.
// Concurrent writers then contend on SQLite's write lock and wait on the
// busy timeout, as they would against a shared server.
func OpenTestSQLitePool(t testing.TB, conns int) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ingressos.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}
