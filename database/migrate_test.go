package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationDir(t *testing.T) {
	dir, err := migrationDir(DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, "migrations/postgres", dir)

	dir, err = migrationDir(DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t, "migrations/sqlite", dir)

	_, err = migrationDir("mysql")
	assert.Error(t, err)
}

func TestMigrateDB_StopsWhenContextEnds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("goose_db_version").
		WillDelayFor(5 * time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"version_id", "is_applied"}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = MigrateDB(ctx, db, DialectSQLite)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
