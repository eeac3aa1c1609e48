package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesSchema(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, "file:schema_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()
	dbh.SetMaxOpenConns(1)

	for _, table := range []string{"listening_tests", "listening_attempts", "event_log"} {
		var n int
		err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	// running the schema twice is harmless
	require.NoError(t, ensureSchema(ctx, dbh, DriverSQLite))
}

func TestOpenSQLiteOneOpenAttempt(t *testing.T) {
	ctx := context.Background()
	dbh, err := Open(ctx, DriverSQLite, "file:one_open_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()
	dbh.SetMaxOpenConns(1)

	_, err = dbh.ExecContext(ctx, `INSERT INTO listening_tests (id, title, parts_json, created_at) VALUES ('t', 'T', '[]', 0)`)
	require.NoError(t, err)
	insert := `INSERT INTO listening_attempts (id, test_id, user_id, answers_json, started_at, submitted_at) VALUES ($1, 't', 'u', '{}', 0, $2)`
	_, err = dbh.ExecContext(ctx, insert, "a1", nil)
	require.NoError(t, err)
	_, err = dbh.ExecContext(ctx, insert, "a2", nil)
	assert.Error(t, err, "second open attempt must violate the partial index")
	_, err = dbh.ExecContext(ctx, insert, "a3", 1)
	assert.NoError(t, err, "submitted attempts are not constrained")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	assert.ErrorContains(t, err, "unsupported driver")
}
