package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	statements []string
	failOn     int
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	if r.failOn > 0 && len(r.statements) == r.failOn {
		return nil, errors.New("syntax error")
	}
	return nil, nil
}

func TestExecScript_SkipsEmptyStatements(t *testing.T) {
	rec := &recordingExecer{}

	count, err := ExecScript(context.Background(), rec, "CREATE TABLE t(x int);  ;INSERT INTO t VALUES(1);")
	require.NoError(t, err)

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"CREATE TABLE t(x int)", "INSERT INTO t VALUES(1)"}, rec.statements)
}

func TestExecScript_StopsAtFirstFailure(t *testing.T) {
	rec := &recordingExecer{failOn: 2}

	count, err := ExecScript(context.Background(), rec, "SELECT 1; SELEC 2; SELECT 3;")
	require.Error(t, err)

	assert.Equal(t, 1, count)
	assert.Len(t, rec.statements, 2)
	assert.Contains(t, err.Error(), "schema statement 2 failed")
}

func TestExecScript_AgainstSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx, scope := WithScope(context.Background(), db)
	defer scope.Release(nil)

	conn, err := ConnFrom(ctx)
	require.NoError(t, err)

	_, err = ExecScript(ctx, conn, "CREATE TABLE t(x int);  ;INSERT INTO t VALUES(1);")
	require.NoError(t, err)

	var x int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT x FROM t").Scan(&x))
	assert.Equal(t, 1, x)
}

func TestExecScript_PreservesStatementText(t *testing.T) {
	db := openTestDB(t)
	ctx, scope := WithScope(context.Background(), db)
	defer scope.Release(nil)

	conn, err := ConnFrom(ctx)
	require.NoError(t, err)

	literal := "line1\n\n-- not a comment\nline2"
	count, err := ExecScript(ctx, conn, "CREATE TABLE t(x text);\nINSERT INTO t VALUES('"+literal+"');\n")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var x string
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT x FROM t").Scan(&x))
	assert.Equal(t, literal, x)
}

func TestSplitSQLStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "blank fragments dropped",
			script: "  ;\n; ;",
			want:   nil,
		},
		{
			name:   "trailing statement without terminator",
			script: "SELECT 1; SELECT 2",
			want:   []string{"SELECT 1", " SELECT 2"},
		},
		{
			name:   "comment-only fragments dropped",
			script: "-- users\nCREATE TABLE users (id int);\n-- trailing note\n",
			want:   []string{"-- users\nCREATE TABLE users (id int)"},
		},
		{
			name:   "multi-line statement kept intact",
			script: "CREATE TABLE t (\n  a int,\n\n  b int\n);",
			want:   []string{"CREATE TABLE t (\n  a int,\n\n  b int\n)"},
		},
		{
			name:   "comment lines inside a statement kept",
			script: "INSERT INTO t VALUES ('a\n-- b');",
			want:   []string{"INSERT INTO t VALUES ('a\n-- b')"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSQLStatements(tt.script))
		})
	}
}

func TestInitSchema_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	ctx, scope := WithScope(context.Background(), db)
	defer scope.Release(nil)

	require.NoError(t, InitSchema(ctx))

	conn, err := ConnFrom(ctx)
	require.NoError(t, err)

	for _, table := range []string{"users", "posts"} {
		var name string
		err := conn.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestInitSchema_ClearsExistingData(t *testing.T) {
	db := openTestDB(t)
	ctx, scope := WithScope(context.Background(), db)
	defer scope.Release(nil)

	require.NoError(t, InitSchema(ctx))
	conn, err := ConnFrom(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO users (username, password) VALUES ('a', 'b')")
	require.NoError(t, err)

	require.NoError(t, InitSchema(ctx))

	var count int
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Zero(t, count)
}

func TestInitSchema_NoScope(t *testing.T) {
	assert.ErrorIs(t, InitSchema(context.Background()), ErrNoScope)
}

func TestSchemaScript_AllDrivers(t *testing.T) {
	for _, driver := range []string{DriverMySQL, DriverPostgres, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			script, err := SchemaScript(driver)
			require.NoError(t, err)
			assert.Len(t, splitSQLStatements(script), 4)
		})
	}

	_, err := SchemaScript("oracle")
	assert.Error(t, err)
}
