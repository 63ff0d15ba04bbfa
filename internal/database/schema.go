package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Execer is satisfied by *Conn, *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InitSchema drops and recreates the application tables on the connection of
// the scope stored in ctx, using the script bundled for the scope's driver.
func InitSchema(ctx context.Context) error {
	s := ScopeFrom(ctx)
	if s == nil {
		return ErrNoScope
	}

	conn, err := s.Conn(ctx)
	if err != nil {
		return err
	}

	script, err := SchemaScript(s.db.driver)
	if err != nil {
		return err
	}

	log.Info().
		Str("driver", s.db.driver).
		Str("database", s.db.name).
		Str("script_size", humanize.Bytes(uint64(len(script)))).
		Msg("Initializing database schema")

	count, err := ExecScript(ctx, conn, script)
	if err != nil {
		return err
	}

	log.Info().Int("statements", count).Msg("Database schema initialized")
	return nil
}

// SchemaScript returns the bundled schema script for driver
func SchemaScript(driver string) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return "", fmt.Errorf("no schema script for driver %q: %w", driver, err)
	}
	return string(data), nil
}

// ExecScript splits script on ';' and executes each non-empty statement in
// order. It stops at the first failing statement and returns how many
// statements succeeded.
func ExecScript(ctx context.Context, e Execer, script string) (int, error) {
	statements := splitSQLStatements(script)
	for i, stmt := range statements {
		log.Trace().Int("statement", i+1).Str("sql", stmt).Msg("Executing schema statement")
		if _, err := e.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	return len(statements), nil
}

// splitSQLStatements splits a SQL script on statement terminators. Fragments
// holding only whitespace or -- comment lines are dropped; the rest are
// returned exactly as written.
func splitSQLStatements(script string) []string {
	var statements []string

	for _, fragment := range strings.Split(script, ";") {
		if isBlankSQL(fragment) {
			continue
		}
		statements = append(statements, fragment)
	}

	return statements
}

// isBlankSQL reports whether fragment has no lines besides blanks and comments
func isBlankSQL(fragment string) bool {
	for line := range strings.SplitSeq(fragment, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "--") {
			return false
		}
	}
	return true
}
