package database

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrNoScope is returned when a connection is requested from a context
// that was not prepared by WithScope.
var ErrNoScope = errors.New("database: no connection scope in context")

type scopeKey struct{}

// Scope is the approved entrypoint for database access during one request
// (or one CLI invocation). It opens at most one connection, lazily, and
// closes it on Release.
//
// A Scope belongs to a single request and must not be shared between goroutines.
type Scope struct {
	db   *DB
	conn *Conn
}

// NewScope creates an empty scope over db
func NewScope(db *DB) *Scope {
	return &Scope{db: db}
}

// WithScope returns a copy of ctx carrying a new empty scope over db
func WithScope(ctx context.Context, db *DB) (context.Context, *Scope) {
	s := NewScope(db)
	return context.WithValue(ctx, scopeKey{}, s), s
}

// ScopeFrom returns the scope stored in ctx, or nil
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// ConnFrom returns the connection of the scope stored in ctx, opening it on first use
func ConnFrom(ctx context.Context) (*Conn, error) {
	s := ScopeFrom(ctx)
	if s == nil {
		return nil, ErrNoScope
	}
	return s.Conn(ctx)
}

// DB returns the database the scope draws its connection from
func (s *Scope) DB() *DB {
	return s.db
}

// Conn returns the scope's connection, opening it if none is held yet.
// Repeated calls return the same handle until Release.
func (s *Scope) Conn(ctx context.Context) (*Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	s.conn = &Conn{Conn: c}
	log.Trace().Str("driver", s.db.driver).Msg("Opened request database connection")
	return s.conn, nil
}

// Active reports whether the scope currently holds an open connection
func (s *Scope) Active() bool {
	return s.conn != nil
}

// Release closes the scope's connection if one was opened. It is safe to call
// on an empty scope and more than once. cause is the outcome of the work the
// scope served and is only logged.
func (s *Scope) Release(cause error) {
	conn := s.conn
	if conn == nil {
		return
	}
	s.conn = nil

	if cause != nil {
		log.Debug().Err(cause).Msg("Releasing database connection after failed request")
	}

	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database connection")
		return
	}
	log.Trace().Str("driver", s.db.driver).Msg("Closed request database connection")
}
