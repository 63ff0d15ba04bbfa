package database

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Conn is a single database connection owned by one Scope
type Conn struct {
	*sql.Conn
}

// Rows runs query and returns every row as a column name to value map.
// Text the driver hands back as []byte (MySQL always does) becomes string.
func (c *Conn) Rows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	var rows []map[string]any
	if err := sqlscan.Select(ctx, c.Conn, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		for col, v := range row {
			if b, ok := v.([]byte); ok {
				row[col] = string(b)
			}
		}
	}
	return rows, nil
}

// Select scans all rows of query into dst, a pointer to a slice of structs
func (c *Conn) Select(ctx context.Context, dst any, query string, args ...any) error {
	return sqlscan.Select(ctx, c.Conn, dst, query, args...)
}

// Get scans the single row of query into dst.
// The error wraps sql.ErrNoRows when the query yields nothing.
func (c *Conn) Get(ctx context.Context, dst any, query string, args ...any) error {
	return sqlscan.Get(ctx, c.Conn, dst, query, args...)
}
