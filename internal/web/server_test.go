package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltyorg/dbscope/internal/config"
	"github.com/saltyorg/dbscope/internal/database"
	"github.com/saltyorg/dbscope/internal/web/handlers"
)

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default().Server
	return NewServer(db, cfg, nil, handlers.VersionInfo{Version: "1.2.3", Commit: "abc"}), db
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	s, db := newTestServer(t)

	rec, body := get(t, s, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body["status"])
	// Teardown returned the request connection.
	assert.Zero(t, db.Stats().InUse)
}

func TestHealth_DatabaseClosed(t *testing.T) {
	s, db := newTestServer(t)
	require.NoError(t, db.Close())

	rec, body := get(t, s, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unavailable", body["error"])
}

func TestDatabaseInfo(t *testing.T) {
	s, db := newTestServer(t)

	rec, body := get(t, s, "/api/database")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sqlite", body["driver"])
	assert.Equal(t, db.Name(), body["database"])
	assert.NotEmpty(t, body["version"])
	assert.Zero(t, db.Stats().InUse)
}

func TestVersion(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := get(t, s, "/api/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "abc", body["commit"])
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.bind = "127.0.0.1"
	s.port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	// Give the listener a moment before shutting down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
