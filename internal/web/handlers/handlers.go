package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dbscope/internal/database"
)

// VersionInfo holds application version information
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Handlers contains all HTTP handlers. Database access always goes through
// the request's connection scope installed by middleware.Database.
type Handlers struct {
	versionInfo VersionInfo
}

// New creates a new Handlers instance
func New(versionInfo VersionInfo) *Handlers {
	return &Handlers{versionInfo: versionInfo}
}

// Health pings the database over the request's connection
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	conn, err := database.ConnFrom(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Health check could not get a database connection")
		h.jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := conn.PingContext(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check ping failed")
		h.jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DatabaseInfo reports the driver, database name and server version
func (h *Handlers) DatabaseInfo(w http.ResponseWriter, r *http.Request) {
	scope := database.ScopeFrom(r.Context())
	if scope == nil {
		h.jsonError(w, database.ErrNoScope.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := scope.Conn(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get database connection")
		h.jsonError(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	db := scope.DB()
	rows, err := conn.Rows(r.Context(), db.VersionQuery())
	if err != nil {
		log.Error().Err(err).Msg("Failed to query database version")
		h.jsonError(w, "failed to query database version", http.StatusInternalServerError)
		return
	}

	info := map[string]any{
		"driver":   db.Driver(),
		"database": db.Name(),
	}
	if len(rows) > 0 {
		info["version"] = rows[0]["version"]
	}

	h.writeJSON(w, http.StatusOK, info)
}

// Version reports the build version
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.versionInfo)
}

// writeJSON sends v as a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// jsonError sends a JSON error response
func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
