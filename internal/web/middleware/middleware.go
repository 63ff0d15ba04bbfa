package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dbscope/internal/database"
)

// Logger is a middleware that logs requests. 5xx responses are logged at warn.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			event := log.Debug()
			if ww.Status() >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// Database is a middleware that gives each request its own connection scope.
// The connection is opened lazily by handlers through database.ConnFrom and
// released when the handler returns, including when it panics.
func Database(db *database.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, scope := database.WithScope(r.Context(), db)

			defer func() {
				rec := recover()
				var cause error
				if rec != nil {
					cause = fmt.Errorf("panic: %v", rec)
				} else if err := ctx.Err(); err != nil {
					cause = err
				}
				scope.Release(cause)
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AllowSubnet rejects requests whose direct peer (RemoteAddr, before RealIP
// rewrites it) is outside allowedNet. A nil allowedNet allows everyone.
func AllowSubnet(allowedNet *net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if allowedNet == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if ip := net.ParseIP(host); ip == nil || !allowedNet.Contains(ip) {
				log.Warn().
					Str("remote_addr", r.RemoteAddr).
					Str("allowed_subnet", allowedNet.String()).
					Msg("Connection rejected: source IP not in allowed subnet")
				forbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// forbidden answers in the same JSON shape as the API handlers
func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"forbidden"}` + "\n"))
}
