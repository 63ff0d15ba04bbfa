package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP server.
// Each value can be overridden with the matching SERVER_* variable.
type TimeoutConfig struct {
	// Read is the timeout for reading a request, body included. Default: 15s
	Read time.Duration

	// Idle is how long keep-alive connections wait for the next request.
	// Default: 120s
	Idle time.Duration

	// Request bounds handler execution through chi's Timeout middleware.
	// Default: 60s
	Request time.Duration

	// Shutdown is the grace period for in-flight requests on stop.
	// Default: 30s
	Shutdown time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Read:     15 * time.Second,
		Idle:     120 * time.Second,
		Request:  60 * time.Second,
		Shutdown: 30 * time.Second,
	}
}

func defaultServerConfig() ServerConfig {
	t := DefaultTimeoutConfig()
	return ServerConfig{
		Port:            5000,
		ReadTimeout:     t.Read,
		IdleTimeout:     t.Idle,
		RequestTimeout:  t.Request,
		ShutdownTimeout: t.Shutdown,
	}
}

// Timeouts returns the server timeouts, falling back to defaults for unset values
func (s ServerConfig) Timeouts() *TimeoutConfig {
	t := DefaultTimeoutConfig()
	if s.ReadTimeout > 0 {
		t.Read = s.ReadTimeout
	}
	if s.IdleTimeout > 0 {
		t.Idle = s.IdleTimeout
	}
	if s.RequestTimeout > 0 {
		t.Request = s.RequestTimeout
	}
	if s.ShutdownTimeout > 0 {
		t.Shutdown = s.ShutdownTimeout
	}
	return t
}
