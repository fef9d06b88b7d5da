package server

import "time"

// Config is the HTTP server configuration.
type Config struct {
	// ShutdownTimeout bounds how long Shutdown waits for open connections.
	ShutdownTimeout time.Duration

	// KeepAliveInterval is how often an idle event stream writes an empty line.
	KeepAliveInterval time.Duration
}
