package httpserver

import (
	"net/http"
	"time"

	"pharmachain/internal/platform/config"
)

const defaultReadHeaderTimeout = 5 * time.Second

// New builds an HTTP server from the server section of the configuration.
// The write timeout leaves headroom over the per-request timeout so handlers
// can still render a timeout response.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	readHeaderTimeout := cfg.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	if cfg.RequestTimeout > 0 {
		srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	}
	return srv
}
