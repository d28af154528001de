package httpserver

import (
	"net/http"
	"time"

	"parrainage/internal/platform/config"
)

const fallbackReadHeaderTimeout = 5 * time.Second

// New builds the API server from the server section of the config. A zero
// header timeout falls back to five seconds so a slow client cannot hold a
// connection open before sending headers; other zero timeouts mean no limit.
func New(cfg config.Server, handler http.Handler) *http.Server {
	readHeader := cfg.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = fallbackReadHeaderTimeout
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
