package api

import (
	"net/http"
	"time"

	"github.com/tradepost-io/tradepost-backend/pkg/config"
)

// NewServer wraps the assembled handler with the shared HTTP timeouts.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
