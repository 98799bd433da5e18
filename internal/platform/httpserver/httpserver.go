package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for document uploads. The write timeout covers a
// full asynchronous analysis (about 30s of polling plus upload).
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
