package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/health-correlation-server/pkg/config"
)

// HTTPServer runs the API router with graceful shutdown.
type HTTPServer struct {
	config *config.HTTPServerConfig
	srv    *http.Server
}

// NewHTTPServer creates the HTTP server for the given router.
func NewHTTPServer(cfg *config.HTTPServerConfig, router *gin.Engine) *HTTPServer {
	return &HTTPServer{
		config: cfg,
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Start begins serving. It returns once the listener stops; callers run it
// in a goroutine and treat http.ErrServerClosed as a clean exit.
func (s *HTTPServer) Start() error {
	fmt.Printf("HTTP server listening on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Stop shuts the server down gracefully within the configured timeout.
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
