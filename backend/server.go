// Package backend serves the importance engine over HTTP: asynchronous
// calculation jobs, strategy comparisons and Prometheus metrics.
package backend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/poi-engine/backend/api"
	"github.com/gilchrisn/poi-engine/backend/config"
	"github.com/gilchrisn/poi-engine/backend/service"
	"github.com/gilchrisn/poi-engine/pkg/poi"
)

const shutdownTimeout = 30 * time.Second

// Server wires the services, routes and middleware
type Server struct {
	cfg        *config.Config
	jobService *service.JobService
	handler    http.Handler
}

// NewServer builds the service stack around the engine options
func NewServer(cfg *config.Config, baseOptions poi.Options, metrics *poi.Metrics) *Server {
	jobService := service.NewJobService(cfg.Jobs, baseOptions, metrics)
	comparisonService := service.NewComparisonService(baseOptions)
	handlers := api.NewHandlers(jobService, comparisonService, baseOptions, cfg.Limits.MaxSnapshotBytes)

	var metricsHandler http.Handler
	if metrics != nil {
		metricsHandler = promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})
	}

	router := mux.NewRouter()
	api.SetupRoutes(router, handlers, metricsHandler)
	router.Use(api.LoggingMiddleware)
	router.Use(api.RecoveryMiddleware)

	return &Server{
		cfg:        cfg,
		jobService: jobService,
		handler:    api.NewCORSMiddleware(cfg.CORS.AllowedOrigins)(router),
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	defer s.jobService.Close()

	server := &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", s.cfg.Server.Address).
			Int("max_workers", s.cfg.Jobs.MaxWorkers).
			Msg("HTTP server starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}

// Close releases background resources of a server that never ran
func (s *Server) Close() {
	s.jobService.Close()
}
