package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reclist/internal/config"
	"reclist/internal/handlers"
	"reclist/internal/log"
	"reclist/internal/recordings"
	"reclist/internal/storage"
)

const historySweepInterval = 10 * time.Minute

type Server struct {
	config     *config.Config
	enumerator *recordings.Enumerator
	store      *storage.HistoryStore
	janitor    *storage.Janitor
	httpServer *http.Server
	apiHandler *handlers.APIHandler
	closeOnce  sync.Once
	closeErr   error
}

func New(cfg *config.Config) (*Server, error) {
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan history store: %w", err)
	}

	classifier := recordings.NewClassifier(recordings.ClassifierConfig{
		Extensions:   cfg.Extensions,
		MinSizeBytes: cfg.MinFileSize,
	})
	enumerator := recordings.NewEnumerator(cfg.BaseDir, classifier)
	apiHandler := handlers.NewAPIHandler(enumerator, store, cfg.RecordingsDir)

	router := chi.NewRouter()
	server := &Server{
		config:     cfg,
		enumerator: enumerator,
		store:      store,
		janitor:    storage.NewJanitor(store, cfg.HistoryLimit, historySweepInterval),
		apiHandler: apiHandler,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port)),
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.setupRoutes(router)

	return server, nil
}

func (s *Server) setupRoutes(r chi.Router) {
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(s.config.AllowedOrigins))

	r.NotFound(s.apiHandler.NotFound)
	r.MethodNotAllowed(s.apiHandler.MethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.config.RateLimit > 0 {
			r.Use(rateLimitMiddleware(s.config.RateLimit))
		}
		r.Get("/api/list-files", s.apiHandler.ListFiles)
		r.Get("/list-files", s.apiHandler.ListFiles)
		r.Get("/api/scans", s.apiHandler.ListScans)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":         "healthy",
		"recordings_dir": s.config.RecordingsDir,
		"base_dir":       s.enumerator.BaseDir(),
	})
}

func (s *Server) Start() error {
	logger := log.WithComponent("server")
	logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("recordings_dir", s.config.RecordingsDir).
		Str("base_dir", s.enumerator.BaseDir()).
		Strs("extensions", s.config.Extensions).
		Int64("min_file_size", s.config.MinFileSize).
		Str("data_dir", s.config.DataDir).
		Msg("starting recordings listing server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info().Msgf("Server started on http://%s", s.httpServer.Addr)

	return s.waitForShutdown(errCh)
}

// waitForShutdown waits for shutdown signals and gracefully shuts down the server
func (s *Server) waitForShutdown(errCh <-chan error) error {
	logger := log.WithComponent("server")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info().Msg("Shutting down server...")
	case err := <-errCh:
		s.closeStore()
		return fmt.Errorf("server failed: %w", err)
	}

	if err := s.Stop(); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.closeStore()
		return err
	}

	return s.closeStore()
}

func (s *Server) closeStore() error {
	s.closeOnce.Do(func() {
		s.janitor.Close()
		if err := s.store.Close(); err != nil {
			logger := log.WithComponent("server")
			logger.Error().Err(err).Msg("Error closing scan history store")
			s.closeErr = err
		}
	})
	return s.closeErr
}
