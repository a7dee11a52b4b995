// Package server exposes the query engine over HTTP: a JSON API for
// queries, feedback, and metrics, plus a websocket endpoint that streams
// run progress.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// QueryRunner executes one orchestrated run. *orchestrator.Orchestrator
// satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, query string, cfg orchestrator.Config) (*orchestrator.Response, error)
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string

	// Run is the base per-query configuration; requests may override
	// its iteration and topK limits.
	Run orchestrator.Config
}

// Server is the ragent HTTP server.
type Server struct {
	cfg        Config
	runner     QueryRunner
	tracker    *tracker.Tracker
	store      *corpus.Store
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies.
func New(cfg Config, runner QueryRunner, tr *tracker.Tracker, store *corpus.Store) *Server {
	s := &Server{
		cfg:     cfg,
		runner:  runner,
		tracker: tr,
		store:   store,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(corsOpts.AllowedOrigins) == 0 {
		corsOpts.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/insights", s.handleInsights)
		r.Get("/history", s.handleHistory)
		r.Get("/documents", s.handleDocuments)
	})

	r.Get("/ws/query", s.handleQuerySocket)

	return r
}

// Router returns the chi router, used by tests and route registration.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured host and port.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("ragent server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
