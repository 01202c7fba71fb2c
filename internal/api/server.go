// Package api exposes the planning pipeline over HTTP: submit a
// planning job and poll its status.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mutaplan/mutaplan/internal/db"
	"github.com/mutaplan/mutaplan/internal/jobs"
)

// Server is the HTTP API in front of the planning pipeline.
type Server struct {
	pipeline *jobs.Pipeline
	jobRepo  *jobs.Repository
	database *db.DB
	router   *chi.Mux
}

// NewServer creates a new API server. pipeline and jobRepo may be nil
// in which case the affected endpoints respond with 503. database is
// optional; when set, /ready pings it instead of only checking that a
// repository was wired up.
func NewServer(pipeline *jobs.Pipeline, jobRepo *jobs.Repository, database *db.DB) *Server {
	s := &Server{
		pipeline: pipeline,
		jobRepo:  jobRepo,
		database: database,
		router:   chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Post("/", s.createPlan)
			r.Get("/{jobID}", s.getPlan)
		})
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job repository not configured")
		return
	}

	if s.database != nil {
		if err := s.database.HealthCheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		stat := s.database.Stats()
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":         "ready",
			"acquired_conns": stat.AcquiredConns(),
			"idle_conns":     stat.IdleConns(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
