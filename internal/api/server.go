package api

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/sql-escape-room/internal/catalog"
	"github.com/terra-clan/sql-escape-room/internal/config"
	"github.com/terra-clan/sql-escape-room/internal/sandbox"
	"github.com/terra-clan/sql-escape-room/internal/scores"
)

// Server represents the HTTP API server
type Server struct {
	config      *config.Config
	router      *chi.Mux
	catalog     *catalog.Catalog
	evaluator   *sandbox.Evaluator
	provisioner *sandbox.Provisioner
	scores      *scores.Service
	hub         *Hub
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	cat *catalog.Catalog,
	evaluator *sandbox.Evaluator,
	provisioner *sandbox.Provisioner,
	scoreService *scores.Service,
	hub *Hub,
) *Server {
	s := &Server{
		config:      cfg,
		catalog:     cat,
		evaluator:   evaluator,
		provisioner: provisioner,
		scores:      scoreService,
		hub:         hub,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// Game API
	r.Route("/api", func(r chi.Router) {
		r.Get("/question/{id}", s.handleGetQuestion)
		r.Post("/check", s.handleCheck)
		r.Get("/total", s.handleTotal)
		r.Post("/score", s.handleSubmitScore)
		r.Get("/leaderboard", s.handleLeaderboard)

		// Admin surface; disabled entirely without a configured token
		if s.config.Admin.Token != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin(s.config.Admin.Token))
				r.Post("/reload", s.handleReloadLevels)
				r.Get("/scores", s.handleListScores)
			})
		}
	})

	// Live scoreboard feed
	r.Get("/ws/scoreboard", s.hub.HandleScoreboardWS)

	// Browser game assets
	if dir := s.config.Static.Dir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		}
	}

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
