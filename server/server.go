// Package server provides the HTTP API for ragdesk.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hupe1980/ragdesk"
	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/memory"
	"github.com/hupe1980/ragdesk/orchestrator"
	"github.com/hupe1980/ragdesk/session"
	"github.com/hupe1980/ragdesk/ticket"
)

// requestTimeout bounds a single HTTP request. A turn may spend two
// generation passes, each with a retry.
const requestTimeout = 5 * time.Minute

// Desk is the subset of *ragdesk.Desk the API serves.
type Desk interface {
	NewSession(id string) *session.Session
	Session(id string) (*session.Session, error)
	DeleteSession(id string)
	Ask(ctx context.Context, sessionID, utterance string) (*orchestrator.Bundle, error)
	History(sessionID string, max int) ([]memory.Turn, error)
	Reset(sessionID string) error
	SetThreshold(sessionID string, t float64) error
	RelevantArticles(ctx context.Context, query string, k int) ([]ragdesk.ArticlePreview, error)
	RebuildIndex(ctx context.Context) (ragdesk.IndexInfo, error)
	Index() (ragdesk.IndexInfo, bool)
	Ticket(ctx context.Context, id string) (*ticket.Ticket, error)
}

// Server is the HTTP server for the ragdesk API.
type Server struct {
	desk   Desk
	config config.ServerConfig
	logger logging.Logger
	server *http.Server
}

// New creates a server with the given dependencies.
func New(desk Desk, cfg config.ServerConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	s := &Server{desk: desk, config: cfg, logger: logger}
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Post("/messages", s.handleMessage)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleReset)
			r.Put("/threshold", s.handleThreshold)
		})
		r.Get("/articles", s.handleArticles)
		r.Get("/tickets/{id}", s.handleTicket)
		r.Get("/index", s.handleIndex)
		r.Post("/index/rebuild", s.handleRebuild)
	})
	r.Get("/health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
	})
	return c.Handler(r)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("server.start", "addr", s.config.Addr())
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
