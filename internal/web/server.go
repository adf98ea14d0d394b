package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"medow/internal/logger"
	"medow/internal/search"
	"medow/pkg/models"
)

const (
	DefaultPort          = 8080
	DefaultRateLimit     = 60
	DefaultSessionMaxAge = 30 * time.Minute
)

type Server struct {
	config   models.ServerConfig
	sessions *sessionStore
	server   *http.Server
	log      zerolog.Logger
}

// NewServer creates a server whose sessions share one orchestrator
func NewServer(config models.ServerConfig, orchestrator *search.Orchestrator) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.RateLimit == 0 {
		config.RateLimit = DefaultRateLimit
	}
	if config.SessionMaxAge == 0 {
		config.SessionMaxAge = DefaultSessionMaxAge
	}
	return &Server{
		config:   config,
		sessions: newSessionStore(orchestrator, config.SessionMaxAge),
		log:      logger.WithComponent("web"),
	}
}

// Handler returns the routed API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.config.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.config.RateLimit, time.Minute))
		}
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/page/next", s.handleNext)
		r.Post("/page/previous", s.handlePrevious)
		r.Post("/page/reload", s.handleReload)
		r.Post("/page/{page}", s.handleGoToPage)
		r.Post("/items/select", s.handleSelectAll)
		r.Post("/items/{index}/select", s.handleSelect)
		r.Get("/selection", s.handleSelection)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Int("port", s.config.Port).Msg("starting web server")
	logger.Info("Access the API at: http://0.0.0.0:%d/api/status", s.config.Port)

	return s.server.ListenAndServe()
}

// Stop shuts the listener down and cancels every session's fetch
func (s *Server) Stop(ctx context.Context) error {
	defer s.sessions.closeAll()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("error encoding JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, NewErrorResponse(message))
}
