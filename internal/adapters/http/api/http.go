// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/bookshelf/internal/domain/book"
	"github.com/okian/bookshelf/pkg/logger"
	"github.com/okian/bookshelf/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// BookStore is the subset of the store used by the HTTP handlers.
type BookStore interface {
	Create(ctx context.Context, fields book.Fields) (book.Book, error)
	List(ctx context.Context) ([]book.Book, error)
	Get(ctx context.Context, id int64) (book.Book, error)
	Replace(ctx context.Context, id int64, fields book.Fields) (book.Book, error)
	Patch(ctx context.Context, id int64, fields book.Fields) (book.Book, error)
	Delete(ctx context.Context, id int64) error
}

// Server wires HTTP routes for the book API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	booksHandler  *BooksHandler

	rateLimit float64
	burst     int
	logger    logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxBodyBytes int64
	rateLimit    float64
	burst        int
	logger       logger.Logger
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithRateLimit enables a global token bucket of rps requests per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(c *serverConfig) {
		c.rateLimit = rps
		c.burst = burst
	}
}

// WithLogger sets the logger used by the handlers and middleware.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(store BookStore, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Named("api")
	}
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		booksHandler:  NewBooksHandler(store, cfg.maxBodyBytes, cfg.logger),
		rateLimit:     cfg.rateLimit,
		burst:         cfg.burst,
		logger:        cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /books/{$}", MetricsMiddleware(s.booksHandler.HandleList, "books"))
	mux.HandleFunc("POST /books/{$}", MetricsMiddleware(s.booksHandler.HandleCreate, "books"))
	mux.HandleFunc("GET /books/{id}/{$}", MetricsMiddleware(s.booksHandler.HandleGet, "book"))
	mux.HandleFunc("PUT /books/{id}/{$}", MetricsMiddleware(s.booksHandler.HandleReplace, "book"))
	mux.HandleFunc("PATCH /books/{id}/{$}", MetricsMiddleware(s.booksHandler.HandlePatch, "book"))
	mux.HandleFunc("DELETE /books/{id}/{$}", MetricsMiddleware(s.booksHandler.HandleDelete, "book"))
}

// Wrap applies the request-scoped middleware chain to h.
// Order, outermost first: request id, access log, rate limit.
func (s *Server) Wrap(h http.Handler) http.Handler {
	h = RateLimitMiddleware(h, s.rateLimit, s.burst)
	h = LoggingMiddleware(h, s.logger)
	return RequestIDMiddleware(h)
}

// Handler returns a fully wired handler for the API routes.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return s.Wrap(mux)
}

type errorResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
