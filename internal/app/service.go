// Package service owns the book store lifecycle and hands the store to the
// HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/bookshelf/internal/adapters/repository"
	"github.com/okian/bookshelf/internal/config"
	"github.com/okian/bookshelf/pkg/logger"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrUnknownStore = errors.New("unknown store kind")
)

// Service owns the configured book store.
type Service struct {
	mu sync.RWMutex

	store repository.Store

	// Configuration
	storeKind string
	sqliteDSN string
	seedFile  string
	memOpts   []repository.Option

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreKind selects the store backend (config.StoreMemory or config.StoreSQLite).
func WithStoreKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
	}
}

// WithSQLiteDSN sets the database used by the sqlite backend.
func WithSQLiteDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.sqliteDSN = dsn
		}
	}
}

// WithSeedFile preloads the in-memory store from a YAML seed file on Start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithMemoryOptions passes options to the in-memory store.
func WithMemoryOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.memOpts = append(s.memOpts, opts...)
	}
}

// WithStore uses a ready-made store instead of opening one on Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeKind: config.StoreMemory,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store. Calling Start on a started service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting book service...", logger.String("store", s.storeKind))

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}
	s.store = repository.Instrument(s.store)

	count, err := s.store.Count(ctx)
	if err != nil {
		_ = s.store.Close()
		s.store = nil
		return fmt.Errorf("count books: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "book service started", logger.Int("books", count))
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeKind {
	case config.StoreMemory:
		opts := s.memOpts
		if s.seedFile != "" {
			books, err := repository.LoadSeedFile(s.seedFile)
			if err != nil {
				return nil, err
			}
			s.logger.Info(ctx, "loaded seed file", logger.String("path", s.seedFile), logger.Int("books", len(books)))
			opts = append(opts[:len(opts):len(opts)], repository.WithSeed(books))
		}
		return repository.NewMemoryStore(opts...), nil
	case config.StoreSQLite:
		store, err := repository.NewSQLStore(ctx, s.sqliteDSN)
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "opened sqlite store", logger.String("dsn", s.sqliteDSN))
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, s.storeKind)
	}
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping book service...")

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
	}
	s.store = nil

	s.started = false
	s.logger.Info(ctx, "book service stopped")
}

// Store returns the running store, or ErrNotStarted.
func (s *Service) Store() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"store":   s.storeKind,
	}

	if s.started {
		// Count refreshes the books_total gauge through the instrumented store.
		if count, err := s.store.Count(context.Background()); err == nil {
			stats["totalBooks"] = count
		}
	}

	return stats
}

// RefreshMetrics updates gauges that are not driven by requests.
func (s *Service) RefreshMetrics(ctx context.Context) {
	store, err := s.Store()
	if err != nil {
		return
	}
	// Count updates the books_total gauge.
	_, _ = store.Count(ctx)
}
