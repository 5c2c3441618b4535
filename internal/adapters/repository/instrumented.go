package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/bookshelf/internal/domain/book"
	"github.com/okian/bookshelf/pkg/metrics"
)

// Operation results used as the "result" metric label.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// instrumentedStore records per-operation metrics around another Store.
type instrumentedStore struct {
	next Store
}

// Instrument wraps s so every operation records a count and latency.
func Instrument(s Store) Store {
	if _, ok := s.(*instrumentedStore); ok {
		return s
	}
	return &instrumentedStore{next: s}
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(op, resultOf(err), float64(time.Since(start).Microseconds())/1000)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, book.ErrNotFound):
		return resultNotFound
	case errors.Is(err, book.ErrValidation):
		return resultInvalid
	default:
		return resultError
	}
}

func (s *instrumentedStore) Create(ctx context.Context, fields book.Fields) (book.Book, error) {
	start := time.Now()
	b, err := s.next.Create(ctx, fields)
	observe("create", start, err)
	if err == nil {
		metrics.RecordBookCreated()
	}
	return b, err
}

func (s *instrumentedStore) List(ctx context.Context) ([]book.Book, error) {
	start := time.Now()
	books, err := s.next.List(ctx)
	observe("list", start, err)
	return books, err
}

func (s *instrumentedStore) Get(ctx context.Context, id int64) (book.Book, error) {
	start := time.Now()
	b, err := s.next.Get(ctx, id)
	observe("get", start, err)
	return b, err
}

func (s *instrumentedStore) Replace(ctx context.Context, id int64, fields book.Fields) (book.Book, error) {
	start := time.Now()
	b, err := s.next.Replace(ctx, id, fields)
	observe("replace", start, err)
	return b, err
}

func (s *instrumentedStore) Patch(ctx context.Context, id int64, fields book.Fields) (book.Book, error) {
	start := time.Now()
	b, err := s.next.Patch(ctx, id, fields)
	observe("patch", start, err)
	return b, err
}

func (s *instrumentedStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	observe("delete", start, err)
	if err == nil {
		metrics.RecordBookDeleted()
	}
	return err
}

func (s *instrumentedStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	observe("count", start, err)
	if err == nil {
		metrics.UpdateBooksTotal(n)
	}
	return n, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
