package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/bookshelf/internal/domain/book"
)

// MemoryStore is an in-memory Store.
//
// Every operation runs under one lock for its whole read-modify-write, so
// each operation is atomic with respect to the record it touches. Ids come
// from a counter that only grows; deleted ids are never reissued.
type MemoryStore struct {
	mu     sync.RWMutex
	books  map[int64]book.Book
	nextID int64
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		books:  make(map[int64]book.Book),
		nextID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, fields book.Fields) (book.Book, error) {
	if err := book.ValidateCreate(fields); err != nil {
		return book.Book{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return book.Book{}, ErrClosed
	}

	b := fields.Replace(s.nextID)
	s.nextID++
	s.books[b.ID] = b
	return b.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]book.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return book.Book{}, ErrClosed
	}

	b, ok := s.books[id]
	if !ok {
		return book.Book{}, book.NotFound(id)
	}
	return b.Clone(), nil
}

func (s *MemoryStore) Replace(_ context.Context, id int64, fields book.Fields) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return book.Book{}, ErrClosed
	}

	if _, ok := s.books[id]; !ok {
		return book.Book{}, book.NotFound(id)
	}
	if err := book.ValidateCreate(fields); err != nil {
		return book.Book{}, err
	}

	b := fields.Replace(id)
	s.books[id] = b
	return b.Clone(), nil
}

func (s *MemoryStore) Patch(_ context.Context, id int64, fields book.Fields) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return book.Book{}, ErrClosed
	}

	b, ok := s.books[id]
	if !ok {
		return book.Book{}, book.NotFound(id)
	}
	if err := book.ValidatePatch(fields); err != nil {
		return book.Book{}, err
	}

	fields.Apply(&b)
	s.books[id] = b
	return b.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.books[id]; !ok {
		return book.NotFound(id)
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	return len(s.books), nil
}

// Close drops all records. Later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.books = nil
	return nil
}
