package repository

import "github.com/okian/bookshelf/internal/domain/book"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeed preloads books, keeping their ids. The id counter starts after
// the highest seeded id.
func WithSeed(books []book.Book) Option {
	return func(s *MemoryStore) {
		for _, b := range books {
			if b.ID <= 0 {
				continue
			}
			s.books[b.ID] = b.Clone()
			if b.ID >= s.nextID {
				s.nextID = b.ID + 1
			}
		}
	}
}
