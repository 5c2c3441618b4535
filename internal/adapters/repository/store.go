// Package repository defines the book store interface and its implementations.
package repository

import (
	"context"

	"github.com/okian/bookshelf/internal/domain/book"
)

// Store provides read/write access to book records keyed by id.
//
// Write operations validate their input and return a *book.ValidationError
// on bad fields. Operations on an unknown id return a *book.NotFoundError.
// Replace and Patch check existence before validating.
type Store interface {
	// Create validates a full set of fields and stores a new book with a fresh id.
	Create(ctx context.Context, fields book.Fields) (book.Book, error)

	// List returns every stored book ordered by ascending id.
	List(ctx context.Context) ([]book.Book, error)

	// Get returns the book with id.
	Get(ctx context.Context, id int64) (book.Book, error)

	// Replace overwrites every mutable field of the book with id.
	Replace(ctx context.Context, id int64, fields book.Fields) (book.Book, error)

	// Patch overwrites only the supplied fields of the book with id.
	Patch(ctx context.Context, id int64, fields book.Fields) (book.Book, error)

	// Delete removes the book with id. Its id is never handed out again.
	Delete(ctx context.Context, id int64) error

	// Count returns the number of stored books.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
