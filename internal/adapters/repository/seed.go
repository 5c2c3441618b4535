package repository

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/bookshelf/internal/domain/book"
)

// seedEntry is one book in a seed file.
type seedEntry struct {
	ID          int64   `koanf:"id"`
	Title       *string `koanf:"title"`
	Author      *string `koanf:"author"`
	ReleaseYear *int64  `koanf:"release_year"`
}

func (e seedEntry) fields() book.Fields {
	f := book.Fields{
		Title:  book.OptionalString{Set: e.Title != nil, Value: e.Title},
		Author: book.OptionalString{Set: e.Author != nil, Value: e.Author},
	}
	if e.ReleaseYear != nil {
		f.ReleaseYear = book.Int(*e.ReleaseYear)
	}
	return f
}

// LoadSeedFile reads books from a YAML file of the form
//
//	books:
//	  - id: 1
//	    title: Introducing Go
//	    author: Caleb Doxsey
//	    release_year: 2016
//
// Every entry must pass create validation. Entries without an id are
// numbered after the highest explicit id, in file order.
func LoadSeedFile(path string) ([]book.Book, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}

	var entries []seedEntry
	if err := k.UnmarshalWithConf("books", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}

	seen := make(map[int64]bool, len(entries))
	var maxID int64
	for i, e := range entries {
		if e.ID < 0 {
			return nil, fmt.Errorf("%w: entry %d: negative id %d", ErrSeed, i, e.ID)
		}
		if e.ID == 0 {
			continue
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: entry %d: duplicate id %d", ErrSeed, i, e.ID)
		}
		seen[e.ID] = true
		maxID = max(maxID, e.ID)
	}

	books := make([]book.Book, 0, len(entries))
	for i, e := range entries {
		f := e.fields()
		if err := book.ValidateCreate(f); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrSeed, i, err)
		}
		id := e.ID
		if id == 0 {
			maxID++
			id = maxID
		}
		books = append(books, f.Replace(id))
	}
	return books, nil
}
