// Package book contains the Book entity, its write fields and validation rules.
package book

import "strings"

// Field length bounds, counted in characters.
const (
	MaxTitleLength  = 200
	MaxAuthorLength = 100
)

// Release year bounds mirror a signed 32-bit integer column.
const (
	MinReleaseYear = -2147483648
	MaxReleaseYear = 2147483647
)

// Book is the single resource served by the API.
type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ReleaseYear *int64 `json:"release_year"`
}

// OptionalString tracks whether a string field was supplied and whether it was null.
type OptionalString struct {
	Set   bool
	Value *string
}

// OptionalInt tracks whether an integer field was supplied and whether it was null.
type OptionalInt struct {
	Set   bool
	Value *int64
}

// Fields is the write input for create, replace and patch.
type Fields struct {
	Title       OptionalString
	Author      OptionalString
	ReleaseYear OptionalInt

	// Malformed maps a field name to the message for a value that could not
	// be decoded (wrong JSON type). Validation reports these in place of the
	// field's own checks.
	Malformed map[string]string
}

// String returns a supplied, non-null string value.
func String(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// Int returns a supplied, non-null integer value.
func Int(v int64) OptionalInt {
	return OptionalInt{Set: true, Value: &v}
}

// Null returns a supplied null integer value.
func Null() OptionalInt {
	return OptionalInt{Set: true}
}

// Apply copies the supplied fields onto b. Fields must already be validated.
func (f Fields) Apply(b *Book) {
	if f.Title.Set && f.Title.Value != nil {
		b.Title = strings.TrimSpace(*f.Title.Value)
	}
	if f.Author.Set && f.Author.Value != nil {
		b.Author = strings.TrimSpace(*f.Author.Value)
	}
	if f.ReleaseYear.Set {
		b.ReleaseYear = copyInt(f.ReleaseYear.Value)
	}
}

// Replace builds a whole new Book from validated fields, keeping id.
// An absent release year becomes null.
func (f Fields) Replace(id int64) Book {
	b := Book{ID: id}
	f.Apply(&b)
	if !f.ReleaseYear.Set {
		b.ReleaseYear = nil
	}
	return b
}

// Clone returns a deep copy so callers never share the release year pointer.
func (b Book) Clone() Book {
	b.ReleaseYear = copyInt(b.ReleaseYear)
	return b
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
