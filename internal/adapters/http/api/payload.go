package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/bookshelf/internal/domain/book"
)

// Messages for values of the wrong JSON type.
const (
	msgInvalidString  = "Not a valid string."
	msgInvalidInteger = "A valid integer is required."
)

// bookResponse is the wire shape of a Book.
type bookResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ReleaseYear *int64 `json:"release_year"`
}

func toResponse(b book.Book) bookResponse {
	return bookResponse{ID: b.ID, Title: b.Title, Author: b.Author, ReleaseYear: b.ReleaseYear}
}

func toResponses(books []book.Book) []bookResponse {
	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toResponse(b))
	}
	return out
}

// decodeFields reads a JSON object body into book.Fields.
//
// An empty body is an empty object. Keys other than title, author and
// release_year are ignored, including id. Values of the wrong type are
// recorded in Fields.Malformed so they surface as validation errors.
func decodeFields(w http.ResponseWriter, r *http.Request, maxBytes int64) (book.Fields, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return book.Fields{}, ErrBodyTooLarge
		}
		return book.Fields{}, Wrap("api.read_body", err)
	}

	raw := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return book.Fields{}, errors.Join(ErrMalformedJSON, err)
		}
		if dec.More() {
			return book.Fields{}, ErrMalformedJSON
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return book.Fields{}, ErrExpectedObject
		}
		raw = obj
	}

	var f book.Fields
	if v, ok := raw[book.FieldTitle]; ok {
		f.Title = decodeString(&f, book.FieldTitle, v)
	}
	if v, ok := raw[book.FieldAuthor]; ok {
		f.Author = decodeString(&f, book.FieldAuthor, v)
	}
	if v, ok := raw[book.FieldReleaseYear]; ok {
		f.ReleaseYear = decodeInt(&f, book.FieldReleaseYear, v)
	}
	return f, nil
}

func markMalformed(f *book.Fields, name, msg string) {
	if f.Malformed == nil {
		f.Malformed = make(map[string]string)
	}
	f.Malformed[name] = msg
}

// decodeString accepts strings and numbers; numbers keep their literal text.
func decodeString(f *book.Fields, name string, v any) book.OptionalString {
	switch t := v.(type) {
	case nil:
		return book.OptionalString{Set: true}
	case string:
		return book.String(t)
	case json.Number:
		return book.String(t.String())
	default:
		markMalformed(f, name, msgInvalidString)
		return book.OptionalString{}
	}
}

// decodeInt accepts integral numbers and numeric strings such as "2019" or "2019.0".
func decodeInt(f *book.Fields, name string, v any) book.OptionalInt {
	var text string
	switch t := v.(type) {
	case nil:
		return book.Null()
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		markMalformed(f, name, msgInvalidInteger)
		return book.OptionalInt{}
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return book.Int(n)
	}
	x, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
		markMalformed(f, name, msgInvalidInteger)
		return book.OptionalInt{}
	}
	// Saturate so the bound check still rejects values beyond int64.
	switch {
	case x >= math.MaxInt64:
		return book.Int(math.MaxInt64)
	case x <= math.MinInt64:
		return book.Int(math.MinInt64)
	}
	return book.Int(int64(x))
}
