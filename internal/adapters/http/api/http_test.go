package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/okian/bookshelf/internal/adapters/http/api"
	"github.com/okian/bookshelf/internal/adapters/repository"
	"github.com/okian/bookshelf/internal/domain/book"
	"github.com/okian/bookshelf/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (f failingStore) Create(context.Context, book.Fields) (book.Book, error) { return book.Book{}, f.err }
func (f failingStore) List(context.Context) ([]book.Book, error)              { return nil, f.err }
func (f failingStore) Get(context.Context, int64) (book.Book, error)          { return book.Book{}, f.err }
func (f failingStore) Replace(context.Context, int64, book.Fields) (book.Book, error) {
	return book.Book{}, f.err
}
func (f failingStore) Patch(context.Context, int64, book.Fields) (book.Book, error) {
	return book.Book{}, f.err
}
func (f failingStore) Delete(context.Context, int64) error { return f.err }

// failingReader fails every read with err.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

type bookJSON struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ReleaseYear *int64 `json:"release_year"`
}

type errorJSON struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields"`
}

func newHandler(store api.BookStore, opts ...api.ServerOption) http.Handler {
	opts = append([]api.ServerOption{api.WithLogger(logger.Get())}, opts...)
	server := api.NewServer(store, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...)
	return server.Handler(context.Background())
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBook(w *httptest.ResponseRecorder) bookJSON {
	var b bookJSON
	So(json.Unmarshal(w.Body.Bytes(), &b), ShouldBeNil)
	return b
}

func decodeError(w *httptest.ResponseRecorder) errorJSON {
	var e errorJSON
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestBooksLifecycle(t *testing.T) {
	Convey("Given an API backed by an in-memory store", t, func() {
		store := repository.NewMemoryStore()
		h := newHandler(store)
		ctx := context.Background()

		Convey("When a book is created, patched and deleted", func() {
			before, err := store.Count(ctx)
			So(err, ShouldBeNil)

			w := do(h, http.MethodPost, "/books/", `{"title":"Some Book Title","author":"John Smith","release_year":2019}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			created := decodeBook(w)

			after, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(after, ShouldEqual, before+1)

			list, err := store.List(ctx)
			So(err, ShouldBeNil)
			So(list[len(list)-1].Title, ShouldEqual, "Some Book Title")

			path := fmt.Sprintf("/books/%d/", created.ID)
			w = do(h, http.MethodPatch, path, `{"title":"X"}`)
			So(w.Code, ShouldEqual, http.StatusOK)

			stored, err := store.Get(ctx, created.ID)
			So(err, ShouldBeNil)
			So(stored.Title, ShouldEqual, "X")
			So(stored.Author, ShouldEqual, "John Smith")
			So(*stored.ReleaseYear, ShouldEqual, 2019)

			w = do(h, http.MethodDelete, path, "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Body.Len(), ShouldEqual, 0)

			w = do(h, http.MethodGet, path, "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "not_found")
		})
	})
}

func TestBooksHandler_Create(t *testing.T) {
	Convey("Given an empty store", t, func() {
		h := newHandler(repository.NewMemoryStore())

		Convey("When creating a valid book", func() {
			w := do(h, http.MethodPost, "/books/", `{"title":"  Dune ","author":"Frank Herbert","release_year":1965,"id":99}`)

			Convey("Then it is returned trimmed with a server-assigned id", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				b := decodeBook(w)
				So(b.ID, ShouldEqual, 1)
				So(b.Title, ShouldEqual, "Dune")
				So(*b.ReleaseYear, ShouldEqual, 1965)
			})
		})

		Convey("When release_year is omitted", func() {
			w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A"}`)

			Convey("Then it is stored as null", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(w.Body.String(), ShouldContainSubstring, `"release_year":null`)
			})
		})

		Convey("When release_year is a numeric string", func() {
			w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A","release_year":"1999"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(*decodeBook(w).ReleaseYear, ShouldEqual, 1999)
		})

		Convey("When required fields are missing", func() {
			w := do(h, http.MethodPost, "/books/", `{}`)

			Convey("Then both are reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				e := decodeError(w)
				So(e.Code, ShouldEqual, "validation_error")
				So(e.Fields[book.FieldTitle], ShouldResemble, []string{book.MsgRequired})
				So(e.Fields[book.FieldAuthor], ShouldResemble, []string{book.MsgRequired})
			})
		})

		Convey("When the body is empty", func() {
			w := do(h, http.MethodPost, "/books/", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "validation_error")
		})

		Convey("When the title is too long", func() {
			body := fmt.Sprintf(`{"title":%q,"author":"A"}`, strings.Repeat("t", book.MaxTitleLength+1))
			w := do(h, http.MethodPost, "/books/", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Fields[book.FieldTitle][0], ShouldContainSubstring, "no more than 200 characters")
		})

		Convey("When the author is too long", func() {
			body := fmt.Sprintf(`{"title":"T","author":%q}`, strings.Repeat("a", book.MaxAuthorLength+1))
			w := do(h, http.MethodPost, "/books/", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Fields, ShouldContainKey, book.FieldAuthor)
		})

		Convey("When release_year is not an integer", func() {
			for _, v := range []string{`"soon"`, `19.5`, `true`, `[]`} {
				w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A","release_year":`+v+`}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Fields[book.FieldReleaseYear], ShouldResemble, []string{"A valid integer is required."})
			}
		})

		Convey("When release_year is above the 32-bit bound", func() {
			for _, v := range []string{`2147483648`, `99999999999`, `"99999999999"`, `1e30`, `99999999999999999999`} {
				w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A","release_year":`+v+`}`)

				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Fields[book.FieldReleaseYear], ShouldResemble,
					[]string{"Ensure this value is less than or equal to 2147483647."})
			}
		})

		Convey("When release_year is below the 32-bit bound", func() {
			for _, v := range []string{`-2147483649`, `"-99999999999"`} {
				w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A","release_year":`+v+`}`)

				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Fields[book.FieldReleaseYear], ShouldResemble,
					[]string{"Ensure this value is greater than or equal to -2147483648."})
			}
		})

		Convey("When release_year sits exactly on the bounds", func() {
			for _, year := range []int64{book.MaxReleaseYear, book.MinReleaseYear} {
				w := do(h, http.MethodPost, "/books/", fmt.Sprintf(`{"title":"T","author":"A","release_year":%d}`, year))

				So(w.Code, ShouldEqual, http.StatusCreated)
				So(*decodeBook(w).ReleaseYear, ShouldEqual, year)
			}
		})

		Convey("When title is not a string", func() {
			w := do(h, http.MethodPost, "/books/", `{"title":{"x":1},"author":"A"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Fields[book.FieldTitle], ShouldResemble, []string{"Not a valid string."})
		})

		Convey("When the body is malformed JSON", func() {
			w := do(h, http.MethodPost, "/books/", `{"title":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the body is not an object", func() {
			w := do(h, http.MethodPost, "/books/", `["T","A"]`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the body cannot be read", func() {
			req := httptest.NewRequest(http.MethodPost, "/books/", failingReader{err: errors.New("connection reset")})
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is a bad request naming the cause", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				e := decodeError(w)
				So(e.Code, ShouldEqual, "bad_request")
				So(e.Message, ShouldEqual, "bad request: connection reset")
			})
		})

		Convey("When the body exceeds the size limit", func() {
			small := newHandler(repository.NewMemoryStore(), api.WithMaxBodyBytes(16))
			w := do(small, http.MethodPost, "/books/", `{"title":"Some Book Title","author":"John Smith"}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(decodeError(w).Code, ShouldEqual, "request_too_large")
		})
	})
}

func TestBooksHandler_ListAndGet(t *testing.T) {
	Convey("Given a store seeded out of order", t, func() {
		year := int64(1954)
		store := repository.NewMemoryStore(repository.WithSeed([]book.Book{
			{ID: 3, Title: "C", Author: "Z"},
			{ID: 1, Title: "A", Author: "X", ReleaseYear: &year},
			{ID: 2, Title: "B", Author: "Y"},
		}))
		h := newHandler(store)

		Convey("When listing", func() {
			w := do(h, http.MethodGet, "/books/", "")

			Convey("Then books come back in ascending id order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var books []bookJSON
				So(json.Unmarshal(w.Body.Bytes(), &books), ShouldBeNil)
				So(books, ShouldHaveLength, 3)
				So(books[0].ID, ShouldEqual, 1)
				So(books[1].ID, ShouldEqual, 2)
				So(books[2].ID, ShouldEqual, 3)
			})
		})

		Convey("When getting an existing book", func() {
			w := do(h, http.MethodGet, "/books/1/", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			b := decodeBook(w)
			So(b.Title, ShouldEqual, "A")
			So(*b.ReleaseYear, ShouldEqual, 1954)
		})

		Convey("When getting with a non-numeric or non-positive id", func() {
			for _, id := range []string{"abc", "-1", "0", "+2", "1e3"} {
				w := do(h, http.MethodGet, "/books/"+id+"/", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
			}
		})

		Convey("When getting a missing id", func() {
			w := do(h, http.MethodGet, "/books/42/", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Message, ShouldEqual, "book 42 not found")
		})
	})

	Convey("Given an empty store", t, func() {
		w := do(newHandler(repository.NewMemoryStore()), http.MethodGet, "/books/", "")

		Convey("Then listing returns an empty array", func() {
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})
	})
}

func TestBooksHandler_ReplaceAndPatch(t *testing.T) {
	Convey("Given a stored book", t, func() {
		year := int64(2001)
		store := repository.NewMemoryStore(repository.WithSeed([]book.Book{
			{ID: 1, Title: "Old", Author: "Someone", ReleaseYear: &year},
		}))
		h := newHandler(store)

		Convey("When replacing without release_year", func() {
			w := do(h, http.MethodPut, "/books/1/", `{"title":"New","author":"Other"}`)

			Convey("Then every field is overwritten and release_year is cleared", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				b := decodeBook(w)
				So(b.ID, ShouldEqual, 1)
				So(b.Title, ShouldEqual, "New")
				So(b.Author, ShouldEqual, "Other")
				So(b.ReleaseYear, ShouldBeNil)
			})
		})

		Convey("When replacing with a missing author", func() {
			w := do(h, http.MethodPut, "/books/1/", `{"title":"New"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Fields[book.FieldAuthor], ShouldResemble, []string{book.MsgRequired})

			stored, err := store.Get(context.Background(), 1)
			So(err, ShouldBeNil)
			So(stored.Title, ShouldEqual, "Old")
		})

		Convey("When replacing a missing id with an invalid body", func() {
			w := do(h, http.MethodPut, "/books/9/", `{}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When patching with an empty object", func() {
			w := do(h, http.MethodPatch, "/books/1/", `{}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			b := decodeBook(w)
			So(b.Title, ShouldEqual, "Old")
			So(*b.ReleaseYear, ShouldEqual, 2001)
		})

		Convey("When patching release_year to null", func() {
			w := do(h, http.MethodPatch, "/books/1/", `{"release_year":null}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeBook(w).ReleaseYear, ShouldBeNil)
		})

		Convey("When patching with a blank author", func() {
			w := do(h, http.MethodPatch, "/books/1/", `{"author":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Fields[book.FieldAuthor], ShouldResemble, []string{book.MsgBlank})
		})

		Convey("When patching a missing id with an invalid body", func() {
			w := do(h, http.MethodPatch, "/books/9/", `{"title":""}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When deleting a missing id", func() {
			w := do(h, http.MethodDelete, "/books/9/", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When deleting twice", func() {
			So(do(h, http.MethodDelete, "/books/1/", "").Code, ShouldEqual, http.StatusNoContent)
			So(do(h, http.MethodDelete, "/books/1/", "").Code, ShouldEqual, http.StatusNotFound)

			Convey("Then the next create does not reuse the id", func() {
				w := do(h, http.MethodPost, "/books/", `{"title":"T","author":"A"}`)
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(decodeBook(w).ID, ShouldEqual, 2)
			})
		})
	})
}

func TestServer_Register(t *testing.T) {
	Convey("Given a wired server", t, func() {
		h := newHandler(repository.NewMemoryStore())

		Convey("Then health returns JSON ok", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"status":"ok"}`)
		})

		Convey("Then metrics are exposed", func() {
			do(h, http.MethodGet, "/books/", "")
			w := do(h, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then stats are served", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then an unsupported method is rejected", func() {
			So(do(h, http.MethodDelete, "/books/", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(h, http.MethodPost, "/books/1/", `{}`).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then unknown paths are not found", func() {
			So(do(h, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/books/1/extra/", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_StoreFailure(t *testing.T) {
	Convey("Given a store that always fails", t, func() {
		h := newHandler(failingStore{err: errors.New("disk on fire")})

		Convey("When any book route is called", func() {
			w := do(h, http.MethodGet, "/books/", "")

			Convey("Then a generic internal error is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				e := decodeError(w)
				So(e.Code, ShouldEqual, "internal_error")
				So(e.Message, ShouldNotContainSubstring, "disk on fire")
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a wired server", t, func() {
		h := newHandler(repository.NewMemoryStore())

		Convey("When no request id is sent", func() {
			w := do(h, http.MethodGet, "/books/", "")
			So(w.Header().Get(api.HeaderRequestID), ShouldNotBeEmpty)
		})

		Convey("When a request id is sent", func() {
			req := httptest.NewRequest(http.MethodGet, "/books/", nil)
			req.Header.Set(api.HeaderRequestID, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.HeaderRequestID), ShouldEqual, "abc-123")
		})
	})

	Convey("Given a server limited to one request", t, func() {
		h := newHandler(repository.NewMemoryStore(), api.WithRateLimit(0.001, 1))

		Convey("When the bucket is drained", func() {
			So(do(h, http.MethodGet, "/books/", "").Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodGet, "/books/", "")

			Convey("Then further requests are rejected", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w).Code, ShouldEqual, "rate_limited")
			})

			Convey("Then health checks still pass", func() {
				So(do(h, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestOpErrors(t *testing.T) {
	Convey("Given a classified error", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("op", api.ErrBadRequest, cause)

		Convey("Then both kind and cause are matched", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "bad request: boom")
		})

		Convey("Then kind-only and cause-only errors read naturally", func() {
			So(api.NewKind("op", api.ErrRateLimited).Error(), ShouldEqual, "rate limit exceeded")
			So(api.Wrap("op", cause).Error(), ShouldEqual, "boom")
			So(api.Wrap("op", nil), ShouldBeNil)
		})
	})
}
