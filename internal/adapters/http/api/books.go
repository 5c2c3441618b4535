package api

import (
	"errors"
	"net/http"

	"github.com/okian/bookshelf/internal/domain/book"
	"github.com/okian/bookshelf/pkg/logger"
)

// BooksHandler serves the /books collection and item routes.
type BooksHandler struct {
	store    BookStore
	maxBytes int64
	logger   logger.Logger
}

// NewBooksHandler creates a books handler backed by store.
func NewBooksHandler(store BookStore, maxBytes int64, l logger.Logger) *BooksHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	if l == nil {
		l = logger.Named("api")
	}
	return &BooksHandler{store: store, maxBytes: maxBytes, logger: l}
}

// HandleList handles GET /books/.
func (h *BooksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_books"
	books, err := h.store.List(r.Context())
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponses(books))
}

// HandleCreate handles POST /books/.
func (h *BooksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_book"
	fields, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	b, err := h.store.Create(r.Context(), fields)
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(b))
}

// HandleGet handles GET /books/{id}/.
func (h *BooksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_book"
	id, ok := h.id(w, r, op)
	if !ok {
		return
	}
	b, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(b))
}

// HandleReplace handles PUT /books/{id}/.
func (h *BooksHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_book"
	id, ok := h.id(w, r, op)
	if !ok {
		return
	}
	fields, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	b, err := h.store.Replace(r.Context(), id, fields)
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(b))
}

// HandlePatch handles PATCH /books/{id}/.
func (h *BooksHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.patch_book"
	id, ok := h.id(w, r, op)
	if !ok {
		return
	}
	fields, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	b, err := h.store.Patch(r.Context(), id, fields)
	if err != nil {
		h.storeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(b))
}

// HandleDelete handles DELETE /books/{id}/.
func (h *BooksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_book"
	id, ok := h.id(w, r, op)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BooksHandler) id(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, book.ErrNotFound, err))
		return 0, false
	}
	return id, true
}

func (h *BooksHandler) decode(w http.ResponseWriter, r *http.Request, op string) (book.Fields, bool) {
	fields, err := decodeFields(w, r, h.maxBytes)
	switch {
	case err == nil:
		return fields, true
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request_too_large", NewKind(op, ErrBodyTooLarge))
	case errors.Is(err, ErrExpectedObject):
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrExpectedObject))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	}
	return book.Fields{}, false
}

// storeError maps a store error onto the response.
func (h *BooksHandler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *book.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "validation_error",
			Message: book.ErrValidation.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, book.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		h.logger.Error(r.Context(), "store operation failed",
			logger.String("op", op),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrStoreFailure))
	}
}
