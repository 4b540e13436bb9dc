package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/danafeld/bookshelf/internal/booklookup"
	"github.com/danafeld/bookshelf/internal/domain"
	"github.com/danafeld/bookshelf/internal/metrics"
	"github.com/danafeld/bookshelf/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "oneof" cannot express "Science Fiction" because of the embedded
	// space, so genre membership gets its own tag.
	_ = v.RegisterValidation("genre", func(fl validator.FieldLevel) bool {
		return domain.ValidGenre(fl.Field().String())
	})
	return v
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type bookCreateRequest struct {
	Title string `json:"title" validate:"required"`
	ISBN  string `json:"ISBN" validate:"required,len=13,number"`
	Genre string `json:"genre" validate:"required,genre"`
}

type bookUpdateRequest struct {
	ID            string `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	ISBN          string `json:"ISBN" validate:"required,len=13,number"`
	Genre         string `json:"genre" validate:"required,genre"`
	Authors       string `json:"authors" validate:"required"`
	Publisher     string `json:"publisher" validate:"required"`
	PublishedDate string `json:"publishedDate" validate:"required"`
}

type bookResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ISBN          string `json:"ISBN"`
	Genre         string `json:"genre"`
	Authors       string `json:"authors"`
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"publishedDate"`
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationMessage(err))
		return
	}

	meta := s.lookupMetadata(r.Context(), req.ISBN)
	if meta == nil {
		s.respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Unable to reach the book lookup service")
		return
	}

	book, err := s.repo.CreateBookWithRating(r.Context(), repository.BookParams{
		Title:         req.Title,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		Authors:       meta.Authors,
		Publisher:     meta.Publisher,
		PublishedDate: meta.PublishedDate,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "A book with this ISBN or title already exists")
			return
		}
		s.logger.Printf("create book error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create book")
		return
	}

	metrics.BooksCreatedTotal.Inc()
	w.Header().Set("Location", fmt.Sprintf("/books/%s", url.PathEscape(book.ID)))
	s.respondJSON(w, http.StatusCreated, toBookResponse(book))
}

// lookupMetadata fetches enrichment fields for an ISBN. An upstream record
// that simply does not exist degrades to "missing" placeholders; only a
// transport-level failure returns nil.
func (s *Server) lookupMetadata(ctx context.Context, isbn string) *booklookup.Result {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.LookupTimeoutSecs)*time.Second)
	defer cancel()

	result, err := s.lookup.Fetch(ctx, isbn)
	if err != nil {
		if errors.Is(err, booklookup.ErrNotFound) {
			return &booklookup.Result{
				Authors:       booklookup.MissingField,
				Publisher:     booklookup.MissingField,
				PublishedDate: booklookup.MissingField,
			}
		}
		s.logger.Printf("booklookup fetch failed for %s: %v", isbn, err)
		return nil
	}
	return result
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	filters, err := buildBookFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		return
	}

	books, err := s.repo.Books.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("list books error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list books")
		return
	}

	items := make([]bookResponse, 0, len(books))
	for _, book := range books {
		items = append(items, toBookResponse(book))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func buildBookFilters(query url.Values) (repository.BookListFilters, error) {
	var filters repository.BookListFilters

	assign := map[string]**string{
		"id":            &filters.ID,
		"title":         &filters.Title,
		"ISBN":          &filters.ISBN,
		"genre":         &filters.Genre,
		"authors":       &filters.Authors,
		"publisher":     &filters.Publisher,
		"publishedDate": &filters.PublishedDate,
	}

	for key := range query {
		target, ok := assign[key]
		if !ok {
			return filters, fmt.Errorf("unknown query field %q", key)
		}
		value := query.Get(key)
		*target = &value
	}

	if filters.Genre != nil && !domain.ValidGenre(*filters.Genre) {
		return filters, fmt.Errorf("unsupported genre %q", *filters.Genre)
	}
	if filters.ISBN != nil && !validISBN(*filters.ISBN) {
		return filters, fmt.Errorf("ISBN must be exactly 13 digits")
	}
	return filters, nil
}

func validISBN(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	for _, c := range isbn {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	book, err := s.repo.Books.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("get book error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch book")
		return
	}
	s.respondJSON(w, http.StatusOK, toBookResponse(book))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req bookUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationMessage(err))
		return
	}

	book, err := s.repo.ReplaceBook(r.Context(), id, repository.BookParams{
		Title:         strings.TrimSpace(req.Title),
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		Authors:       req.Authors,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		case errors.Is(err, repository.ErrDuplicate):
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "A book with this ISBN or title already exists")
		case errors.Is(err, repository.ErrInconsistent):
			s.respondError(w, http.StatusInternalServerError, "INCONSISTENT_STATE", "Book and rating records are out of sync")
		default:
			s.logger.Printf("update book error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update book")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, toBookResponse(book))
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.DeleteBookWithRating(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		case errors.Is(err, repository.ErrInconsistent):
			s.respondError(w, http.StatusInternalServerError, "INCONSISTENT_STATE", "Book deleted but its rating record was already gone")
		default:
			s.logger.Printf("delete book error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete book")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

func toBookResponse(book domain.Book) bookResponse {
	return bookResponse{
		ID:            book.ID,
		Title:         book.Title,
		ISBN:          book.ISBN,
		Genre:         book.Genre,
		Authors:       book.Authors,
		Publisher:     book.Publisher,
		PublishedDate: book.PublishedDate,
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errUnsupportedMedia
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

var errUnsupportedMedia = errors.New("unsupported media type")

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.Is(err, errUnsupportedMedia):
		s.respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Request body must be JSON")
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	case strings.Contains(err.Error(), "unknown field"):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body contains an unknown field")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		switch first.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", first.Field())
		case "len", "number":
			return fmt.Sprintf("%s must be exactly 13 digits", first.Field())
		case "genre":
			return fmt.Sprintf("unsupported genre, must be one of: %s", strings.Join(domain.Genres, ", "))
		}
		return fmt.Sprintf("invalid value for %s", first.Field())
	}
	return "invalid request payload"
}
