package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/danafeld/bookshelf/internal/domain"
	"github.com/danafeld/bookshelf/internal/metrics"
	"github.com/danafeld/bookshelf/internal/repository"
)

type valueRequest struct {
	Value int `json:"value" validate:"required,min=1,max=5"`
}

type valueResponse struct {
	Average float64 `json:"average"`
}

type ratingResponse struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Values  []int   `json:"values"`
	Average float64 `json:"average"`
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	for key := range query {
		if key != "id" {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("unknown query field %q", key))
			return
		}
	}

	if id := query.Get("id"); id != "" {
		s.respondRatingByID(w, r, id)
		return
	}

	all, err := s.repo.Ratings.ListAll(r.Context())
	if err != nil {
		s.logger.Printf("list ratings error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list ratings")
		return
	}

	items := make([]ratingResponse, 0, len(all))
	for _, rating := range all {
		items = append(items, toRatingResponse(rating))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	s.respondRatingByID(w, r, chi.URLParam(r, "id"))
}

func (s *Server) respondRatingByID(w http.ResponseWriter, r *http.Request, id string) {
	rating, err := s.repo.Ratings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
			return
		}
		s.logger.Printf("get rating error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch rating")
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func (s *Server) handleSubmitValue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req valueRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value must be one of {1, 2, 3, 4, 5}")
		return
	}

	average, err := s.ratings.SubmitValue(r.Context(), id, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		case errors.Is(err, repository.ErrConflict):
			s.respondError(w, http.StatusConflict, "CONFLICT", "Rating was modified concurrently, please retry")
		default:
			s.logger.Printf("submit value error: %v", err)
			s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit value")
		}
		return
	}

	metrics.RatingsSubmittedTotal.WithLabelValues(strconv.Itoa(req.Value)).Inc()
	s.respondJSON(w, http.StatusOK, valueResponse{Average: average})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	top, err := s.ratings.Top(r.Context())
	if err != nil {
		s.logger.Printf("top ratings error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute top books")
		return
	}

	items := make([]ratingResponse, 0, len(top))
	for _, rating := range top {
		items = append(items, toRatingResponse(rating))
	}
	s.respondJSON(w, http.StatusOK, items)
}

func toRatingResponse(rating domain.Rating) ratingResponse {
	values := rating.Values
	if values == nil {
		values = []int{}
	}
	return ratingResponse{
		ID:      rating.ID,
		Title:   rating.Title,
		Values:  values,
		Average: rating.Average,
	}
}
