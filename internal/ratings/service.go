// Package ratings owns the score aggregation and top-books ranking logic.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danafeld/bookshelf/internal/domain"
	"github.com/danafeld/bookshelf/internal/repository"
)

// maxSubmitAttempts bounds the read-modify-write retry loop on concurrent
// submissions to the same rating id.
const maxSubmitAttempts = 5

// Store is the slice of the ratings repository the service depends on.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Rating, error)
	ListAll(ctx context.Context) ([]domain.Rating, error)
	UpdateValues(ctx context.Context, id string, values []int, average float64, expectedCount int) error
}

// Policy carries the ranking knobs. Both were hardcoded in the service this
// one replaced; they are policy choices, so they live in configuration.
type Policy struct {
	// TopCount is how many leading averages establish the cutoff.
	TopCount int
	// MinSamples is the number of submissions a rating needs before it is
	// considered statistically meaningful for ranking.
	MinSamples int
}

// DefaultPolicy mirrors the classic top-3-with-3-samples behaviour.
var DefaultPolicy = Policy{TopCount: 3, MinSamples: 3}

// Service implements score submission and the top-books query.
type Service struct {
	store  Store
	policy Policy
}

// NewService builds a Service. Zero policy fields fall back to DefaultPolicy.
func NewService(store Store, policy Policy) *Service {
	if policy.TopCount <= 0 {
		policy.TopCount = DefaultPolicy.TopCount
	}
	if policy.MinSamples <= 0 {
		policy.MinSamples = DefaultPolicy.MinSamples
	}
	return &Service{store: store, policy: policy}
}

// SubmitValue appends a score to the rating's value list and returns the
// recomputed average. The caller must have validated value against the
// allowed score set already. The conditional store write detects concurrent
// submissions to the same id; the loop re-reads and retries so no submission
// is silently dropped, and gives up with the store's conflict error once the
// record keeps moving under us.
func (s *Service) SubmitValue(ctx context.Context, id string, value int) (float64, error) {
	var lastErr error
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		rating, err := s.store.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}

		values := make([]int, 0, len(rating.Values)+1)
		values = append(values, rating.Values...)
		values = append(values, value)
		average := domain.Average(values)

		err = s.store.UpdateValues(ctx, id, values, average, len(rating.Values))
		if err == nil {
			return average, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("submit value for %q: %w", id, lastErr)
}

// Top returns the highest-rated books. Only ratings with at least MinSamples
// submissions qualify. The cutoff is the lowest average among the TopCount
// leading qualifiers, and every qualifier at or above the cutoff is included,
// so ties at the boundary can push the result past TopCount. The result is
// ordered by average descending, with ties in insertion order.
func (s *Service) Top(ctx context.Context) ([]domain.Rating, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	qualified := make([]domain.Rating, 0, len(all))
	for _, rating := range all {
		if len(rating.Values) >= s.policy.MinSamples {
			qualified = append(qualified, rating)
		}
	}
	if len(qualified) == 0 {
		return []domain.Rating{}, nil
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Average > qualified[j].Average
	})

	cut := s.policy.TopCount
	if cut > len(qualified) {
		cut = len(qualified)
	}
	minAvg := qualified[cut-1].Average

	end := cut
	for end < len(qualified) && qualified[end].Average >= minAvg {
		end++
	}
	return qualified[:end], nil
}
