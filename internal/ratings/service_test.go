package ratings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/danafeld/bookshelf/internal/domain"
	"github.com/danafeld/bookshelf/internal/repository"
)

// memStore is an in-memory Store for exercising the aggregation and ranking
// logic without a database. failUpdates makes the next N conditional writes
// report a conflict, simulating a concurrent submission.
type memStore struct {
	mu          sync.Mutex
	order       []string
	ratings     map[string]domain.Rating
	failUpdates int
}

func newMemStore() *memStore {
	return &memStore{ratings: make(map[string]domain.Rating)}
}

func (m *memStore) add(id, title string, values ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = append(m.order, id)
	m.ratings[id] = domain.Rating{
		ID:      id,
		Title:   title,
		Values:  values,
		Average: domain.Average(values),
	}
}

func (m *memStore) GetByID(_ context.Context, id string) (domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rating, ok := m.ratings[id]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	return rating, nil
}

func (m *memStore) ListAll(_ context.Context) ([]domain.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Rating, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.ratings[id])
	}
	return out, nil
}

func (m *memStore) UpdateValues(_ context.Context, id string, values []int, average float64, expectedCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rating, ok := m.ratings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if m.failUpdates > 0 {
		m.failUpdates--
		return repository.ErrConflict
	}
	if len(rating.Values) != expectedCount {
		return repository.ErrConflict
	}
	rating.Values = values
	rating.Average = average
	m.ratings[id] = rating
	return nil
}

func TestSubmitValueAverageProgression(t *testing.T) {
	store := newMemStore()
	store.add("b1", "Dune")
	svc := NewService(store, DefaultPolicy)
	ctx := context.Background()

	wantAverages := []float64{5, 4, 4, 3.75, 3.8}
	for i, value := range []int{5, 3, 4, 3, 4} {
		avg, err := svc.SubmitValue(ctx, "b1", value)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if avg != wantAverages[i] {
			t.Fatalf("average after %d submissions = %v, want %v", i+1, avg, wantAverages[i])
		}
	}

	rating, _ := store.GetByID(ctx, "b1")
	if len(rating.Values) != 5 {
		t.Fatalf("stored %d values, want 5", len(rating.Values))
	}
}

func TestSubmitValueNotFound(t *testing.T) {
	store := newMemStore()
	store.add("b1", "Dune", 4)
	svc := NewService(store, DefaultPolicy)

	if _, err := svc.SubmitValue(context.Background(), "missing", 5); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// The existing record must be untouched.
	rating, _ := store.GetByID(context.Background(), "b1")
	if len(rating.Values) != 1 || rating.Average != 4 {
		t.Fatalf("unrelated record changed: %+v", rating)
	}
}

func TestSubmitValueRetriesOnConflict(t *testing.T) {
	store := newMemStore()
	store.add("b1", "Dune", 2)
	store.failUpdates = 2
	svc := NewService(store, DefaultPolicy)

	avg, err := svc.SubmitValue(context.Background(), "b1", 4)
	if err != nil {
		t.Fatalf("submit with transient conflicts: %v", err)
	}
	if avg != 3 {
		t.Fatalf("average = %v, want 3", avg)
	}
}

func TestSubmitValueGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore()
	store.add("b1", "Dune")
	store.failUpdates = maxSubmitAttempts + 1
	svc := NewService(store, DefaultPolicy)

	if _, err := svc.SubmitValue(context.Background(), "b1", 4); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestTopQualificationBoundary(t *testing.T) {
	store := newMemStore()
	store.add("a", "Two Samples", 5, 5)
	store.add("b", "Three Samples", 1, 1, 1)
	svc := NewService(store, DefaultPolicy)

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].ID != "b" {
		t.Fatalf("top = %v, want only the three-sample rating", ids(top))
	}
}

func TestTopEmptyWhenNoQualifiers(t *testing.T) {
	store := newMemStore()
	store.add("a", "One", 5)
	store.add("b", "Two", 5, 5)
	svc := NewService(store, DefaultPolicy)

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 0 {
		t.Fatalf("top = %v, want empty", ids(top))
	}
}

func TestTopIncludesTiesAtCutoff(t *testing.T) {
	store := newMemStore()
	store.add("a", "A", 5, 5, 5)
	store.add("b", "B", 4, 4, 4)
	store.add("c", "C", 4, 4, 4)
	store.add("d", "D", 3, 3, 3)
	svc := NewService(store, DefaultPolicy)

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []string{"a", "b", "c"}
	if fmt.Sprint(ids(top)) != fmt.Sprint(want) {
		t.Fatalf("top = %v, want %v", ids(top), want)
	}
}

func TestTopGrowsPastCountOnBoundaryTie(t *testing.T) {
	store := newMemStore()
	store.add("a", "A", 5, 5, 5)
	store.add("b", "B", 4, 4, 4)
	store.add("c", "C", 3, 3, 3)
	store.add("d", "D", 3, 3, 3)
	svc := NewService(store, DefaultPolicy)

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if fmt.Sprint(ids(top)) != fmt.Sprint(want) {
		t.Fatalf("top = %v, want %v", ids(top), want)
	}
}

func TestTopAllIdenticalAverages(t *testing.T) {
	store := newMemStore()
	store.add("a", "A", 4, 4, 4)
	store.add("b", "B", 4, 4, 4)
	store.add("c", "C", 4, 4, 4)
	svc := NewService(store, DefaultPolicy)

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	want := []string{"a", "b", "c"}
	if fmt.Sprint(ids(top)) != fmt.Sprint(want) {
		t.Fatalf("top = %v, want %v (insertion order)", ids(top), want)
	}
}

func TestTopIdempotent(t *testing.T) {
	store := newMemStore()
	store.add("a", "A", 5, 4, 3)
	store.add("b", "B", 2, 3, 4)
	store.add("c", "C", 1, 2, 3)
	store.add("d", "D", 5, 5, 5)
	svc := NewService(store, DefaultPolicy)

	first, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("first top: %v", err)
	}
	second, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("second top: %v", err)
	}
	if fmt.Sprint(ids(first)) != fmt.Sprint(ids(second)) {
		t.Fatalf("top not idempotent: %v then %v", ids(first), ids(second))
	}
}

func TestTopHonoursPolicy(t *testing.T) {
	store := newMemStore()
	store.add("a", "A", 5, 5)
	store.add("b", "B", 4, 4)
	store.add("c", "C", 3, 3)
	svc := NewService(store, Policy{TopCount: 1, MinSamples: 2})

	top, err := svc.Top(context.Background())
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].ID != "a" {
		t.Fatalf("top = %v, want only A", ids(top))
	}
}

func ids(ratings []domain.Rating) []string {
	out := make([]string, len(ratings))
	for i, r := range ratings {
		out[i] = r.ID
	}
	return out
}
