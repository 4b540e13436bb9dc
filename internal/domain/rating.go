package domain

import (
	"math"
	"time"
)

// Rating accumulates the score submissions for a single book. It shares its
// ID with the book and carries a denormalized copy of the book's title so
// rating reads never join against the books table. Average caches
// Average(Values) and is never set independently.
type Rating struct {
	ID        string
	Title     string
	Values    []int
	Average   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Average returns the arithmetic mean of values rounded to two decimal
// places, or 0 for an empty slice. Rounding is half-to-even to match the
// reference behaviour of the service this one replaced.
func Average(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	mean := float64(sum) / float64(len(values))
	return math.RoundToEven(mean*100) / 100
}
