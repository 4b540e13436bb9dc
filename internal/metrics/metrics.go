package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BooksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookshelf_books_created_total",
			Help: "Total number of books created",
		},
	)

	RatingsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_ratings_submitted_total",
			Help: "Total number of rating values submitted",
		},
		[]string{"value"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)
