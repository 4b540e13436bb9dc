package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danafeld/bookshelf/internal/store"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicate indicates an insert collided with an existing row
// (book ISBN or rating title).
var ErrDuplicate = errors.New("repository: duplicate")

// ErrConflict indicates a conditional write changed no rows even though the
// target record still exists, i.e. it was modified concurrently.
var ErrConflict = errors.New("repository: concurrent modification")

// ErrInconsistent indicates the book and rating records for one id are out
// of sync and a coordinated operation could not complete.
var ErrInconsistent = errors.New("repository: book and rating records out of sync")

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Books   *BooksRepository
	Ratings *RatingsRepository

	pool *pgxpool.Pool
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Books:   &BooksRepository{pool: pool},
		Ratings: &RatingsRepository{pool: pool},
		pool:    pool,
	}
}
