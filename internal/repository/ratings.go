package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danafeld/bookshelf/internal/domain"
)

// RatingsRepository persists the per-book rating records.
type RatingsRepository struct {
	pool *pgxpool.Pool
}

const ratingColumns = `
    id::text,
    title,
    "values",
    average,
    created_at,
    updated_at
`

const insertRatingSQL = `
    INSERT INTO ratings (id, title, "values", average)
    VALUES ($1::uuid, $2, $3, $4)
`

// Insert stores a new rating record under rating.ID. A rating whose title is
// already present yields ErrDuplicate and leaves the store unchanged.
func (r *RatingsRepository) Insert(ctx context.Context, rating domain.Rating) error {
	_, err := r.pool.Exec(ctx, insertRatingSQL, rating.ID, rating.Title, toStoredValues(rating.Values), rating.Average)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert rating %q: %w", rating.Title, ErrDuplicate)
		}
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

// GetByID fetches a rating by its identifier.
func (r *RatingsRepository) GetByID(ctx context.Context, id string) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE id::text = $1`, ratingColumns)
	rating, err := scanRating(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Rating{}, ErrNotFound
		}
		return domain.Rating{}, err
	}
	return rating, nil
}

// Delete removes a rating record.
func (r *RatingsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ratings WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every rating record in insertion order, which keeps the
// ranker's stable tie-breaking reproducible.
func (r *RatingsRepository) ListAll(ctx context.Context) ([]domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings ORDER BY created_at ASC, id ASC`, ratingColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

// UpdateValues replaces a rating's values and cached average, but only if the
// record still holds expectedCount values. A record modified in between
// yields ErrConflict so the caller can re-read and retry; a record that no
// longer exists yields ErrNotFound.
func (r *RatingsRepository) UpdateValues(ctx context.Context, id string, values []int, average float64, expectedCount int) error {
	const query = `
        UPDATE ratings
        SET "values" = $2, average = $3, updated_at = now()
        WHERE id::text = $1 AND cardinality("values") = $4
    `
	tag, err := r.pool.Exec(ctx, query, id, toStoredValues(values), average, expectedCount)
	if err != nil {
		return fmt.Errorf("update rating values: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE id::text = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("update rating values: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var (
		rating    domain.Rating
		stored    []int32
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&rating.ID,
		&rating.Title,
		&stored,
		&rating.Average,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	rating.Values = fromStoredValues(stored)
	rating.CreatedAt = createdAt
	rating.UpdatedAt = updatedAt
	return rating, nil
}

func toStoredValues(values []int) []int32 {
	stored := make([]int32, len(values))
	for i, v := range values {
		stored[i] = int32(v)
	}
	return stored
}

func fromStoredValues(stored []int32) []int {
	values := make([]int, len(stored))
	for i, v := range stored {
		values[i] = int(v)
	}
	return values
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
