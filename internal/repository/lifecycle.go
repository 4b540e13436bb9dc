package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/danafeld/bookshelf/internal/domain"
)

// Lifecycle coordination: a book and its rating record share one id and are
// created, renamed, and destroyed together. The paired writes run inside a
// single transaction so a failed rating write never leaves a book behind.

// CreateBookWithRating inserts a book and its empty rating record. The rating
// reuses the generated book id and the book's title; values start empty and
// the average at 0. A duplicate ISBN or rating title yields ErrDuplicate and
// nothing is stored.
func (r *Repository) CreateBookWithRating(ctx context.Context, params BookParams) (domain.Book, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Book{}, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
        INSERT INTO books (title, isbn, genre, authors, publisher, published_date)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING %s
    `, bookColumns)

	book, err := scanBook(tx.QueryRow(ctx, query,
		params.Title, params.ISBN, params.Genre, params.Authors, params.Publisher, params.PublishedDate))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Book{}, fmt.Errorf("create book %q: %w", params.ISBN, ErrDuplicate)
		}
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}

	if _, err := tx.Exec(ctx, insertRatingSQL, book.ID, book.Title, []int32{}, 0.0); err != nil {
		if isUniqueViolation(err) {
			return domain.Book{}, fmt.Errorf("create rating %q: %w", book.Title, ErrDuplicate)
		}
		return domain.Book{}, fmt.Errorf("create rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Book{}, fmt.Errorf("commit create: %w", err)
	}
	return book, nil
}

// ReplaceBook overwrites every book field and propagates the (possibly new)
// title to the denormalized copy on the rating record.
func (r *Repository) ReplaceBook(ctx context.Context, id string, params BookParams) (domain.Book, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Book{}, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
        UPDATE books
        SET title = $2, isbn = $3, genre = $4, authors = $5, publisher = $6,
            published_date = $7, updated_at = now()
        WHERE id::text = $1
        RETURNING %s
    `, bookColumns)

	book, err := scanBook(tx.QueryRow(ctx, query,
		id, params.Title, params.ISBN, params.Genre, params.Authors, params.Publisher, params.PublishedDate))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Book{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.Book{}, fmt.Errorf("replace book %q: %w", id, ErrDuplicate)
		}
		return domain.Book{}, fmt.Errorf("replace book: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE ratings SET title = $2, updated_at = now() WHERE id::text = $1`, id, params.Title)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Book{}, fmt.Errorf("propagate title %q: %w", params.Title, ErrDuplicate)
		}
		return domain.Book{}, fmt.Errorf("propagate title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Book{}, fmt.Errorf("replace book %q: %w", id, ErrInconsistent)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Book{}, fmt.Errorf("commit replace: %w", err)
	}
	return book, nil
}

// DeleteBookWithRating removes a book together with its rating record.
// A missing book yields ErrNotFound and nothing changes. A book whose rating
// record has gone missing is still deleted, and the lost linkage is surfaced
// as ErrInconsistent so the caller can alert on the integrity gap.
func (r *Repository) DeleteBookWithRating(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	ratingTag, err := tx.Exec(ctx, `DELETE FROM ratings WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}

	bookTag, err := tx.Exec(ctx, `DELETE FROM books WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if bookTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	if ratingTag.RowsAffected() == 0 {
		return fmt.Errorf("delete book %q: %w", id, ErrInconsistent)
	}
	return nil
}
