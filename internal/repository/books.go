package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danafeld/bookshelf/internal/domain"
)

// BooksRepository provides persistence helpers for book entities.
type BooksRepository struct {
	pool *pgxpool.Pool
}

const bookColumns = `
    id::text,
    title,
    isbn,
    genre,
    authors,
    publisher,
    published_date,
    created_at,
    updated_at
`

// BookParams bundles the fields required to create or replace a book.
type BookParams struct {
	Title         string
	ISBN          string
	Genre         string
	Authors       string
	Publisher     string
	PublishedDate string
}

// BookListFilters holds optional exact-match filters for List. A nil field
// is not applied.
type BookListFilters struct {
	ID            *string
	Title         *string
	ISBN          *string
	Genre         *string
	Authors       *string
	Publisher     *string
	PublishedDate *string
}

// GetByID fetches a book by its identifier.
func (r *BooksRepository) GetByID(ctx context.Context, id string) (domain.Book, error) {
	query := fmt.Sprintf(`SELECT %s FROM books WHERE id::text = $1`, bookColumns)
	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Book{}, ErrNotFound
		}
		return domain.Book{}, err
	}
	return book, nil
}

// List returns books matching every provided filter, oldest first.
func (r *BooksRepository) List(ctx context.Context, filters BookListFilters) ([]domain.Book, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("id::text", filters.ID)
	add("title", filters.Title)
	add("isbn", filters.ISBN)
	add("genre", filters.Genre)
	add("authors", filters.Authors)
	add("publisher", filters.Publisher)
	add("published_date", filters.PublishedDate)

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(bookColumns)
	queryBuilder.WriteString(" FROM books")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// ISBNExists reports whether any book already carries the given ISBN.
func (r *BooksRepository) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check isbn: %w", err)
	}
	return exists, nil
}

func scanBook(row pgx.Row) (domain.Book, error) {
	var (
		book      domain.Book
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.ISBN,
		&book.Genre,
		&book.Authors,
		&book.Publisher,
		&book.PublishedDate,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Book{}, err
	}
	book.CreatedAt = createdAt
	book.UpdatedAt = updatedAt
	return book, nil
}
