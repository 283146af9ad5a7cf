package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	err := r.DB.QueryRow(ctx, `
		SELECT id, title, author, price_cents, stock, created_at, updated_at
		FROM books WHERE id = $1`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.PriceCents, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

func (r *Repo) BookExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("book exists: %w", err)
	}
	return ok, nil
}

func (r *Repo) DocumentExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("document exists: %w", err)
	}
	return ok, nil
}
