package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nigersavoir/savoir-api/internal/catalog"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgxTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgxTx struct{ tx pgx.Tx }

func (t *pgxTx) BookForUpdate(ctx context.Context, bookID int64) (*catalog.Book, error) {
	var b catalog.Book
	err := t.tx.QueryRow(ctx, `
		SELECT id, title, author, price_cents, stock, created_at, updated_at
		FROM books WHERE id = $1
		FOR UPDATE`, bookID).
		Scan(&b.ID, &b.Title, &b.Author, &b.PriceCents, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", bookID, catalog.ErrBookNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lock book: %w", err)
	}
	return &b, nil
}

func (t *pgxTx) DecrementStock(ctx context.Context, bookID int64, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE books SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`, bookID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("decrement stock for book %d: insufficient stock", bookID)
	}
	return nil
}

func (t *pgxTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.UserID, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *pgxTx) InsertItems(ctx context.Context, orderID string, items []OrderItem) error {
	for _, it := range items {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO order_items (order_id, book_id, quantity, unit_price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			orderID, it.BookID, it.Quantity, it.UnitPriceCents, it.LineTotalCents)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *Repo) OrdersByUser(ctx context.Context, userID int64) ([]OrderSummary, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, status, total_cents, created_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	byID := map[string]*OrderSummary{}
	var ids []string
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalCents, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Items = []ItemSummary{}
		byID[o.ID] = &o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []OrderSummary{}, nil
	}

	itemRows, err := r.DB.Query(ctx, `
		SELECT oi.order_id, oi.book_id, b.title, b.author,
		       oi.quantity, oi.unit_price_cents, oi.line_total_cents
		FROM order_items oi
		JOIN books b ON b.id = oi.book_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var it ItemSummary
		if err := itemRows.Scan(&orderID, &it.BookID, &it.Title, &it.Author,
			&it.Quantity, &it.UnitPriceCents, &it.LineTotalCents); err != nil {
			return nil, err
		}
		byID[orderID].Items = append(byID[orderID].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	out := make([]OrderSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out, nil
}
