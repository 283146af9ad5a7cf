package market

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/catalog"
	"github.com/nigersavoir/savoir-api/internal/identity"
)

// Store is the transactional boundary for order persistence. Every mutation
// of an order and its stock happens inside a single InTx call.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	OrdersByUser(ctx context.Context, userID int64) ([]OrderSummary, error)
}

// Tx exposes the statements available inside an order transaction.
// BookForUpdate must lock the book row until the transaction ends, and
// DecrementStock must be conditional (stock >= qty) even though the caller
// already checked under the lock.
type Tx interface {
	BookForUpdate(ctx context.Context, bookID int64) (*catalog.Book, error)
	DecrementStock(ctx context.Context, bookID int64, qty int) error
	InsertOrder(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderID string, items []OrderItem) error
}

type Service struct {
	Users  identity.Resolver
	Store  Store
	Logger *zap.Logger
}

// CreateOrder validates and persists an order in one transaction. Items are
// processed strictly in the submitted sequence: each stock decrement is
// visible to the stock check of the next item in the same call. Any failure
// rolls back everything, leaving no partial decrement and no order row.
func (s *Service) CreateOrder(ctx context.Context, email string, items []ItemInput) (*OrderSummary, error) {
	user, err := s.Users.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	order := &Order{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	summaryItems := make([]ItemSummary, 0, len(items))

	err = s.Store.InTx(ctx, func(tx Tx) error {
		for _, it := range items {
			if it.Quantity <= 0 {
				return &InvalidItemError{BookID: it.BookID, Quantity: it.Quantity}
			}

			book, err := tx.BookForUpdate(ctx, it.BookID)
			if err != nil {
				return err
			}
			if book.Stock < it.Quantity {
				return &StockError{
					BookID:    book.ID,
					Title:     book.Title,
					Requested: it.Quantity,
					Available: book.Stock,
				}
			}
			if err := tx.DecrementStock(ctx, book.ID, it.Quantity); err != nil {
				return err
			}

			lineTotal := book.PriceCents * int64(it.Quantity)
			order.Items = append(order.Items, OrderItem{
				BookID:         book.ID,
				Quantity:       it.Quantity,
				UnitPriceCents: book.PriceCents,
				LineTotalCents: lineTotal,
			})
			order.TotalCents += lineTotal

			summaryItems = append(summaryItems, ItemSummary{
				BookID:         book.ID,
				Title:          book.Title,
				Author:         book.Author,
				Quantity:       it.Quantity,
				UnitPriceCents: book.PriceCents,
				LineTotalCents: lineTotal,
			})
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.InsertItems(ctx, order.ID, order.Items)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.Int64("user_id", user.ID),
		zap.Int64("total_cents", order.TotalCents),
		zap.Int("items", len(order.Items)))

	return &OrderSummary{
		ID:         order.ID,
		Status:     order.Status,
		TotalCents: order.TotalCents,
		CreatedAt:  order.CreatedAt,
		Items:      summaryItems,
	}, nil
}

// ListMyOrders returns the caller's orders, newest first.
func (s *Service) ListMyOrders(ctx context.Context, email string) ([]OrderSummary, error) {
	user, err := s.Users.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.Store.OrdersByUser(ctx, user.ID)
}
