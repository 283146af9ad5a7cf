package market

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/catalog"
	"github.com/nigersavoir/savoir-api/internal/identity"
)

type fakeResolver struct {
	users map[string]*identity.User
}

func (f *fakeResolver) ResolveByEmail(_ context.Context, email string) (*identity.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

// memStore emulates the transactional store: writes inside InTx are staged
// and only applied when fn returns nil, mirroring commit/rollback.
type memStore struct {
	mu     sync.Mutex
	books  map[int64]*catalog.Book
	orders []*Order
}

func newMemStore(books ...*catalog.Book) *memStore {
	m := &memStore{books: map[int64]*catalog.Book{}}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m, stock: map[int64]int{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, s := range tx.stock {
		m.books[id].Stock = s
	}
	if tx.order != nil {
		m.orders = append(m.orders, tx.order)
	}
	return nil
}

func (m *memStore) OrdersByUser(_ context.Context, userID int64) ([]OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []OrderSummary{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		o := m.orders[i]
		if o.UserID != userID {
			continue
		}
		items := make([]ItemSummary, 0, len(o.Items))
		for _, it := range o.Items {
			b := m.books[it.BookID]
			items = append(items, ItemSummary{
				BookID:         it.BookID,
				Title:          b.Title,
				Author:         b.Author,
				Quantity:       it.Quantity,
				UnitPriceCents: it.UnitPriceCents,
				LineTotalCents: it.LineTotalCents,
			})
		}
		out = append(out, OrderSummary{
			ID:         o.ID,
			Status:     o.Status,
			TotalCents: o.TotalCents,
			CreatedAt:  o.CreatedAt,
			Items:      items,
		})
	}
	return out, nil
}

type memTx struct {
	store *memStore
	stock map[int64]int // staged stock per book
	order *Order
}

func (t *memTx) BookForUpdate(_ context.Context, bookID int64) (*catalog.Book, error) {
	b, ok := t.store.books[bookID]
	if !ok {
		return nil, fmt.Errorf("book %d: %w", bookID, catalog.ErrBookNotFound)
	}
	cp := *b
	if s, staged := t.stock[bookID]; staged {
		cp.Stock = s
	}
	return &cp, nil
}

func (t *memTx) DecrementStock(_ context.Context, bookID int64, qty int) error {
	cur := t.store.books[bookID].Stock
	if s, staged := t.stock[bookID]; staged {
		cur = s
	}
	if cur < qty {
		return fmt.Errorf("stock underflow for book %d", bookID)
	}
	t.stock[bookID] = cur - qty
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	t.order = o
	return nil
}

func (t *memTx) InsertItems(_ context.Context, _ string, _ []OrderItem) error {
	return nil
}

func testService(store Store) *Service {
	return &Service{
		Users: &fakeResolver{users: map[string]*identity.User{
			"amina@nigersavoir.org": {ID: 1, Email: "amina@nigersavoir.org", FullName: "Amina Diallo"},
		}},
		Store:  store,
		Logger: zap.NewNop(),
	}
}

func TestCreateOrder_TotalsAndSnapshot(t *testing.T) {
	store := newMemStore(
		&catalog.Book{ID: 10, Title: "Sarraounia", Author: "Mamani", PriceCents: 2500, Stock: 5},
		&catalog.Book{ID: 11, Title: "Le Devoir", Author: "Maïga", PriceCents: 1200, Stock: 3},
	)
	svc := testService(store)

	got, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
		{BookID: 10, Quantity: 2},
		{BookID: 11, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, int64(2*2500+3*1200), got.TotalCents)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(2500), got.Items[0].UnitPriceCents)
	assert.Equal(t, int64(5000), got.Items[0].LineTotalCents)
	assert.Equal(t, "Sarraounia", got.Items[0].Title)

	assert.Equal(t, 3, store.books[10].Stock)
	assert.Equal(t, 0, store.books[11].Stock)
}

func TestCreateOrder_EmptyOrder(t *testing.T) {
	svc := testService(newMemStore())

	_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateOrder_UnknownUser(t *testing.T) {
	svc := testService(newMemStore())

	_, err := svc.CreateOrder(context.Background(), "nobody@nigersavoir.org", []ItemInput{{BookID: 10, Quantity: 1}})
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestCreateOrder_UnknownBook(t *testing.T) {
	store := newMemStore(&catalog.Book{ID: 10, Title: "Sarraounia", PriceCents: 2500, Stock: 5})
	svc := testService(store)

	_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
		{BookID: 10, Quantity: 1},
		{BookID: 99, Quantity: 1},
	})
	assert.ErrorIs(t, err, catalog.ErrBookNotFound)
	// first item's decrement must roll back
	assert.Equal(t, 5, store.books[10].Stock)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	store := newMemStore(&catalog.Book{ID: 10, Title: "Sarraounia", PriceCents: 2500, Stock: 5})
	svc := testService(store)

	for _, qty := range []int{0, -2} {
		_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
			{BookID: 10, Quantity: qty},
		})
		var invalid *InvalidItemError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, qty, invalid.Quantity)
	}
	assert.Equal(t, 5, store.books[10].Stock)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	store := newMemStore(
		&catalog.Book{ID: 10, Title: "Sarraounia", PriceCents: 2500, Stock: 5},
		&catalog.Book{ID: 11, Title: "Le Devoir", PriceCents: 1200, Stock: 2},
	)
	svc := testService(store)

	_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
		{BookID: 10, Quantity: 1},
		{BookID: 11, Quantity: 3},
	})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "not enough stock for: Le Devoir", stockErr.Error())
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// nothing changed: the whole order rolled back
	assert.Equal(t, 5, store.books[10].Stock)
	assert.Equal(t, 2, store.books[11].Stock)
	assert.Empty(t, store.orders)
}

func TestCreateOrder_SameBookTwiceSharesStock(t *testing.T) {
	store := newMemStore(&catalog.Book{ID: 10, Title: "Sarraounia", PriceCents: 2500, Stock: 5})
	svc := testService(store)

	// 3 + 3 exceeds the 5 in stock even though each line alone fits.
	_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
		{BookID: 10, Quantity: 3},
		{BookID: 10, Quantity: 3},
	})
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, store.books[10].Stock)

	// 3 + 2 fits exactly.
	got, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
		{BookID: 10, Quantity: 3},
		{BookID: 10, Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5*2500), got.TotalCents)
	assert.Equal(t, 0, store.books[10].Stock)
}

func TestCreateOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	store := newMemStore(&catalog.Book{ID: 10, Title: "Sarraounia", PriceCents: 2500, Stock: 5})
	svc := testService(store)

	const attempts = 2
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{
				{BookID: 10, Quantity: 3},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			var stockErr *StockError
			require.ErrorAs(t, err, &stockErr)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, store.books[10].Stock)
}

func TestListMyOrders(t *testing.T) {
	store := newMemStore(&catalog.Book{ID: 10, Title: "Sarraounia", Author: "Mamani", PriceCents: 2500, Stock: 10})
	svc := testService(store)

	first, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{{BookID: 10, Quantity: 1}})
	require.NoError(t, err)
	second, err := svc.CreateOrder(context.Background(), "amina@nigersavoir.org", []ItemInput{{BookID: 10, Quantity: 2}})
	require.NoError(t, err)

	got, err := svc.ListMyOrders(context.Background(), "amina@nigersavoir.org")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// newest first
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	_, err = svc.ListMyOrders(context.Background(), "nobody@nigersavoir.org")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}
