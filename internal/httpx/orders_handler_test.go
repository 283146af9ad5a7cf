package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nigersavoir/savoir-api/internal/identity"
	"github.com/nigersavoir/savoir-api/internal/market"
)

type stubOrderService struct {
	createFn func(ctx context.Context, email string, items []market.ItemInput) (*market.OrderSummary, error)
	listFn   func(ctx context.Context, email string) ([]market.OrderSummary, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, email string, items []market.ItemInput) (*market.OrderSummary, error) {
	return s.createFn(ctx, email, items)
}

func (s *stubOrderService) ListMyOrders(ctx context.Context, email string) ([]market.OrderSummary, error) {
	return s.listFn(ctx, email)
}

func ordersRouter(svc OrderService) http.Handler {
	r := NewRouter()
	(&OrdersHandler{Service: svc, ServiceName: "test", Logger: zap.NewNop()}).Register(r)
	return r
}

func TestCreateOrder_HTTP(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(_ context.Context, email string, items []market.ItemInput) (*market.OrderSummary, error) {
			assert.Equal(t, "amina@nigersavoir.org", email)
			require.Len(t, items, 1)
			return &market.OrderSummary{
				ID:         "8e5c0c2e-6cfa-4c4e-9c2f-1c69f1a8b111",
				Status:     market.StatusPending,
				TotalCents: 5000,
				CreatedAt:  time.Now().UTC(),
				Items: []market.ItemSummary{{
					BookID: 10, Title: "Sarraounia", Quantity: 2,
					UnitPriceCents: 2500, LineTotalCents: 5000,
				}},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"bookId":10,"quantity":2}]}`))
	req.Header.Set(identityHeader, "amina@nigersavoir.org")
	rec := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, float64(5000), body["totalCents"])
}

func TestCreateOrder_HTTP_MissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	ordersRouter(&stubOrderService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrder_HTTP_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{`))
	req.Header.Set(identityHeader, "amina@nigersavoir.org")
	rec := httptest.NewRecorder()
	ordersRouter(&stubOrderService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_HTTP_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown user", identity.ErrUserNotFound, http.StatusUnauthorized},
		{"empty order", market.ErrEmptyOrder, http.StatusBadRequest},
		{"invalid item", &market.InvalidItemError{BookID: 10, Quantity: 0}, http.StatusBadRequest},
		{"out of stock", &market.StockError{BookID: 10, Title: "Sarraounia", Requested: 3, Available: 1}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{
				createFn: func(context.Context, string, []market.ItemInput) (*market.OrderSummary, error) {
					return nil, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/orders",
				strings.NewReader(`{"items":[{"bookId":10,"quantity":3}]}`))
			req.Header.Set(identityHeader, "amina@nigersavoir.org")
			rec := httptest.NewRecorder()
			ordersRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestCreateOrder_HTTP_StockErrorBody(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(context.Context, string, []market.ItemInput) (*market.OrderSummary, error) {
			return nil, &market.StockError{BookID: 10, Title: "Sarraounia", Requested: 3, Available: 1}
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"items":[{"bookId":10,"quantity":3}]}`))
	req.Header.Set(identityHeader, "amina@nigersavoir.org")
	rec := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not enough stock for: Sarraounia", body["error"])
}

func TestListMyOrders_HTTP(t *testing.T) {
	svc := &stubOrderService{
		listFn: func(_ context.Context, email string) ([]market.OrderSummary, error) {
			assert.Equal(t, "amina@nigersavoir.org", email)
			return []market.OrderSummary{}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/orders/mine", nil)
	req.Header.Set(identityHeader, "amina@nigersavoir.org")
	rec := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListMyOrders_HTTP_MissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/mine", nil)
	rec := httptest.NewRecorder()
	ordersRouter(&stubOrderService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
