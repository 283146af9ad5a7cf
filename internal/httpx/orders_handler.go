package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/nigersavoir/savoir-api/internal/kafka"
	"github.com/nigersavoir/savoir-api/internal/market"
	"github.com/nigersavoir/savoir-api/internal/redisx"
)

type OrderService interface {
	CreateOrder(ctx context.Context, email string, items []market.ItemInput) (*market.OrderSummary, error)
	ListMyOrders(ctx context.Context, email string) ([]market.OrderSummary, error)
}

type OrdersHandler struct {
	Service     OrderService
	Producer    *kafkax.Producer // optional
	Redis       *redis.Client    // optional
	ServiceName string
	Logger      *zap.Logger
}

type createOrderReq struct {
	Items []market.ItemInput `json:"items"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.create)
	r.Get("/orders/mine", h.mine)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	email := callerEmail(r)
	if email == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.Service.CreateOrder(ctx, email, req.Items)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}

	// Status cache is best effort; the orders table stays the truth.
	if h.Redis != nil {
		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, summary.ID)
		_ = h.Redis.Set(ctx, statusKey, `{"status":"PENDING"}`, redisx.TTLStatusCache).Err()
	}

	if h.Producer != nil {
		ev := kafkax.Envelope{
			EventID:       uuid.NewString(),
			EventType:     market.EventOrderCreated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.ServiceName,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: summary.ID,
		}
		ev.Payload = kafkax.MustMarshal(market.OrderCreatedPayload{
			OrderID:    summary.ID,
			UserEmail:  email,
			Items:      req.Items,
			TotalCents: summary.TotalCents,
			Status:     summary.Status,
		})
		h.Producer.Publish(market.PartitionKey(summary.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(market.EventOrderCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (h *OrdersHandler) mine(w http.ResponseWriter, r *http.Request) {
	email := callerEmail(r)
	if email == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Service.ListMyOrders(ctx, email)
	if err != nil {
		writeDomainError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
