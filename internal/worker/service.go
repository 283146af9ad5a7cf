package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/nigersavoir/savoir-api/internal/kafka"
	"github.com/nigersavoir/savoir-api/internal/market"
	"github.com/nigersavoir/savoir-api/internal/reaction"
	"github.com/nigersavoir/savoir-api/internal/redisx"
)

// Service consumes platform events for audit logging and cache warming.
// Handlers are idempotent: a replayed event_id is dropped by the dedup key.
type Service struct {
	Redis  *redis.Client
	Logger *zap.Logger
	Name   string
}

func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env kafkax.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != market.EventOrderCreated {
		return nil
	}

	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[market.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	s.Logger.Info("order created",
		zap.String("order_id", p.OrderID),
		zap.String("user_email", p.UserEmail),
		zap.Int64("total_cents", p.TotalCents),
		zap.Int("items", len(p.Items)),
		zap.String("trace_id", env.TraceID))

	// Keep the status cache warm so reads after a cold API restart still hit.
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	if err := s.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, p.Status), redisx.TTLStatusCache).Err(); err != nil {
		s.Logger.Warn("status cache warm failed", zap.String("order_id", p.OrderID), zap.Error(err))
	}
	return nil
}

func (s *Service) HandleReactionSet(ctx context.Context, m kafkago.Message) error {
	var env kafkax.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != reaction.EventReactionSet {
		return nil
	}

	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[reaction.ReactionSetPayload](env.Payload)
	if err != nil {
		return err
	}

	state := "cleared"
	if p.Reaction != nil {
		state = string(*p.Reaction)
	}
	s.Logger.Info("reaction set",
		zap.String("user_email", p.UserEmail),
		zap.String("target_kind", string(p.TargetKind)),
		zap.Int64("target_id", p.TargetID),
		zap.String("reaction", state),
		zap.String("trace_id", env.TraceID))
	return nil
}

// seen marks the event id and reports whether it was already processed.
// Redis being down fails open: the handler runs again, which is safe.
func (s *Service) seen(ctx context.Context, eventID string) bool {
	dkey := fmt.Sprintf(redisx.KeyDedup, s.Name, eventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return true
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return false
}
