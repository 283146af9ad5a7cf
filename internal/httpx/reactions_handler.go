package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/nigersavoir/savoir-api/internal/kafka"
	"github.com/nigersavoir/savoir-api/internal/reaction"
)

type ReactionService interface {
	SetReaction(ctx context.Context, email string, targetID int64, desired *reaction.Type) (*reaction.Summary, error)
	GetSummaries(ctx context.Context, ids []int64, email string) ([]reaction.Summary, error)
}

// ReactionsHandler serves both instantiations of the reaction engine.
type ReactionsHandler struct {
	Documents   ReactionService
	Books       ReactionService
	Producer    *kafkax.Producer // optional
	ServiceName string
	Logger      *zap.Logger
}

type setReactionReq struct {
	ReactionType *string `json:"reactionType"`
}

func (h *ReactionsHandler) Register(r *chi.Mux) {
	r.Route("/reactions", func(r chi.Router) {
		r.Get("/documents/summary", h.summaries(h.Documents, reaction.KindDocument))
		r.Post("/documents/{targetId}", h.set(h.Documents, reaction.KindDocument))
		r.Get("/books/summary", h.summaries(h.Books, reaction.KindBook))
		r.Post("/books/{targetId}", h.set(h.Books, reaction.KindBook))
	})
}

func (h *ReactionsHandler) set(svc ReactionService, kind reaction.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := callerEmail(r)
		if email == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		targetID, err := strconv.ParseInt(chi.URLParam(r, "targetId"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid target id")
			return
		}

		// An empty body is a valid "clear my reaction" request.
		var req setReactionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		var desired *reaction.Type
		if req.ReactionType != nil {
			t, err := reaction.ParseType(*req.ReactionType)
			if err != nil {
				writeDomainError(w, h.Logger, err)
				return
			}
			desired = &t
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		summary, err := svc.SetReaction(ctx, email, targetID, desired)
		if err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}

		if h.Producer != nil {
			ev := kafkax.Envelope{
				EventID:      uuid.NewString(),
				EventType:    reaction.EventReactionSet,
				EventVersion: 1,
				OccurredAt:   time.Now().UTC(),
				Producer:     h.ServiceName,
				TraceID:      r.Header.Get("X-Request-Id"),
			}
			ev.Payload = kafkax.MustMarshal(reaction.ReactionSetPayload{
				UserEmail:  email,
				TargetKind: kind,
				TargetID:   targetID,
				Reaction:   summary.MyReaction,
			})
			h.Producer.Publish(reaction.PartitionKey(kind, targetID), kafkax.MustMarshal(ev),
				kafkago.Header{Key: "x-event-type", Value: []byte(reaction.EventReactionSet)},
				kafkago.Header{Key: "x-event-version", Value: []byte("1")},
			)
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

func (h *ReactionsHandler) summaries(svc ReactionService, kind reaction.TargetKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := parseIDs(r.URL.Query().Get("ids"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid ids")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		// Identity is optional here; anonymous reads are valid.
		out, err := svc.GetSummaries(ctx, ids, callerEmail(r))
		if err != nil {
			writeDomainError(w, h.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
