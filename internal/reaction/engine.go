package reaction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nigersavoir/savoir-api/internal/identity"
)

// TargetResolver answers whether a reaction target exists. Documents and
// books plug in their own resolver; the engine never needs more than that.
type TargetResolver interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// TargetResolverFunc adapts a plain function to a TargetResolver.
type TargetResolverFunc func(ctx context.Context, id int64) (bool, error)

func (f TargetResolverFunc) Exists(ctx context.Context, id int64) (bool, error) {
	return f(ctx, id)
}

type Store interface {
	// InTx serializes transitions on one (user, target) pair.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CountsByTarget(ctx context.Context, kind TargetKind, targetID int64) (Counts, error)
	CountsByTargetIDs(ctx context.Context, kind TargetKind, ids []int64) (map[int64]Counts, error)
	UserReaction(ctx context.Context, userID int64, kind TargetKind, targetID int64) (*Type, error)
	UserReactionsByTargetIDs(ctx context.Context, userID int64, kind TargetKind, ids []int64) (map[int64]Type, error)
}

type Tx interface {
	// GetForUpdate returns the stored type for the pair, nil when absent,
	// holding the row lock until the transaction ends.
	GetForUpdate(ctx context.Context, userID int64, kind TargetKind, targetID int64) (*Type, error)
	Upsert(ctx context.Context, userID int64, kind TargetKind, targetID int64, t Type) error
	Delete(ctx context.Context, userID int64, kind TargetKind, targetID int64) error
}

// Engine is the like/dislike state machine, instantiated once per target
// kind. Transitions per pair, stored S and requested R:
//
//	R = none           -> delete (clear)
//	R = S              -> delete (toggle off)
//	R != none, S = none -> insert R
//	R != none, S != R   -> update to R
type Engine struct {
	kind    TargetKind
	targets TargetResolver
	users   identity.Resolver
	store   Store
	logger  *zap.Logger
}

func NewEngine(kind TargetKind, targets TargetResolver, users identity.Resolver, store Store, logger *zap.Logger) *Engine {
	return &Engine{kind: kind, targets: targets, users: users, store: store, logger: logger}
}

func (e *Engine) Kind() TargetKind { return e.kind }

// SetReaction applies one transition and returns the summary recomputed from
// the store, so counts can never drift from the rows.
func (e *Engine) SetReaction(ctx context.Context, email string, targetID int64, desired *Type) (*Summary, error) {
	user, err := e.users.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	ok, err := e.targets.Exists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", e.kind, targetID, ErrTargetNotFound)
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetForUpdate(ctx, user.ID, e.kind, targetID)
		if err != nil {
			return err
		}
		switch {
		case desired == nil:
			if current != nil {
				return tx.Delete(ctx, user.ID, e.kind, targetID)
			}
			return nil
		case current != nil && *current == *desired:
			return tx.Delete(ctx, user.ID, e.kind, targetID)
		default:
			return tx.Upsert(ctx, user.ID, e.kind, targetID, *desired)
		}
	})
	if err != nil {
		return nil, err
	}

	counts, err := e.store.CountsByTarget(ctx, e.kind, targetID)
	if err != nil {
		return nil, err
	}
	mine, err := e.store.UserReaction(ctx, user.ID, e.kind, targetID)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("reaction set",
		zap.String("kind", string(e.kind)),
		zap.Int64("target_id", targetID),
		zap.Int64("user_id", user.ID))

	return &Summary{
		TargetID:     targetID,
		LikeCount:    counts.Likes,
		DislikeCount: counts.Dislikes,
		MyReaction:   mine,
	}, nil
}

// GetSummaries computes summaries for the requested ids, preserving input
// order and duplicates. An empty, missing, or unresolvable identity is not an
// error; those callers simply get no "my reaction" overlay.
func (e *Engine) GetSummaries(ctx context.Context, ids []int64, email string) ([]Summary, error) {
	if len(ids) == 0 {
		return []Summary{}, nil
	}

	var userID int64
	haveUser := false
	if email != "" {
		user, err := e.users.ResolveByEmail(ctx, email)
		if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			return nil, err
		}
		if err == nil {
			userID = user.ID
			haveUser = true
		}
	}

	var (
		counts map[int64]Counts
		mine   map[int64]Type
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = e.store.CountsByTargetIDs(gctx, e.kind, ids)
		return err
	})
	if haveUser {
		g.Go(func() error {
			var err error
			mine, err = e.store.UserReactionsByTargetIDs(gctx, userID, e.kind, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s := Summary{TargetID: id}
		if c, ok := counts[id]; ok {
			s.LikeCount = c.Likes
			s.DislikeCount = c.Dislikes
		}
		if t, ok := mine[id]; ok {
			my := t
			s.MyReaction = &my
		}
		out = append(out, s)
	}
	return out, nil
}
