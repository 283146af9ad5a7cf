package reaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo stores both target kinds in one reactions table; the composite primary
// key (user_id, target_kind, target_id) is the one-row-per-pair invariant.
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

func (t *pgxTx) GetForUpdate(ctx context.Context, userID int64, kind TargetKind, targetID int64) (*Type, error) {
	var rt Type
	err := t.tx.QueryRow(ctx, `
		SELECT reaction_type FROM reactions
		WHERE user_id = $1 AND target_kind = $2 AND target_id = $3
		FOR UPDATE`, userID, kind, targetID).Scan(&rt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock reaction: %w", err)
	}
	return &rt, nil
}

func (t *pgxTx) Upsert(ctx context.Context, userID int64, kind TargetKind, targetID int64, rt Type) error {
	// ON CONFLICT makes concurrent first reactions serialize on the unique
	// key with last-committed-wins instead of failing.
	_, err := t.tx.Exec(ctx, `
		INSERT INTO reactions (user_id, target_kind, target_id, reaction_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, target_kind, target_id)
		DO UPDATE SET reaction_type = EXCLUDED.reaction_type, updated_at = now()`,
		userID, kind, targetID, rt)
	if err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

func (t *pgxTx) Delete(ctx context.Context, userID int64, kind TargetKind, targetID int64) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM reactions
		WHERE user_id = $1 AND target_kind = $2 AND target_id = $3`,
		userID, kind, targetID)
	if err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

func (r *Repo) CountsByTarget(ctx context.Context, kind TargetKind, targetID int64) (Counts, error) {
	m, err := r.CountsByTargetIDs(ctx, kind, []int64{targetID})
	if err != nil {
		return Counts{}, err
	}
	return m[targetID], nil
}

func (r *Repo) CountsByTargetIDs(ctx context.Context, kind TargetKind, ids []int64) (map[int64]Counts, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT target_id, reaction_type, COUNT(*)
		FROM reactions
		WHERE target_kind = $1 AND target_id = ANY($2)
		GROUP BY target_id, reaction_type`, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	defer rows.Close()

	out := map[int64]Counts{}
	for rows.Next() {
		var (
			targetID int64
			rt       Type
			n        int64
		)
		if err := rows.Scan(&targetID, &rt, &n); err != nil {
			return nil, err
		}
		c := out[targetID]
		switch rt {
		case TypeLike:
			c.Likes = n
		case TypeDislike:
			c.Dislikes = n
		}
		out[targetID] = c
	}
	return out, rows.Err()
}

func (r *Repo) UserReaction(ctx context.Context, userID int64, kind TargetKind, targetID int64) (*Type, error) {
	var rt Type
	err := r.DB.QueryRow(ctx, `
		SELECT reaction_type FROM reactions
		WHERE user_id = $1 AND target_kind = $2 AND target_id = $3`,
		userID, kind, targetID).Scan(&rt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user reaction: %w", err)
	}
	return &rt, nil
}

func (r *Repo) UserReactionsByTargetIDs(ctx context.Context, userID int64, kind TargetKind, ids []int64) (map[int64]Type, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT target_id, reaction_type
		FROM reactions
		WHERE user_id = $1 AND target_kind = $2 AND target_id = ANY($3)`,
		userID, kind, ids)
	if err != nil {
		return nil, fmt.Errorf("get user reactions: %w", err)
	}
	defer rows.Close()

	out := map[int64]Type{}
	for rows.Next() {
		var (
			targetID int64
			rt       Type
		)
		if err := rows.Scan(&targetID, &rt); err != nil {
			return nil, err
		}
		out[targetID] = rt
	}
	return out, rows.Err()
}
