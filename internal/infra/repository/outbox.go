package repository

import (
	"context"
	"time"

	"kicks-exchange/internal/infra"
	"kicks-exchange/internal/infra/db"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(db db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Append ignores events whose id is already queued.
func (r *OutboxRepository) Append(ctx context.Context, events ...shared.Event) error {
	for _, e := range events {
		_, err := r.db.Exec(ctx, `
			INSERT INTO outbox_events (id, event_type, market_key, aggregate_id, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			e.ID, string(e.Type), e.Key, e.AggregateID, []byte(e.Payload), e.OccurredAt)
		if err != nil {
			return infra.WrapRepoErr("failed to append outbox event", err)
		}
	}
	return nil
}

// ClaimPending row-locks due events; concurrent relays skip each other's
// batches.
func (r *OutboxRepository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]shared.OutboxRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, market_key, aggregate_id, payload, occurred_at, attempts
		FROM outbox_events
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at, id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim outbox events", err)
	}
	defer rows.Close()

	var out []shared.OutboxRecord
	for rows.Next() {
		var (
			rec     shared.OutboxRecord
			typ     string
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &typ, &rec.Key, &rec.AggregateID, &payload, &rec.OccurredAt, &rec.Attempts); err != nil {
			return nil, infra.WrapRepoErr("failed to scan outbox event", err)
		}
		rec.Type = shared.EventType(typ)
		rec.Payload = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate outbox events", err)
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events SET status = 'sent', sent_at = $2, attempts = attempts + 1
		WHERE id = ANY($1)`,
		ids, at)
	if err != nil {
		return infra.WrapRepoErr("failed to mark outbox events sent", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, nextAttemptAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
		WHERE id = $1`,
		id, lastError, nextAttemptAt)
	if err != nil {
		return infra.WrapRepoErr("failed to mark outbox event failed", err)
	}
	return nil
}
