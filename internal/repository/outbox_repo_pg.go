package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PGOutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) OutboxRepository {
	return &PGOutboxRepository{db: db}
}

func (r *PGOutboxRepository) Create(ctx context.Context, e *domain.OutboxEvent) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO outbox (id, event_type, event_key, payload, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		e.ID, e.EventType, e.Key, e.Payload, domain.OutboxStatusNew).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert outbox event")
	}
	e.Status = domain.OutboxStatusNew
	return nil
}

func (r *PGOutboxRepository) FetchBatch(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error) {
	rows, err := conn(ctx, r.db).Query(ctx, fetchBatchQuery,
		limit, domain.OutboxStatusNew, domain.OutboxStatusProcessing, lease.Seconds())
	if err != nil {
		return nil, errors.Wrap(err, "claim outbox batch")
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Key, &e.Payload, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan outbox event")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *PGOutboxRepository) MarkProcessed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusProcessed)
}

// MarkFailed hands the events back to the next poll.
func (r *PGOutboxRepository) MarkFailed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusNew)
}

func (r *PGOutboxRepository) setStatus(ctx context.Context, ids []string, status string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn(ctx, r.db).Exec(ctx, `UPDATE outbox SET status=$2, updated_at=now() WHERE id = ANY($1)`, ids, status)
	return errors.Wrapf(err, "mark outbox events %s", status)
}

var _ OutboxRepository = (*PGOutboxRepository)(nil)

// fetchBatchQuery also reclaims events whose worker died after claiming them.
const fetchBatchQuery = `
	WITH claimed AS (
		SELECT id
		FROM outbox
		WHERE status = $2
			OR (status = $3 AND updated_at < now() - $4::double precision * interval '1 second')
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE outbox
	SET status = $3, updated_at = now()
	WHERE id IN (SELECT id FROM claimed)
	RETURNING id, event_type, event_key, payload, status, created_at, updated_at`
