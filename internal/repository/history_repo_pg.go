package repository

import (
	"context"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PGHistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) HistoryRepository {
	return &PGHistoryRepository{db: db}
}

func (r *PGHistoryRepository) Append(ctx context.Context, e domain.OrderHistoryEntry) error {
	_, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO order_history
		(event_id, order_id, flight_id, user_id, event_type, seats, previous_seats, seats_left, total_price, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.OrderID, e.FlightID, e.UserID, e.EventType, e.Seats, e.PrevSeats, e.SeatsLeft, e.TotalPrice, e.OccurredAt)
	return errors.Wrap(err, "append order history")
}

func (r *PGHistoryRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderHistoryEntry, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT event_id, order_id, flight_id, user_id, event_type, seats, previous_seats, seats_left, total_price, occurred_at
		FROM order_history WHERE order_id=$1 ORDER BY occurred_at, event_id`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "query order history")
	}
	defer rows.Close()

	entries := make([]domain.OrderHistoryEntry, 0)
	for rows.Next() {
		var e domain.OrderHistoryEntry
		if err := rows.Scan(&e.EventID, &e.OrderID, &e.FlightID, &e.UserID, &e.EventType, &e.Seats, &e.PrevSeats, &e.SeatsLeft, &e.TotalPrice, &e.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "scan order history")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ HistoryRepository = (*PGHistoryRepository)(nil)
