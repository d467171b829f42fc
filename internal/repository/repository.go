package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
)

// Transactor runs fn inside one database transaction. Repository calls made
// with the ctx handed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type FlightFilter struct {
	OriginCity      string
	DestinationCity string
	FlightNum       string
	MinPrice        *float64
	MaxPrice        *float64
	IsCancelled     *bool
	DepartsFrom     *time.Time
	ArrivesBy       *time.Time
}

func (f FlightFilter) IsEmpty() bool {
	return f == FlightFilter{}
}

type FlightRepository interface {
	List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	// Update writes descriptive fields and is_cancelled. Seat counters are
	// never written here.
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id int64) error
	// AdjustSeats atomically adds delta to seats_left against the stored
	// value. The result is clamped to total_seats. A negative delta fails with
	// domain.ErrInsufficientSeats when it would drive seats_left below zero and
	// with domain.ErrFlightCancelled on a cancelled flight.
	AdjustSeats(ctx context.Context, id int64, delta int) (*domain.Flight, error)
}

type OrderFilter struct {
	UserID    int64
	FlightID  int64
	FlightNum string
	Name      domain.NameQuery
}

type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	// GetForUpdate reads the order and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, id int64) error
	DeleteByFlight(ctx context.Context, flightID int64) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, name domain.NameQuery) ([]domain.User, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	// FetchBatch claims up to limit events and marks them processing. Events
	// left in processing for longer than lease are claimed again.
	FetchBatch(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, ids []string) error
}

type HistoryRepository interface {
	// Append is idempotent on EventID.
	Append(ctx context.Context, entry domain.OrderHistoryEntry) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderHistoryEntry, error)
}
