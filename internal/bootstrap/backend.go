package bootstrap

import (
	"context"

	"github.com/Domenick1991/flightorders/config"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/repository/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Backend is the set of stores the services run on.
type Backend struct {
	Tx      repository.Transactor
	Flights repository.FlightRepository
	Orders  repository.OrderRepository
	Users   repository.UserRepository
	Outbox  repository.OutboxRepository
	History repository.HistoryRepository

	Ping  func(ctx context.Context) error
	Close func()
}

func NewPostgresBackend(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	return &Backend{
		Tx:      repository.NewTxManager(pool),
		Flights: repository.NewFlightRepository(pool),
		Orders:  repository.NewOrderRepository(pool),
		Users:   repository.NewUserRepository(pool),
		Outbox:  repository.NewOutboxRepository(pool),
		History: repository.NewHistoryRepository(pool),
		Ping:    pool.Ping,
		Close:   pool.Close,
	}, nil
}

// NewMemoryBackend keeps everything in process. Data is lost on exit.
func NewMemoryBackend() *Backend {
	store := memory.NewStore()
	return &Backend{
		Tx:      store,
		Flights: store.Flights(),
		Orders:  store.Orders(),
		Users:   store.Users(),
		Outbox:  store.Outbox(),
		History: store.History(),
		Ping:    func(context.Context) error { return nil },
		Close:   func() {},
	}
}
