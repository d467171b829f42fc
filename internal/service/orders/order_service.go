// Package orders is the order ledger. Every operation runs in one
// transaction together with its inventory change and outbox event, so an
// order and the seats it holds are always written together.
package orders

import (
	"context"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/outbox"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/service/inventory"
	log "github.com/sirupsen/logrus"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, seats int) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error)
	History(ctx context.Context, orderID int64) ([]domain.OrderHistoryEntry, error)
}

// CacheInvalidator drops cached flight data after seats_left changed.
type CacheInvalidator interface {
	InvalidateFlights(ctx context.Context, ids ...int64) error
}

type CreateOrderInput struct {
	FlightID int64
	UserID   int64
	Seats    int
}

type OrderService struct {
	tx        repository.Transactor
	orders    repository.OrderRepository
	users     repository.UserRepository
	inventory *inventory.Inventory
	outbox    repository.OutboxRepository
	history   repository.HistoryRepository
	cache     CacheInvalidator
	now       func() time.Time
}

type OrderServiceOption func(*OrderService)

func WithCache(cache CacheInvalidator) OrderServiceOption {
	return func(s *OrderService) {
		s.cache = cache
	}
}

func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		s.now = now
	}
}

func NewOrderService(
	tx repository.Transactor,
	orders repository.OrderRepository,
	users repository.UserRepository,
	inv *inventory.Inventory,
	outboxRepo repository.OutboxRepository,
	history repository.HistoryRepository,
	opts ...OrderServiceOption,
) *OrderService {
	service := &OrderService{
		tx:        tx,
		orders:    orders,
		users:     users,
		inventory: inv,
		outbox:    outboxRepo,
		history:   history,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if input.Seats <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			return err
		}

		flight, err := s.inventory.Reserve(ctx, input.FlightID, input.Seats)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		order = &domain.Order{
			FlightID:   input.FlightID,
			UserID:     input.UserID,
			Seats:      input.Seats,
			OrderDate:  now,
			TotalPrice: domain.TotalPrice(flight.Price, input.Seats),
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		order.FlightNum = flight.FlightNum
		order.UserName = user.FullName()

		return outbox.Enqueue(ctx, s.outbox, domain.OrderEvent{
			Type:       domain.EventOrderCreated,
			OrderID:    order.ID,
			FlightID:   order.FlightID,
			UserID:     order.UserID,
			Seats:      order.Seats,
			SeatsLeft:  flight.SeatsLeft,
			TotalPrice: order.TotalPrice,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order.FlightID)
	return order, nil
}

// UpdateOrder moves the order to seats, adjusting inventory by the
// difference in the same step.
func (s *OrderService) UpdateOrder(ctx context.Context, id int64, seats int) (*domain.Order, error) {
	if seats <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var order *domain.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := current.Seats

		flight, err := s.inventory.Adjust(ctx, current.FlightID, previous-seats)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		current.Seats = seats
		current.OrderDate = now
		current.TotalPrice = domain.TotalPrice(flight.Price, seats)
		if err := s.orders.Update(ctx, current); err != nil {
			return err
		}
		current.FlightNum = flight.FlightNum
		order = current

		return outbox.Enqueue(ctx, s.outbox, domain.OrderEvent{
			Type:          domain.EventOrderUpdated,
			OrderID:       current.ID,
			FlightID:      current.FlightID,
			UserID:        current.UserID,
			Seats:         seats,
			PreviousSeats: previous,
			SeatsLeft:     flight.SeatsLeft,
			TotalPrice:    current.TotalPrice,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order.FlightID)
	return order, nil
}

// DeleteOrder releases the order's seats and removes it. The row lock taken
// by GetForUpdate makes a concurrent second delete see NotFound.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	var flightID int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		flightID = current.FlightID

		flight, err := s.inventory.Release(ctx, current.FlightID, current.Seats)
		if err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, current.ID); err != nil {
			return err
		}

		return outbox.Enqueue(ctx, s.outbox, domain.OrderEvent{
			Type:          domain.EventOrderDeleted,
			OrderID:       current.ID,
			FlightID:      current.FlightID,
			UserID:        current.UserID,
			PreviousSeats: current.Seats,
			SeatsLeft:     flight.SeatsLeft,
			OccurredAt:    s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, flightID)
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	return s.orders.List(ctx, filter)
}

// History returns the audit trail of an order, which outlives the order.
func (s *OrderService) History(ctx context.Context, orderID int64) ([]domain.OrderHistoryEntry, error) {
	entries, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		if _, err := s.orders.GetByID(ctx, orderID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *OrderService) invalidate(ctx context.Context, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx, flightID); err != nil {
		log.WithError(err).WithField("flight_id", flightID).Error("invalidate flight cache")
	}
}

var _ OrderUseCase = (*OrderService)(nil)
