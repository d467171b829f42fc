package flights

import (
	"context"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/outbox"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/service/inventory"
	log "github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, input UpdateFlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

// FlightCache returns nil, nil on a miss. Set calls take the Generation read
// before the database was queried.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight, generation int64) error
	GetFlight(ctx context.Context, id int64) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight, generation int64) error
	Generation(ctx context.Context) (int64, error)
	InvalidateFlights(ctx context.Context, ids ...int64) error
}

type CreateFlightInput struct {
	FlightNum          string
	OriginCountry      string
	OriginCity         string
	OriginCode         string
	DestinationCountry string
	DestinationCity    string
	DestinationCode    string
	OriginTime         time.Time
	DestinationTime    time.Time
	TotalSeats         int
	// SeatsLeft defaults to TotalSeats when nil.
	SeatsLeft   *int
	IsCancelled bool
	Price       float64
}

// UpdateFlightInput is a partial update, nil fields keep their value.
// TotalSeats and SeatsLeft are accepted only when they match the stored
// values.
type UpdateFlightInput struct {
	FlightNum          *string
	OriginCountry      *string
	OriginCity         *string
	OriginCode         *string
	DestinationCountry *string
	DestinationCity    *string
	DestinationCode    *string
	OriginTime         *time.Time
	DestinationTime    *time.Time
	TotalSeats         *int
	SeatsLeft          *int
	IsCancelled        *bool
	Price              *float64
}

type FlightService struct {
	tx     repository.Transactor
	repo   repository.FlightRepository
	orders repository.OrderRepository
	outbox repository.OutboxRepository
	cache  FlightCache
	now    func() time.Time
}

func NewFlightService(
	tx repository.Transactor,
	repo repository.FlightRepository,
	orders repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	cache FlightCache,
) *FlightService {
	return &FlightService{tx: tx, repo: repo, orders: orders, outbox: outboxRepo, cache: cache, now: time.Now}
}

// List serves the unfiltered list from the cache when possible.
func (s *FlightService) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	var gen int64
	cacheable := s.cache != nil && filter.IsEmpty()
	if cacheable {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
		gen, cacheable = s.generation(ctx)
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.SetFlights(ctx, flights, gen); err != nil {
			log.WithError(err).Warn("cache flight list")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	var gen int64
	cacheable := s.cache != nil
	if cacheable {
		if cached, err := s.cache.GetFlight(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
		gen, cacheable = s.generation(ctx)
	}

	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := s.cache.SetFlight(ctx, flight, gen); err != nil {
			log.WithError(err).WithField("flight_id", id).Warn("cache flight")
		}
	}
	return flight, nil
}

// generation reports false when the cache cannot tell its generation, the
// result is then served uncached.
func (s *FlightService) generation(ctx context.Context) (int64, bool) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		log.WithError(err).Warn("read flight cache generation")
		return 0, false
	}
	return gen, true
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	seatsLeft, err := inventory.InitialSeatsLeft(input.TotalSeats, input.SeatsLeft)
	if err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		FlightNum:          input.FlightNum,
		OriginCountry:      input.OriginCountry,
		OriginCity:         input.OriginCity,
		OriginCode:         input.OriginCode,
		DestinationCountry: input.DestinationCountry,
		DestinationCity:    input.DestinationCity,
		DestinationCode:    input.DestinationCode,
		OriginTime:         input.OriginTime,
		DestinationTime:    input.DestinationTime,
		TotalSeats:         input.TotalSeats,
		SeatsLeft:          seatsLeft,
		IsCancelled:        input.IsCancelled,
		Price:              input.Price,
	}
	if err := flight.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return flight, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, input UpdateFlightInput) (*domain.Flight, error) {
	var flight *domain.Flight
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if input.TotalSeats != nil && *input.TotalSeats != current.TotalSeats {
			return domain.NewValidationError("total_seats", "cannot be changed after creation")
		}
		if input.SeatsLeft != nil && *input.SeatsLeft != current.SeatsLeft {
			return domain.NewValidationError("seats_left", "is managed by orders")
		}

		applyUpdate(current, input)
		if err := current.Validate(); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		flight = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return flight, nil
}

func applyUpdate(f *domain.Flight, in UpdateFlightInput) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&f.FlightNum, in.FlightNum)
	setString(&f.OriginCountry, in.OriginCountry)
	setString(&f.OriginCity, in.OriginCity)
	setString(&f.OriginCode, in.OriginCode)
	setString(&f.DestinationCountry, in.DestinationCountry)
	setString(&f.DestinationCity, in.DestinationCity)
	setString(&f.DestinationCode, in.DestinationCode)
	if in.OriginTime != nil {
		f.OriginTime = *in.OriginTime
	}
	if in.DestinationTime != nil {
		f.DestinationTime = *in.DestinationTime
	}
	if in.IsCancelled != nil {
		f.IsCancelled = *in.IsCancelled
	}
	if in.Price != nil {
		f.Price = *in.Price
	}
}

// Delete removes the flight and its orders. Seats are not released, the
// counter goes away with the flight.
func (s *FlightService) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		removed, err := s.orders.DeleteByFlight(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return outbox.Enqueue(ctx, s.outbox, domain.OrderEvent{
			Type:          domain.EventFlightDeleted,
			FlightID:      id,
			OrdersRemoved: removed,
			OccurredAt:    s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *FlightService) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx, ids...); err != nil {
		log.WithError(err).WithField("flight_ids", ids).Error("invalidate flight cache")
	}
}

var _ FlightUseCase = (*FlightService)(nil)
