// Package inventory owns the seats_left counter of a flight. Every change
// goes through one conditional update, so concurrent callers can never
// oversell a flight or push the counter past its capacity.
package inventory

import (
	"context"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository"
)

type Inventory struct {
	flights repository.FlightRepository
}

func New(flights repository.FlightRepository) *Inventory {
	return &Inventory{flights: flights}
}

// Reserve takes n seats off the flight.
func (i *Inventory) Reserve(ctx context.Context, flightID int64, n int) (*domain.Flight, error) {
	if n <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return i.flights.AdjustSeats(ctx, flightID, -n)
}

// Release gives n seats back, clamped at total_seats.
func (i *Inventory) Release(ctx context.Context, flightID int64, n int) (*domain.Flight, error) {
	if n < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if n == 0 {
		return i.flights.GetByID(ctx, flightID)
	}
	return i.flights.AdjustSeats(ctx, flightID, n)
}

// Adjust applies a signed change. Negative values behave like Reserve.
func (i *Inventory) Adjust(ctx context.Context, flightID int64, delta int) (*domain.Flight, error) {
	if delta == 0 {
		return i.flights.GetByID(ctx, flightID)
	}
	return i.flights.AdjustSeats(ctx, flightID, delta)
}

// InitialSeatsLeft resolves seats_left for a new flight. Absent means full.
func InitialSeatsLeft(totalSeats int, seatsLeft *int) (int, error) {
	if totalSeats < 0 {
		return 0, domain.NewValidationError("total_seats", "must not be negative")
	}
	if seatsLeft == nil {
		return totalSeats, nil
	}
	if *seatsLeft < 0 || *seatsLeft > totalSeats {
		return 0, domain.NewValidationError("seats_left", "must be between 0 and total_seats")
	}
	return *seatsLeft, nil
}
