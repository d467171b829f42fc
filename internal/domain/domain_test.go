package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlight() *Flight {
	origin := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Flight{
		FlightNum:          "LY001",
		OriginCountry:      "Israel",
		OriginCity:         "Tel Aviv",
		OriginCode:         "TLV",
		DestinationCountry: "France",
		DestinationCity:    "Paris",
		DestinationCode:    "CDG",
		OriginTime:         origin,
		DestinationTime:    origin.Add(5 * time.Hour),
		TotalSeats:         10,
		SeatsLeft:          10,
		Price:              120.5,
	}
}

func TestFlight_Validate(t *testing.T) {
	require.NoError(t, validFlight().Validate())

	testCases := []struct {
		name   string
		mutate func(f *Flight)
		field  string
	}{
		{"missing flight number", func(f *Flight) { f.FlightNum = " " }, "flight_num"},
		{"arrival before departure", func(f *Flight) { f.DestinationTime = f.OriginTime.Add(-time.Hour) }, "destination_dt"},
		{"arrival equals departure", func(f *Flight) { f.DestinationTime = f.OriginTime }, "destination_dt"},
		{"negative total seats", func(f *Flight) { f.TotalSeats = -1; f.SeatsLeft = 0 }, "total_seats"},
		{"seats left above total", func(f *Flight) { f.SeatsLeft = 11 }, "seats_left"},
		{"negative price", func(f *Flight) { f.Price = -1 }, "price"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFlight()
			tc.mutate(f)
			err := f.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestFlight_ZeroCapacityIsValid(t *testing.T) {
	f := validFlight()
	f.TotalSeats = 0
	f.SeatsLeft = 0
	assert.NoError(t, f.Validate())
}

func TestTotalPrice(t *testing.T) {
	assert.Equal(t, 400.0, TotalPrice(100, 4))
	assert.Equal(t, 0.3, TotalPrice(0.1, 3))
}

func TestParseFlightTime(t *testing.T) {
	ts, err := ParseFlightTime("origin_dt", "24/12/2026 18:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 24, 18, 45, 0, 0, time.UTC), ts)
	assert.Equal(t, "24/12/2026 18:45:00", ts.Format(FlightTimeOutputLayout))
	assert.Equal(t, "24-12-2026", ts.Format(OrderDateLayout))

	_, err = ParseFlightTime("origin_dt", "2026-12-24T18:45:00Z")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseFilterDate(t *testing.T) {
	ts, ok := ParseFilterDate("01/02/2026")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), ts)

	ts, ok = ParseFilterDate("01/02/2026 07:30")
	require.True(t, ok)
	assert.Equal(t, 7, ts.Hour())

	_, ok = ParseFilterDate("yesterday")
	assert.False(t, ok)
}

func TestNameQuery(t *testing.T) {
	q := ParseNameQuery("dan")
	assert.True(t, q.Matches("Daniel", "Cohen"))
	assert.True(t, q.Matches("Avi", "Dangoor"))
	assert.False(t, q.Matches("Avi", "Levi"))

	q = ParseNameQuery("dan coh")
	assert.True(t, q.Matches("Daniel", "Cohen"))
	assert.False(t, q.Matches("Daniel", "Levi"))

	assert.True(t, ParseNameQuery("  ").IsEmpty())
}

func TestOrderEvent_Key(t *testing.T) {
	assert.Equal(t, "order-7", OrderEvent{OrderID: 7, FlightID: 3}.Key())
	assert.Equal(t, "flight-3", OrderEvent{FlightID: 3}.Key())
}
