package domain

import (
	"strings"
	"time"
)

type Flight struct {
	ID                 int64     `json:"id"`
	FlightNum          string    `json:"flight_num"`
	OriginCountry      string    `json:"origin_country"`
	OriginCity         string    `json:"origin_city"`
	OriginCode         string    `json:"origin_code"`
	DestinationCountry string    `json:"destination_country"`
	DestinationCity    string    `json:"destination_city"`
	DestinationCode    string    `json:"destination_code"`
	OriginTime         time.Time `json:"origin_time"`
	DestinationTime    time.Time `json:"destination_time"`
	TotalSeats         int       `json:"total_seats"`
	SeatsLeft          int       `json:"seats_left"`
	IsCancelled        bool      `json:"is_cancelled"`
	Price              float64   `json:"price"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SeatsReserved is the number of seats currently held by orders.
func (f *Flight) SeatsReserved() int {
	return f.TotalSeats - f.SeatsLeft
}

// Validate checks the field constraints of a flight about to be written.
func (f *Flight) Validate() error {
	required := []struct {
		field, value string
	}{
		{"flight_num", f.FlightNum},
		{"origin_country", f.OriginCountry},
		{"origin_city", f.OriginCity},
		{"origin_code", f.OriginCode},
		{"destination_country", f.DestinationCountry},
		{"destination_city", f.DestinationCity},
		{"destination_code", f.DestinationCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, "this field is required")
		}
	}
	if f.OriginTime.IsZero() {
		return NewValidationError("origin_dt", "this field is required")
	}
	if f.DestinationTime.IsZero() {
		return NewValidationError("destination_dt", "this field is required")
	}
	if !f.DestinationTime.After(f.OriginTime) {
		return NewValidationError("destination_dt", "must be after origin_dt")
	}
	if f.TotalSeats < 0 {
		return NewValidationError("total_seats", "must be greater than or equal to 0")
	}
	if f.SeatsLeft < 0 || f.SeatsLeft > f.TotalSeats {
		return NewValidationError("seats_left", "must be between 0 and total_seats")
	}
	if f.Price < 0 {
		return NewValidationError("price", "must be greater than or equal to 0")
	}
	return nil
}
