package domain

import (
	"math"
	"time"
)

// Order is a seat reservation held by one user against one flight. A stored
// row is an active order; deleting it is the only terminal transition.
type Order struct {
	ID         int64     `json:"id"`
	FlightID   int64     `json:"flight_id"`
	UserID     int64     `json:"user_id"`
	Seats      int       `json:"seats"`
	OrderDate  time.Time `json:"order_date"`
	TotalPrice float64   `json:"total_price"`

	// Filled by read projections only.
	FlightNum string `json:"flight_num,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// TotalPrice returns price * seats rounded to cents.
func TotalPrice(price float64, seats int) float64 {
	return math.Round(price*float64(seats)*100) / 100
}

// OrderHistoryEntry is one audited ledger transition.
type OrderHistoryEntry struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	FlightID   int64     `json:"flight_id"`
	UserID     int64     `json:"user_id"`
	EventType  string    `json:"event_type"`
	Seats      int       `json:"seats"`
	PrevSeats  int       `json:"previous_seats"`
	SeatsLeft  int       `json:"seats_left"`
	TotalPrice float64   `json:"total_price"`
	OccurredAt time.Time `json:"occurred_at"`
}
