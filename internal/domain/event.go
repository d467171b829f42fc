package domain

import (
	"strconv"
	"time"
)

const (
	EventOrderCreated  = "order_created"
	EventOrderUpdated  = "order_updated"
	EventOrderDeleted  = "order_deleted"
	EventFlightDeleted = "flight_deleted"
)

// OrderEvent describes a committed ledger transition. It is written to the
// outbox in the same transaction as the change it describes.
type OrderEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OrderID       int64     `json:"order_id,omitempty"`
	FlightID      int64     `json:"flight_id"`
	UserID        int64     `json:"user_id,omitempty"`
	Seats         int       `json:"seats"`
	PreviousSeats int       `json:"previous_seats"`
	SeatsLeft     int       `json:"seats_left"`
	TotalPrice    float64   `json:"total_price"`
	OrdersRemoved int64     `json:"orders_removed,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Key is the partition key used when the event is published.
func (e OrderEvent) Key() string {
	if e.OrderID != 0 {
		return "order-" + strconv.FormatInt(e.OrderID, 10)
	}
	return "flight-" + strconv.FormatInt(e.FlightID, 10)
}

func (e OrderEvent) HistoryEntry() OrderHistoryEntry {
	return OrderHistoryEntry{
		EventID:    e.ID,
		OrderID:    e.OrderID,
		FlightID:   e.FlightID,
		UserID:     e.UserID,
		EventType:  e.Type,
		Seats:      e.Seats,
		PrevSeats:  e.PreviousSeats,
		SeatsLeft:  e.SeatsLeft,
		TotalPrice: e.TotalPrice,
		OccurredAt: e.OccurredAt,
	}
}

const (
	OutboxStatusNew        = "new"
	OutboxStatusProcessing = "processing"
	OutboxStatusProcessed  = "processed"
)

type OutboxEvent struct {
	ID        string
	EventType string
	Key       string
	Payload   []byte
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
