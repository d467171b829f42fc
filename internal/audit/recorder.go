// Package audit turns published order events into order_history rows.
package audit

import (
	"context"
	"encoding/json"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/kafka"
	"github.com/Domenick1991/flightorders/internal/metrics"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Recorder struct {
	history repository.HistoryRepository
}

func NewRecorder(history repository.HistoryRepository) *Recorder {
	return &Recorder{history: history}
}

// Handle records one event. Malformed messages are logged and skipped so
// they do not block the partition.
func (r *Recorder) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.WithError(err).WithField("key", string(msg.Key)).Warn("skip malformed order event")
		return nil
	}
	if event.ID == "" || event.OrderID == 0 {
		log.WithFields(log.Fields{"type": event.Type, "flight_id": event.FlightID}).Debug("event has no order, not audited")
		return nil
	}

	if err := r.history.Append(ctx, event.HistoryEntry()); err != nil {
		return errors.Wrapf(err, "append history for event %s", event.ID)
	}
	metrics.AuditEntries.WithLabelValues(event.Type).Inc()
	return nil
}
