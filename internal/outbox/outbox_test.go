package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

func TestEnqueue(t *testing.T) {
	store := memory.NewStore()

	event := domain.OrderEvent{
		Type:       domain.EventOrderCreated,
		OrderID:    5,
		FlightID:   2,
		Seats:      3,
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, Enqueue(context.Background(), store.Outbox(), event))

	batch, err := store.Outbox().FetchBatch(context.Background(), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "order-5", batch[0].Key)
	assert.Equal(t, domain.EventOrderCreated, batch[0].EventType)
	assert.NotEmpty(t, batch[0].ID)

	var decoded domain.OrderEvent
	require.NoError(t, json.Unmarshal(batch[0].Payload, &decoded))
	assert.Equal(t, batch[0].ID, decoded.ID)
	assert.Equal(t, 3, decoded.Seats)
}

func TestRelay_ProcessBatch(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, Enqueue(ctx, store.Outbox(), domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: 1, FlightID: 1}))
	require.NoError(t, Enqueue(ctx, store.Outbox(), domain.OrderEvent{Type: domain.EventOrderDeleted, OrderID: 2, FlightID: 1}))

	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "order-events", "order-1", mock.AnythingOfType("json.RawMessage")).Return(nil)
	pub.On("Publish", mock.Anything, "order-events", "order-2", mock.AnythingOfType("json.RawMessage")).Return(assert.AnError)

	relay := NewRelay(store.Outbox(), pub, "order-events", time.Second, 10)

	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pub.AssertExpectations(t)

	// the failed event is claimable again
	batch, err := store.Outbox().FetchBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "order-2", batch[0].Key)
}

func TestRelay_ProcessBatch_Empty(t *testing.T) {
	pub := &MockPublisher{}
	relay := NewRelay(memory.NewStore().Outbox(), pub, "order-events", time.Second, 10)

	n, err := relay.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Тест: событие, захваченное упавшим воркером, публикуется после истечения аренды
func TestRelay_ProcessBatch_ReclaimsAbandonedEvents(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, Enqueue(ctx, store.Outbox(), domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: 1, FlightID: 1}))

	// claimed by a worker that never reported back
	claimed, err := store.Outbox().FetchBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, "order-events", "order-1", mock.AnythingOfType("json.RawMessage")).Return(nil)
	relay := NewRelay(store.Outbox(), pub, "order-events", time.Second, 10, WithLease(time.Minute))

	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	now = now.Add(2 * time.Minute)
	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pub.AssertExpectations(t)

	// processed events are not reclaimed
	now = now.Add(time.Hour)
	n, err = relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
