package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/Domenick1991/flightorders/internal/repository/memory"
	"github.com/Domenick1991/flightorders/internal/service/inventory"
	"github.com/Domenick1991/flightorders/internal/service/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	args := m.Called(ctx, flight)
	return args.Error(0)
}

func (m *MockFlightRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightRepository) AdjustSeats(ctx context.Context, id int64, delta int) (*domain.Flight, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight, generation int64) error {
	args := m.Called(ctx, flights, generation)
	return args.Error(0)
}

func (m *MockCache) GetFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlight(ctx context.Context, flight *domain.Flight, generation int64) error {
	args := m.Called(ctx, flight, generation)
	return args.Error(0)
}

func (m *MockCache) Generation(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) InvalidateFlights(ctx context.Context, ids ...int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	return []domain.Flight{
		{
			ID:                 4,
			FlightNum:          "SU30",
			OriginCountry:      "Russia",
			OriginCity:         "Moscow",
			OriginCode:         "SVO",
			DestinationCountry: "Russia",
			DestinationCity:    "Saint Petersburg",
			DestinationCode:    "LED",
			OriginTime:         time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
			DestinationTime:    time.Date(2026, 7, 1, 11, 30, 0, 0, time.UTC),
			TotalSeats:         150,
			SeatsLeft:          149,
			Price:              5000,
		},
	}
}

func createInput() CreateFlightInput {
	return CreateFlightInput{
		FlightNum:          "SU30",
		OriginCountry:      "Russia",
		OriginCity:         "Moscow",
		OriginCode:         "SVO",
		DestinationCountry: "Russia",
		DestinationCity:    "Saint Petersburg",
		DestinationCode:    "LED",
		OriginTime:         time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
		DestinationTime:    time.Date(2026, 7, 1, 11, 30, 0, 0, time.UTC),
		TotalSeats:         150,
		Price:              5000,
	}
}

// Тест: список рейсов, кэш пустой
func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockCache.On("Generation", ctx).Return(int64(3), nil).Once()
	mockRepo.On("List", ctx, repository.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights, int64(3)).Return(nil).Once()

	result, err := service.List(ctx, repository.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

// Тест: список рейсов из кэша
func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	result, err := service.List(ctx, repository.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything, mock.Anything)
}

// Тест: ошибка кэша не ломает список
func TestFlightService_List_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, errors.New("cache error")).Once()
	mockCache.On("Generation", ctx).Return(int64(3), nil).Once()
	mockRepo.On("List", ctx, repository.FlightFilter{}).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights, int64(3)).Return(nil).Once()

	result, err := service.List(ctx, repository.FlightFilter{})

	assert.NoError(t, err)
	assert.Equal(t, flights, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

// Тест: фильтрованный список идет мимо кэша
func TestFlightService_List_FilterBypassesCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	filter := repository.FlightFilter{OriginCity: "moscow"}

	mockRepo.On("List", ctx, filter).Return(sampleFlights(), nil).Once()

	result, err := service.List(ctx, filter)

	assert.NoError(t, err)
	assert.Len(t, result, 1)
	mockCache.AssertNotCalled(t, "GetFlights", mock.Anything)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything, mock.Anything)
}

// Тест: ошибка репозитория
func TestFlightService_List_RepositoryError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	expectedErr := errors.New("database error")

	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockCache.On("Generation", ctx).Return(int64(0), nil).Once()
	mockRepo.On("List", ctx, repository.FlightFilter{}).Return(nil, expectedErr).Once()

	result, err := service.List(ctx, repository.FlightFilter{})

	assert.Nil(t, result)
	assert.Equal(t, expectedErr, err)
	mockCache.AssertNotCalled(t, "SetFlights", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlightService_GetByID_FillsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	flight := &sampleFlights()[0]

	mockCache.On("GetFlight", ctx, int64(4)).Return(nil, nil).Once()
	mockCache.On("Generation", ctx).Return(int64(7), nil).Once()
	mockRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()
	mockCache.On("SetFlight", ctx, flight, int64(7)).Return(nil).Once()

	result, err := service.GetByID(ctx, 4)

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockCache.AssertExpectations(t)
}

// Тест: без поколения кэша рейс отдается без записи в кэш
func TestFlightService_GetByID_GenerationErrorSkipsCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()
	flight := &sampleFlights()[0]

	mockCache.On("GetFlight", ctx, int64(4)).Return(nil, nil).Once()
	mockCache.On("Generation", ctx).Return(int64(0), errors.New("redis down")).Once()
	mockRepo.On("GetByID", ctx, int64(4)).Return(flight, nil).Once()

	result, err := service.GetByID(ctx, 4)

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockCache.AssertNotCalled(t, "SetFlight", mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertExpectations(t)
}

// Тест: ошибка инвалидации не ломает запись
func TestFlightService_Create_InvalidationErrorIsNotFatal(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx, []int64(nil)).Return(errors.New("redis down")).Once()

	flight, err := service.Create(ctx, createInput())

	require.NoError(t, err)
	assert.Equal(t, 150, flight.SeatsLeft)
	mockCache.AssertExpectations(t)
}

func TestFlightService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(nil, mockRepo, nil, nil, nil)
	ctx := context.Background()

	mockRepo.On("GetByID", ctx, int64(9)).Return(nil, domain.ErrNotFound).Once()

	_, err := service.GetByID(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlightService_Create_DefaultsSeatsLeft(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(nil, mockRepo, nil, nil, mockCache)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.MatchedBy(func(f *domain.Flight) bool {
		return f.SeatsLeft == 150 && f.TotalSeats == 150
	})).Return(nil).Once()
	mockCache.On("InvalidateFlights", ctx, []int64(nil)).Return(nil).Once()

	flight, err := service.Create(ctx, createInput())

	require.NoError(t, err)
	assert.Equal(t, 150, flight.SeatsLeft)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Create_ExplicitZeroSeatsLeft(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(nil, mockRepo, nil, nil, nil)
	ctx := context.Background()
	zero := 0
	input := createInput()
	input.SeatsLeft = &zero

	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Flight")).Return(nil).Once()

	flight, err := service.Create(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, 0, flight.SeatsLeft)
}

func TestFlightService_Create_Validation(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(nil, mockRepo, nil, nil, nil)
	ctx := context.Background()

	input := createInput()
	input.DestinationTime = input.OriginTime.Add(-time.Hour)
	_, err := service.Create(ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	input = createInput()
	tooMany := 151
	input.SeatsLeft = &tooMany
	_, err = service.Create(ctx, input)
	assert.ErrorIs(t, err, domain.ErrValidation)

	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func newStoreService(t *testing.T) (*memory.Store, *FlightService, *domain.Flight) {
	t.Helper()
	store := memory.NewStore()
	service := NewFlightService(store, store.Flights(), store.Orders(), store.Outbox(), nil)
	flight, err := service.Create(context.Background(), createInput())
	require.NoError(t, err)
	return store, service, flight
}

func TestFlightService_Update_Partial(t *testing.T) {
	_, service, flight := newStoreService(t)
	price := 6100.0
	cancelled := true
	same := 150

	updated, err := service.Update(context.Background(), flight.ID, UpdateFlightInput{
		Price:       &price,
		IsCancelled: &cancelled,
		TotalSeats:  &same,
	})

	require.NoError(t, err)
	assert.Equal(t, 6100.0, updated.Price)
	assert.True(t, updated.IsCancelled)
	assert.Equal(t, "SU30", updated.FlightNum)
	assert.Equal(t, 150, updated.SeatsLeft)
}

func TestFlightService_Update_SeatCountersLocked(t *testing.T) {
	_, service, flight := newStoreService(t)
	total := 200
	left := 10

	_, err := service.Update(context.Background(), flight.ID, UpdateFlightInput{TotalSeats: &total})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.Update(context.Background(), flight.ID, UpdateFlightInput{SeatsLeft: &left})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFlightService_Update_RechecksSchedule(t *testing.T) {
	_, service, flight := newStoreService(t)
	arrival := flight.OriginTime.Add(-time.Minute)

	_, err := service.Update(context.Background(), flight.ID, UpdateFlightInput{DestinationTime: &arrival})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.Update(context.Background(), 999, UpdateFlightInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFlightService_Delete_CascadesOrdersWithoutRelease(t *testing.T) {
	store, service, flight := newStoreService(t)
	ctx := context.Background()

	user := &domain.User{Username: "olga", Email: "olga@example.com", FirstName: "Olga", LastName: "Ivanova"}
	require.NoError(t, store.Users().Create(ctx, user))
	ledger := orders.NewOrderService(store, store.Orders(), store.Users(), inventory.New(store.Flights()), store.Outbox(), store.History())
	order, err := ledger.CreateOrder(ctx, orders.CreateOrderInput{FlightID: flight.ID, UserID: user.ID, Seats: 3})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, flight.ID))

	_, err = store.Flights().GetByID(ctx, flight.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Orders().GetByID(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	batch, err := store.Outbox().FetchBatch(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, domain.EventFlightDeleted, batch[1].EventType)

	assert.ErrorIs(t, service.Delete(ctx, flight.ID), domain.ErrNotFound)
}
