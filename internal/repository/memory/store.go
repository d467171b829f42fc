// Package memory is an in-process implementation of the repository
// contracts. A transaction holds the store lock for its whole duration and
// restores a snapshot when it fails, so transactions are serial.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/Domenick1991/flightorders/internal/repository"
	"github.com/pkg/errors"
)

type txMarker struct{}

type state struct {
	flights map[int64]domain.Flight
	orders  map[int64]domain.Order
	users   map[int64]domain.User
	outbox  []domain.OutboxEvent
	history map[string]domain.OrderHistoryEntry

	nextFlightID int64
	nextOrderID  int64
	nextUserID   int64
}

func (s *state) clone() state {
	c := state{
		flights:      make(map[int64]domain.Flight, len(s.flights)),
		orders:       make(map[int64]domain.Order, len(s.orders)),
		users:        make(map[int64]domain.User, len(s.users)),
		outbox:       make([]domain.OutboxEvent, len(s.outbox)),
		history:      make(map[string]domain.OrderHistoryEntry, len(s.history)),
		nextFlightID: s.nextFlightID,
		nextOrderID:  s.nextOrderID,
		nextUserID:   s.nextUserID,
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	copy(c.outbox, s.outbox)
	for k, v := range s.history {
		c.history[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: state{
			flights: make(map[int64]domain.Flight),
			orders:  make(map[int64]domain.Order),
			users:   make(map[int64]domain.User),
			history: make(map[string]domain.OrderHistoryEntry),
		},
		now: time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txMarker{}, true))
}

// lock takes the store lock unless ctx already runs inside a transaction.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Flights() repository.FlightRepository { return flightRepo{s} }
func (s *Store) Orders() repository.OrderRepository   { return orderRepo{s} }
func (s *Store) Users() repository.UserRepository     { return userRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository  { return outboxRepo{s} }
func (s *Store) History() repository.HistoryRepository {
	return historyRepo{s}
}

type flightRepo struct{ s *Store }

func (r flightRepo) List(ctx context.Context, filter repository.FlightFilter) ([]domain.Flight, error) {
	defer r.s.lock(ctx)()

	flights := make([]domain.Flight, 0)
	for _, f := range r.s.data.flights {
		if matchFlight(f, filter) {
			flights = append(flights, f)
		}
	}
	sort.Slice(flights, func(i, j int) bool {
		if flights[i].OriginTime.Equal(flights[j].OriginTime) {
			return flights[i].ID < flights[j].ID
		}
		return flights[i].OriginTime.Before(flights[j].OriginTime)
	})
	return flights, nil
}

func matchFlight(f domain.Flight, filter repository.FlightFilter) bool {
	switch {
	case filter.OriginCity != "" && !strings.EqualFold(f.OriginCity, filter.OriginCity):
		return false
	case filter.DestinationCity != "" && !strings.EqualFold(f.DestinationCity, filter.DestinationCity):
		return false
	case filter.FlightNum != "" && !strings.EqualFold(f.FlightNum, filter.FlightNum):
		return false
	case filter.MinPrice != nil && f.Price < *filter.MinPrice:
		return false
	case filter.MaxPrice != nil && f.Price > *filter.MaxPrice:
		return false
	case filter.IsCancelled != nil && f.IsCancelled != *filter.IsCancelled:
		return false
	case filter.DepartsFrom != nil && f.OriginTime.Before(*filter.DepartsFrom):
		return false
	case filter.ArrivesBy != nil && f.DestinationTime.After(*filter.ArrivesBy):
		return false
	}
	return true
}

func (r flightRepo) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	defer r.s.lock(ctx)()

	f, ok := r.s.data.flights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (r flightRepo) Create(ctx context.Context, f *domain.Flight) error {
	defer r.s.lock(ctx)()

	if f.SeatsLeft < 0 || f.SeatsLeft > f.TotalSeats {
		return errors.New("seats_left out of range")
	}
	r.s.data.nextFlightID++
	f.ID = r.s.data.nextFlightID
	f.CreatedAt = r.s.now()
	f.UpdatedAt = f.CreatedAt
	r.s.data.flights[f.ID] = *f
	return nil
}

func (r flightRepo) Update(ctx context.Context, f *domain.Flight) error {
	defer r.s.lock(ctx)()

	stored, ok := r.s.data.flights[f.ID]
	if !ok {
		return domain.ErrNotFound
	}
	updated := *f
	updated.TotalSeats = stored.TotalSeats
	updated.SeatsLeft = stored.SeatsLeft
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = r.s.now()
	r.s.data.flights[f.ID] = updated
	*f = updated
	return nil
}

func (r flightRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.flights[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.data.flights, id)
	for oid, o := range r.s.data.orders {
		if o.FlightID == id {
			delete(r.s.data.orders, oid)
		}
	}
	return nil
}

func (r flightRepo) AdjustSeats(ctx context.Context, id int64, delta int) (*domain.Flight, error) {
	defer r.s.lock(ctx)()

	f, ok := r.s.data.flights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if delta < 0 && f.IsCancelled {
		return nil, domain.ErrFlightCancelled
	}
	if f.SeatsLeft+delta < 0 {
		return nil, domain.ErrInsufficientSeats
	}
	f.SeatsLeft = min(f.TotalSeats, f.SeatsLeft+delta)
	f.UpdatedAt = r.s.now()
	r.s.data.flights[id] = f
	return &f, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) project(o domain.Order) domain.Order {
	if f, ok := r.s.data.flights[o.FlightID]; ok {
		o.FlightNum = f.FlightNum
	}
	if u, ok := r.s.data.users[o.UserID]; ok {
		o.UserName = u.FullName()
	}
	return o
}

func (r orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, error) {
	defer r.s.lock(ctx)()

	orders := make([]domain.Order, 0)
	for _, o := range r.s.data.orders {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.FlightID != 0 && o.FlightID != filter.FlightID {
			continue
		}
		o = r.project(o)
		if filter.FlightNum != "" && o.FlightNum != filter.FlightNum {
			continue
		}
		if !filter.Name.IsEmpty() {
			u := r.s.data.users[o.UserID]
			if !filter.Name.Matches(u.FirstName, u.LastName) {
				continue
			}
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (r orderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	defer r.s.lock(ctx)()

	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o = r.project(o)
	return &o, nil
}

func (r orderRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	defer r.s.lock(ctx)()

	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &o, nil
}

func (r orderRepo) Create(ctx context.Context, o *domain.Order) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.flights[o.FlightID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.s.data.users[o.UserID]; !ok {
		return domain.ErrNotFound
	}
	r.s.data.nextOrderID++
	o.ID = r.s.data.nextOrderID
	stored := *o
	stored.FlightNum, stored.UserName = "", ""
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r orderRepo) Update(ctx context.Context, o *domain.Order) error {
	defer r.s.lock(ctx)()

	stored, ok := r.s.data.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Seats = o.Seats
	stored.OrderDate = o.OrderDate
	stored.TotalPrice = o.TotalPrice
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r orderRepo) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.data.orders, id)
	return nil
}

func (r orderRepo) DeleteByFlight(ctx context.Context, flightID int64) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for id, o := range r.s.data.orders {
		if o.FlightID == flightID {
			delete(r.s.data.orders, id)
			n++
		}
	}
	return n, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *domain.User) error {
	defer r.s.lock(ctx)()

	for _, existing := range r.s.data.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return errors.Wrap(domain.ErrConflict, "username or email already taken")
		}
	}
	r.s.data.nextUserID++
	u.ID = r.s.data.nextUserID
	u.CreatedAt = r.s.now()
	r.s.data.users[u.ID] = *u
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r userRepo) List(ctx context.Context, name domain.NameQuery) ([]domain.User, error) {
	defer r.s.lock(ctx)()

	users := make([]domain.User, 0)
	for _, u := range r.s.data.users {
		if name.IsEmpty() || name.Matches(u.FirstName, u.LastName) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(ctx context.Context, e *domain.OutboxEvent) error {
	defer r.s.lock(ctx)()

	e.Status = domain.OutboxStatusNew
	e.CreatedAt = r.s.now()
	e.UpdatedAt = e.CreatedAt
	r.s.data.outbox = append(r.s.data.outbox, *e)
	return nil
}

func (r outboxRepo) FetchBatch(ctx context.Context, limit int, lease time.Duration) ([]domain.OutboxEvent, error) {
	defer r.s.lock(ctx)()

	now := r.s.now()
	expired := now.Add(-lease)
	var claimed []domain.OutboxEvent
	for i := range r.s.data.outbox {
		if len(claimed) == limit {
			break
		}
		e := r.s.data.outbox[i]
		stale := e.Status == domain.OutboxStatusProcessing && e.UpdatedAt.Before(expired)
		if e.Status != domain.OutboxStatusNew && !stale {
			continue
		}
		r.s.data.outbox[i].Status = domain.OutboxStatusProcessing
		r.s.data.outbox[i].UpdatedAt = now
		claimed = append(claimed, r.s.data.outbox[i])
	}
	return claimed, nil
}

func (r outboxRepo) MarkProcessed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusProcessed)
}

func (r outboxRepo) MarkFailed(ctx context.Context, ids []string) error {
	return r.setStatus(ctx, ids, domain.OutboxStatusNew)
}

func (r outboxRepo) setStatus(ctx context.Context, ids []string, status string) error {
	defer r.s.lock(ctx)()

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range r.s.data.outbox {
		if _, ok := set[r.s.data.outbox[i].ID]; ok {
			r.s.data.outbox[i].Status = status
			r.s.data.outbox[i].UpdatedAt = r.s.now()
		}
	}
	return nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Append(ctx context.Context, e domain.OrderHistoryEntry) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.data.history[e.EventID]; !ok {
		r.s.data.history[e.EventID] = e
	}
	return nil
}

func (r historyRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderHistoryEntry, error) {
	defer r.s.lock(ctx)()

	entries := make([]domain.OrderHistoryEntry, 0)
	for _, e := range r.s.data.history {
		if e.OrderID == orderID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].EventID < entries[j].EventID
		}
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries, nil
}

var _ repository.Transactor = (*Store)(nil)
