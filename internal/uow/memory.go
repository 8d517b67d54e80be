package uow

import (
	bModel "benzback/internal/domains/booking/model"
	dModel "benzback/internal/domains/driver/model"
	oModel "benzback/internal/domains/outbox/model"
	sModel "benzback/internal/domains/session/model"
	uModel "benzback/internal/domains/user/model"
	vModel "benzback/internal/domains/vehicle/model"
	"benzback/shared/dto"
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

var (
	errDuplicateKey   = errors.New("duplicate key")
	errMissingRow     = errors.New("row does not exist")
	errHistoryRewrite = errors.New("booking history may only be appended")
)

// Fault injection points accepted by Memory.InjectFault.
const (
	OpBookingInsert = "booking.insert"
	OpBookingSave   = "booking.save"
	OpVehicleSave   = "vehicle.save"
	OpDriverInsert  = "driver.insert"
	OpUserSave      = "user.save"
	OpSessionInsert = "session.insert"
	OpSessionSave   = "session.save"
	OpOutboxInsert  = "outbox.insert"
	OpOutboxSave    = "outbox.save"
)

type memoryState struct {
	bookings map[string]bModel.Booking
	vehicles map[string]vModel.Vehicle
	drivers  map[string]dModel.Driver
	users    map[string]uModel.User
	sessions map[string]sModel.Session
	outbox   []oModel.Message
}

// Stored values are never mutated in place, so a shallow copy isolates a unit of work.
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		bookings: maps.Clone(s.bookings),
		vehicles: maps.Clone(s.vehicles),
		drivers:  maps.Clone(s.drivers),
		users:    maps.Clone(s.users),
		sessions: maps.Clone(s.sessions),
		outbox:   slices.Clone(s.outbox),
	}
}

type fault struct {
	err       error
	remaining int
}

// Memory is a UnitOfWork over process memory. Units of work are serialized by one writer
// lock and see a private copy of the state that replaces the shared one on success.
type Memory struct {
	mu     sync.RWMutex
	state  *memoryState
	retry  RetryPolicy
	faults map[string]*fault
	faultM sync.Mutex
}

func NewMemory(retry RetryPolicy) *Memory {
	return &Memory{
		state: &memoryState{
			bookings: map[string]bModel.Booking{},
			vehicles: map[string]vModel.Vehicle{},
			drivers:  map[string]dModel.Driver{},
			users:    map[string]uModel.User{},
			sessions: map[string]sModel.Session{},
		},
		retry:  retry,
		faults: map[string]*fault{},
	}
}

func (m *Memory) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return withRetry(ctx, m.retry, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		tx := &memoryTx{memory: m, state: m.state.clone()}

		if err := fn(ctx, tx); err != nil {
			return err
		}

		m.state = tx.state

		return nil
	})
}

func (m *Memory) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(ctx, &memoryTx{memory: m, state: m.state, readOnly: true})
}

// InjectFault makes the next times calls to op fail with err. times <= 0 fails every call.
func (m *Memory) InjectFault(op string, err error, times int) {
	m.faultM.Lock()
	defer m.faultM.Unlock()

	if times <= 0 {
		times = -1
	}

	m.faults[op] = &fault{err: err, remaining: times}
}

func (m *Memory) ClearFaults() {
	m.faultM.Lock()
	defer m.faultM.Unlock()

	m.faults = map[string]*fault{}
}

func (m *Memory) fire(op string) error {
	m.faultM.Lock()
	defer m.faultM.Unlock()

	f, ok := m.faults[op]
	if !ok {
		return nil
	}

	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(m.faults, op)
		}
	}

	return fmt.Errorf("injected fault on %s: %w", op, f.err)
}

func (m *Memory) SeedVehicle(vehicle vModel.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.vehicles[vehicle.ID] = vehicle
}

func (m *Memory) SeedDriver(driver dModel.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.drivers[driver.ID] = driver
}

func (m *Memory) SeedUser(user uModel.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.users[user.ID] = user.Clone()
}

func (m *Memory) SeedBooking(booking bModel.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.bookings[booking.ID] = booking.Clone()
}

func (m *Memory) Booking(id string) (bModel.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, ok := m.state.bookings[id]

	return booking.Clone(), ok
}

func (m *Memory) Vehicle(id string) (vModel.Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	vehicle, ok := m.state.vehicles[id]

	return vehicle, ok
}

func (m *Memory) User(id string) (uModel.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.state.users[id]

	return user.Clone(), ok
}

func (m *Memory) Drivers() []dModel.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.state.drivers, func(d dModel.Driver) string { return d.ID })
}

func (m *Memory) Bookings() []bModel.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.state.bookings, func(b bModel.Booking) string { return b.ID })
}

func (m *Memory) Sessions() []sModel.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedValues(m.state.sessions, func(s sModel.Session) string { return s.ID })
}

func (m *Memory) OutboxMessages() []oModel.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.state.outbox)
}

func sortedValues[T any](values map[string]T, key func(T) string) []T {
	out := slices.Collect(maps.Values(values))
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(key(a), key(b)) })

	return out
}

type memoryTx struct {
	memory   *Memory
	state    *memoryState
	readOnly bool
}

func (t *memoryTx) write(op string) error {
	if t.readOnly {
		return ErrReadOnly
	}

	return t.memory.fire(op)
}

func (t *memoryTx) Bookings() BookingStore { return memBookings{t} }
func (t *memoryTx) Vehicles() VehicleStore { return memVehicles{t} }
func (t *memoryTx) Drivers() DriverStore   { return memDrivers{t} }
func (t *memoryTx) Users() UserStore       { return memUsers{t} }
func (t *memoryTx) Sessions() SessionStore { return memSessions{t} }
func (t *memoryTx) Outbox() OutboxStore    { return memOutbox{t} }

type memBookings struct{ *memoryTx }

func (s memBookings) Get(_ context.Context, id string) (bModel.Booking, error) {
	booking, ok := s.state.bookings[id]
	if !ok {
		return bModel.Booking{}, nil
	}

	return booking.Clone(), nil
}

func (s memBookings) List(_ context.Context, filter bModel.ListFilter, params dto.QueryParams) ([]bModel.Booking, int, error) {
	matched := []bModel.Booking{}

	for _, booking := range s.state.bookings {
		if filter.Matches(&booking) {
			clone := booking.Clone()
			clone.History = nil
			matched = append(matched, clone)
		}
	}

	slices.SortFunc(matched, func(a, b bModel.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	total := len(matched)

	if params.Limit > 0 {
		offset := min(params.Offset(), total)
		matched = matched[offset:min(offset+params.Limit, total)]
	}

	return matched, total, nil
}

func (s memBookings) Insert(_ context.Context, booking bModel.Booking) error {
	if err := s.write(OpBookingInsert); err != nil {
		return err
	}

	if _, ok := s.state.bookings[booking.ID]; ok {
		return fmt.Errorf("%w: booking %s", errDuplicateKey, booking.ID)
	}

	s.state.bookings[booking.ID] = booking.Clone()

	return nil
}

func (s memBookings) Save(_ context.Context, booking bModel.Booking) error {
	if err := s.write(OpBookingSave); err != nil {
		return err
	}

	stored, ok := s.state.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("%w: booking %s", errMissingRow, booking.ID)
	}

	if len(booking.History) < len(stored.History) || !slices.Equal(booking.History[:len(stored.History)], stored.History) {
		return fmt.Errorf("%w: booking %s", errHistoryRewrite, booking.ID)
	}

	s.state.bookings[booking.ID] = booking.Clone()

	return nil
}

type memVehicles struct{ *memoryTx }

func (s memVehicles) Get(_ context.Context, id string) (vModel.Vehicle, error) {
	return s.state.vehicles[id], nil
}

func (s memVehicles) Save(_ context.Context, vehicle vModel.Vehicle) error {
	if err := s.write(OpVehicleSave); err != nil {
		return err
	}

	if _, ok := s.state.vehicles[vehicle.ID]; !ok {
		return fmt.Errorf("%w: vehicle %s", errMissingRow, vehicle.ID)
	}

	s.state.vehicles[vehicle.ID] = vehicle

	return nil
}

type memDrivers struct{ *memoryTx }

func (s memDrivers) Get(_ context.Context, id string) (dModel.Driver, error) {
	return s.state.drivers[id], nil
}

func (s memDrivers) Insert(_ context.Context, driver dModel.Driver) error {
	if err := s.write(OpDriverInsert); err != nil {
		return err
	}

	if _, ok := s.state.drivers[driver.ID]; ok {
		return fmt.Errorf("%w: driver %s", errDuplicateKey, driver.ID)
	}

	s.state.drivers[driver.ID] = driver

	return nil
}

func (s memDrivers) ListEligible(_ context.Context, ids []string) ([]dModel.Driver, error) {
	eligible := []dModel.Driver{}

	for _, id := range ids {
		if driver, ok := s.state.drivers[id]; ok && driver.EligibleForAssignment() {
			eligible = append(eligible, driver)
		}
	}

	slices.SortFunc(eligible, func(a, b dModel.Driver) int { return cmp.Compare(a.ID, b.ID) })

	return slices.CompactFunc(eligible, func(a, b dModel.Driver) bool { return a.ID == b.ID }), nil
}

type memUsers struct{ *memoryTx }

func (s memUsers) Get(_ context.Context, id string) (uModel.User, error) {
	user := s.state.users[id]

	return user.Clone(), nil
}

func (s memUsers) Save(_ context.Context, user uModel.User) error {
	if err := s.write(OpUserSave); err != nil {
		return err
	}

	if _, ok := s.state.users[user.ID]; !ok {
		return fmt.Errorf("%w: user %s", errMissingRow, user.ID)
	}

	s.state.users[user.ID] = user.Clone()

	return nil
}

type memSessions struct{ *memoryTx }

func (s memSessions) GetOpenByBooking(_ context.Context, bookingID string) (sModel.Session, error) {
	for _, session := range s.state.sessions {
		if session.BookingID == bookingID && session.Status == sModel.StatusOpen {
			return session, nil
		}
	}

	return sModel.Session{}, nil
}

func (s memSessions) Insert(_ context.Context, session sModel.Session) error {
	if err := s.write(OpSessionInsert); err != nil {
		return err
	}

	if _, ok := s.state.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s", errDuplicateKey, session.ID)
	}

	s.state.sessions[session.ID] = session

	return nil
}

func (s memSessions) Save(_ context.Context, session sModel.Session) error {
	if err := s.write(OpSessionSave); err != nil {
		return err
	}

	if _, ok := s.state.sessions[session.ID]; !ok {
		return fmt.Errorf("%w: session %s", errMissingRow, session.ID)
	}

	s.state.sessions[session.ID] = session

	return nil
}

type memOutbox struct{ *memoryTx }

func (s memOutbox) Insert(_ context.Context, messages ...oModel.Message) error {
	for _, message := range messages {
		if err := s.write(OpOutboxInsert); err != nil {
			return err
		}

		s.state.outbox = append(s.state.outbox, message)
	}

	return nil
}

func (s memOutbox) ClaimDue(_ context.Context, now time.Time, limit int) ([]oModel.Message, error) {
	due := []oModel.Message{}

	for _, message := range s.state.outbox {
		if limit > 0 && len(due) == limit {
			break
		}

		if message.Status == oModel.StatusPending && !message.NextAttemptAt.After(now) {
			due = append(due, message)
		}
	}

	return due, nil
}

func (s memOutbox) Save(_ context.Context, message oModel.Message) error {
	if err := s.write(OpOutboxSave); err != nil {
		return err
	}

	idx := slices.IndexFunc(s.state.outbox, func(m oModel.Message) bool { return m.ID == message.ID })
	if idx < 0 {
		return fmt.Errorf("%w: outbox message %s", errMissingRow, message.ID)
	}

	s.state.outbox[idx] = message

	return nil
}
