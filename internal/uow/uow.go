// Package uow runs multi-aggregate reads and writes as one atomic unit.
package uow

import (
	bModel "benzback/internal/domains/booking/model"
	dModel "benzback/internal/domains/driver/model"
	oModel "benzback/internal/domains/outbox/model"
	sModel "benzback/internal/domains/session/model"
	uModel "benzback/internal/domains/user/model"
	vModel "benzback/internal/domains/vehicle/model"
	"benzback/shared/constant"
	"benzback/shared/dto"
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrConflict reports that a concurrent unit of work invalidated this one. It is retried.
	ErrConflict = errors.New("unit of work conflict")
	ErrReadOnly = errors.New("write attempted in a read-only unit of work")
)

// UnitOfWork hands fn a Tx whose changes commit together when fn returns nil and are
// discarded otherwise. Transient failures re-run fn from the start, so fn must not keep
// state across calls.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the stores taking part in a unit of work. Rows read through Do are locked
// until it ends; acquire them in the order booking, vehicle, driver, user, session, outbox.
type Tx interface {
	Bookings() BookingStore
	Vehicles() VehicleStore
	Drivers() DriverStore
	Users() UserStore
	Sessions() SessionStore
	Outbox() OutboxStore
}

// Getters return a zero value with an empty ID when the row does not exist.

type BookingStore interface {
	Get(ctx context.Context, id string) (bModel.Booking, error)
	// List returns matching bookings without their history and the total match count.
	List(ctx context.Context, filter bModel.ListFilter, params dto.QueryParams) ([]bModel.Booking, int, error)
	Insert(ctx context.Context, booking bModel.Booking) error
	// Save persists the row and appends history entries added since it was read.
	Save(ctx context.Context, booking bModel.Booking) error
}

type VehicleStore interface {
	Get(ctx context.Context, id string) (vModel.Vehicle, error)
	Save(ctx context.Context, vehicle vModel.Vehicle) error
}

type DriverStore interface {
	Get(ctx context.Context, id string) (dModel.Driver, error)
	Insert(ctx context.Context, driver dModel.Driver) error
	ListEligible(ctx context.Context, ids []string) ([]dModel.Driver, error)
}

type UserStore interface {
	Get(ctx context.Context, id string) (uModel.User, error)
	Save(ctx context.Context, user uModel.User) error
}

type SessionStore interface {
	GetOpenByBooking(ctx context.Context, bookingID string) (sModel.Session, error)
	Insert(ctx context.Context, session sModel.Session) error
	Save(ctx context.Context, session sModel.Session) error
}

type OutboxStore interface {
	Insert(ctx context.Context, messages ...oModel.Message) error
	// ClaimDue returns up to limit pending messages due at now, oldest first.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]oModel.Message, error)
	Save(ctx context.Context, message oModel.Message) error
}

// IsTransient reports whether err is worth retrying the whole unit of work for.
func IsTransient(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == constant.PqErrorCodeSerializationFailure || pqErr.Code == constant.PqErrorCodeDeadlockDetected
	}

	return false
}
