package uow

import (
	"benzback/config"
	"benzback/infras/otel"
	"benzback/infras/postgres"
	bModel "benzback/internal/domains/booking/model"
	bRepo "benzback/internal/domains/booking/repository"
	dModel "benzback/internal/domains/driver/model"
	dRepo "benzback/internal/domains/driver/repository"
	oModel "benzback/internal/domains/outbox/model"
	oRepo "benzback/internal/domains/outbox/repository"
	sModel "benzback/internal/domains/session/model"
	sRepo "benzback/internal/domains/session/repository"
	uModel "benzback/internal/domains/user/model"
	uRepo "benzback/internal/domains/user/repository"
	vModel "benzback/internal/domains/vehicle/model"
	vRepo "benzback/internal/domains/vehicle/repository"
	"benzback/shared/constant"
	"benzback/shared/dto"
	gRepo "benzback/shared/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Repositories are the tx-bound repositories a Postgres unit of work drives.
type Repositories struct {
	Bookings bRepo.Booking
	Vehicles vRepo.Vehicle
	Drivers  dRepo.Driver
	Users    uRepo.User
	Sessions sRepo.Session
	Outbox   oRepo.Outbox
}

type postgresUnitOfWork struct {
	db    *postgres.Connection
	repos Repositories
	retry RetryPolicy
	otel  otel.Otel
}

func NewPostgres(db *postgres.Connection, cfg *config.Config, otel otel.Otel, repos Repositories) UnitOfWork {
	return &postgresUnitOfWork{
		db:    db,
		repos: repos,
		retry: RetryPolicyFromConfig(cfg),
		otel:  otel,
	}
}

func (u *postgresUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	ctx, scope := u.otel.NewScope(ctx, constant.OtelUnitOfWorkScope, constant.OtelUnitOfWorkScope+".postgres.Do")
	defer scope.End()
	defer scope.TraceIfError(&err)

	return withRetry(ctx, u.retry, func(ctx context.Context) error {
		return u.run(ctx, u.db.Write, nil, gRepo.LockForUpdate, fn)
	})
}

func (u *postgresUnitOfWork) View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	ctx, scope := u.otel.NewScope(ctx, constant.OtelUnitOfWorkScope, constant.OtelUnitOfWorkScope+".postgres.View")
	defer scope.End()
	defer scope.TraceIfError(&err)

	return withRetry(ctx, u.retry, func(ctx context.Context) error {
		return u.run(ctx, u.db.Read, &sql.TxOptions{ReadOnly: true}, gRepo.LockNone, fn)
	})
}

func (u *postgresUnitOfWork) run(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, lock gRepo.Lock, fn func(ctx context.Context, tx Tx) error) (err error) {
	sqltx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqltx.Rollback()

			panic(p)
		}

		if err == nil {
			return
		}

		if rbErr := sqltx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
	}()

	tx := &postgresTx{
		sqltx:      sqltx,
		repos:      u.repos,
		lock:       lock,
		historySeq: map[string]int{},
	}

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = sqltx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type postgresTx struct {
	sqltx *sqlx.Tx
	repos Repositories
	lock  gRepo.Lock
	// historySeq is the last persisted history sequence per booking touched in this tx.
	historySeq map[string]int
}

func (t *postgresTx) Bookings() BookingStore { return pgBookings{t} }
func (t *postgresTx) Vehicles() VehicleStore { return pgVehicles{t} }
func (t *postgresTx) Drivers() DriverStore   { return pgDrivers{t} }
func (t *postgresTx) Users() UserStore       { return pgUsers{t} }
func (t *postgresTx) Sessions() SessionStore { return pgSessions{t} }
func (t *postgresTx) Outbox() OutboxStore    { return pgOutbox{t} }

type pgBookings struct{ *postgresTx }

func (s pgBookings) Get(ctx context.Context, id string) (bModel.Booking, error) {
	booking, err := s.repos.Bookings.GetByIDTx(ctx, s.sqltx, id, s.lock)
	if err != nil {
		return booking, err //nolint:wrapcheck
	}

	if booking.ID != constant.Empty {
		s.historySeq[booking.ID] = booking.LastHistorySeq()
	}

	return booking, nil
}

func (s pgBookings) List(ctx context.Context, filter bModel.ListFilter, params dto.QueryParams) ([]bModel.Booking, int, error) {
	group := bookingFilterGroup(filter)

	bookings, err := s.repos.Bookings.GetAllTx(ctx, s.sqltx, params, group, gRepo.LockNone)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	total, err := s.repos.Bookings.CountTx(ctx, s.sqltx, group)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	return bookings, total, nil
}

func (s pgBookings) Insert(ctx context.Context, booking bModel.Booking) error {
	if err := s.repos.Bookings.InsertTx(ctx, s.sqltx, booking); err != nil {
		return err //nolint:wrapcheck
	}

	s.historySeq[booking.ID] = booking.LastHistorySeq()

	return nil
}

func (s pgBookings) Save(ctx context.Context, booking bModel.Booking) error {
	last, ok := s.historySeq[booking.ID]
	if !ok {
		persisted, err := s.repos.Bookings.GetHistoryTx(ctx, s.sqltx, booking.ID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if len(persisted) > 0 {
			last = persisted[len(persisted)-1].Seq
		}
	}

	if err := s.repos.Bookings.SaveTx(ctx, s.sqltx, booking); err != nil {
		return err //nolint:wrapcheck
	}

	fresh := []bModel.StatusEntry{}

	for _, entry := range booking.History {
		if entry.Seq > last {
			entry.BookingID = booking.ID
			fresh = append(fresh, entry)
		}
	}

	if err := s.repos.Bookings.AppendHistoryTx(ctx, s.sqltx, fresh); err != nil {
		return err //nolint:wrapcheck
	}

	s.historySeq[booking.ID] = booking.LastHistorySeq()

	return nil
}

func bookingFilterGroup(filter bModel.ListFilter) dto.FilterGroup {
	filters := []any{}

	add := func(field, argName, operator string, value any) {
		filters = append(filters, dto.Filter{Field: field, ArgName: argName, Operator: operator, Value: value, Table: bModel.TableName})
	}

	if filter.UserID != constant.Empty {
		add(bModel.FieldUserID, constant.Empty, dto.FilterOperatorEq, filter.UserID)
	}

	if filter.VehicleID != constant.Empty {
		add(bModel.FieldVehicleID, constant.Empty, dto.FilterOperatorEq, filter.VehicleID)
	}

	if filter.Status != constant.Empty {
		add(bModel.FieldStatus, constant.Empty, dto.FilterOperatorEq, filter.Status)
	}

	if len(filter.Statuses) > 0 {
		add(bModel.FieldStatus, "statuses", dto.FilterOperatorIn, filter.Statuses)
	}

	if filter.DriverRequestStatus != constant.Empty {
		filters = append(filters, requestStatusFilter(filter))
	}

	if filter.RequestedBefore != nil {
		add(bModel.FieldRequestedAt, constant.Empty, dto.FilterOperatorLessEq, *filter.RequestedBefore)
	}

	if filter.ReturnBefore != nil {
		add(bModel.FieldReturnDate, constant.Empty, dto.FilterOperatorLessEq, *filter.ReturnBefore)
	}

	return dto.FilterGroup{Filters: filters, Operator: dto.FilterGroupOperatorAnd}
}

// requestStatusFilter matches the effective driver request status when the filter carries a
// cutoff: pending requests made at or before it are reported as expired.
func requestStatusFilter(filter bModel.ListFilter) any {
	column := func(field, argName, operator string, value any) dto.Filter {
		return dto.Filter{Field: field, ArgName: argName, Operator: operator, Value: value, Table: bModel.TableName}
	}

	status := column(bModel.FieldDriverRequestStatus, constant.Empty, dto.FilterOperatorEq, filter.DriverRequestStatus)
	if filter.RequestCutoff == nil {
		return status
	}

	pending := column(bModel.FieldDriverRequestStatus, "request_pending", dto.FilterOperatorEq, bModel.DriverRequestPending)

	switch filter.DriverRequestStatus {
	case bModel.DriverRequestPending:
		return dto.FilterGroup{Operator: dto.FilterGroupOperatorAnd, Filters: []any{
			pending,
			dto.FilterGroup{Operator: dto.FilterGroupOperatorOr, Filters: []any{
				column(bModel.FieldRequestedAt, "request_cutoff", dto.FilterOperatorGreater, *filter.RequestCutoff),
				column(bModel.FieldRequestedAt, "request_cutoff", dto.FilterIsNull, nil),
			}},
		}}
	case bModel.DriverRequestExpired:
		return dto.FilterGroup{Operator: dto.FilterGroupOperatorOr, Filters: []any{
			status,
			dto.FilterGroup{Operator: dto.FilterGroupOperatorAnd, Filters: []any{
				pending,
				column(bModel.FieldRequestedAt, "request_cutoff", dto.FilterOperatorLessEq, *filter.RequestCutoff),
			}},
		}}
	default:
		return status
	}
}

type pgVehicles struct{ *postgresTx }

func (s pgVehicles) Get(ctx context.Context, id string) (vModel.Vehicle, error) {
	return s.repos.Vehicles.GetByIDTx(ctx, s.sqltx, id, s.lock) //nolint:wrapcheck
}

func (s pgVehicles) Save(ctx context.Context, vehicle vModel.Vehicle) error {
	return s.repos.Vehicles.SaveTx(ctx, s.sqltx, vehicle) //nolint:wrapcheck
}

type pgDrivers struct{ *postgresTx }

func (s pgDrivers) Get(ctx context.Context, id string) (dModel.Driver, error) {
	return s.repos.Drivers.GetByIDTx(ctx, s.sqltx, id, s.lock) //nolint:wrapcheck
}

func (s pgDrivers) Insert(ctx context.Context, driver dModel.Driver) error {
	return s.repos.Drivers.InsertTx(ctx, s.sqltx, driver) //nolint:wrapcheck
}

func (s pgDrivers) ListEligible(ctx context.Context, ids []string) ([]dModel.Driver, error) {
	return s.repos.Drivers.ListEligibleTx(ctx, s.sqltx, ids) //nolint:wrapcheck
}

type pgUsers struct{ *postgresTx }

func (s pgUsers) Get(ctx context.Context, id string) (uModel.User, error) {
	return s.repos.Users.GetByIDTx(ctx, s.sqltx, id, s.lock) //nolint:wrapcheck
}

func (s pgUsers) Save(ctx context.Context, user uModel.User) error {
	return s.repos.Users.SaveTx(ctx, s.sqltx, user) //nolint:wrapcheck
}

type pgSessions struct{ *postgresTx }

func (s pgSessions) GetOpenByBooking(ctx context.Context, bookingID string) (sModel.Session, error) {
	return s.repos.Sessions.GetOpenByBookingTx(ctx, s.sqltx, bookingID, s.lock) //nolint:wrapcheck
}

func (s pgSessions) Insert(ctx context.Context, session sModel.Session) error {
	return s.repos.Sessions.InsertTx(ctx, s.sqltx, session) //nolint:wrapcheck
}

func (s pgSessions) Save(ctx context.Context, session sModel.Session) error {
	return s.repos.Sessions.SaveTx(ctx, s.sqltx, session) //nolint:wrapcheck
}

type pgOutbox struct{ *postgresTx }

func (s pgOutbox) Insert(ctx context.Context, messages ...oModel.Message) error {
	for _, message := range messages {
		if err := s.repos.Outbox.InsertTx(ctx, s.sqltx, message); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return nil
}

func (s pgOutbox) ClaimDue(ctx context.Context, now time.Time, limit int) ([]oModel.Message, error) {
	return s.repos.Outbox.ClaimDueTx(ctx, s.sqltx, now, limit) //nolint:wrapcheck
}

func (s pgOutbox) Save(ctx context.Context, message oModel.Message) error {
	return s.repos.Outbox.SaveTx(ctx, s.sqltx, message) //nolint:wrapcheck
}
