package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"benzback/config"
	"benzback/infras/otel"
	"benzback/internal/domains/booking/lifecycle"
	"benzback/internal/domains/booking/model"
	"benzback/internal/domains/booking/model/dto"
	"benzback/internal/domains/booking/settlement"
	dModel "benzback/internal/domains/driver/model"
	oModel "benzback/internal/domains/outbox/model"
	sModel "benzback/internal/domains/session/model"
	vModel "benzback/internal/domains/vehicle/model"
	"benzback/internal/presence"
	"benzback/internal/uow"
	"benzback/shared"
	"benzback/shared/cache"
	"benzback/shared/constant"
	gDto "benzback/shared/dto"
	"benzback/shared/failure"
	gModel "benzback/shared/model"
	"benzback/shared/timezone"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking    = "booking:get"
	cacheGetAllBooking = "booking:gets"
)

var sortableColumns = []string{
	constant.FieldCreatedAt,
	model.FieldPickupDate,
	model.FieldReturnDate,
	model.FieldStatus,
}

// manualTargets are the statuses reachable without a dedicated handler.
var manualTargets = []model.Status{
	model.StatusLicenseRequired,
	model.StatusVerificationPending,
	model.StatusPendingPayment,
	model.StatusCancelled,
	model.StatusNoShow,
	model.StatusOverdue,
}

// requestableStatuses accept a driver request. Anything from confirmed on is too late.
var requestableStatuses = []model.Status{
	model.StatusPending,
	model.StatusLicenseRequired,
	model.StatusVerificationPending,
	model.StatusPendingPayment,
}

var checkOutStatuses = []model.Status{
	model.StatusActive,
	model.StatusInProgress,
	model.StatusOverdue,
}

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter model.ListFilter) (dto.GetBookingsResponse, error)
	RequestDriver(ctx context.Context, id string) (dto.BookingResponse, error)
	AcceptRequest(ctx context.Context, id, driverID string) (dto.BookingResponse, error)
	CancelDriverRequest(ctx context.Context, id string) (dto.BookingResponse, error)
	CheckIn(ctx context.Context, id string, req dto.CheckInRequest) (dto.BookingResponse, error)
	CheckOut(ctx context.Context, id string, req dto.CheckOutRequest) (dto.BookingResponse, error)
	ConfirmPayment(ctx context.Context, req dto.PaymentWebhookRequest) (dto.BookingResponse, error)
	Transition(ctx context.Context, id string, req dto.TransitionRequest) (dto.BookingResponse, error)
	ExpireDriverRequests(ctx context.Context) (int, error)
	MarkOverdue(ctx context.Context) (int, error)
}

type serviceImpl struct {
	uow      uow.UnitOfWork
	presence presence.Registry
	policy   Policy
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	now      func() time.Time
}

func New(unit uow.UnitOfWork, registry presence.Registry, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Booking {
	return NewWithClock(unit, registry, PolicyFromConfig(cfg), cfg, cache, otel, timezone.Now)
}

// NewWithClock builds the service with an explicit policy and time source.
func NewWithClock(unit uow.UnitOfWork, registry presence.Registry, policy Policy, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, now func() time.Time) Booking {
	return &serviceImpl{
		uow:      unit,
		presence: registry,
		policy:   policy,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		now:      now,
	}
}

type eventPayload struct {
	BookingID      string `json:"booking_id"`
	UserID         string `json:"user_id,omitempty"`
	VehicleID      string `json:"vehicle_id,omitempty"`
	DriverID       string `json:"driver_id,omitempty"`
	Status         string `json:"status,omitempty"`
	PickupLocation string `json:"pickup_location,omitempty"`
	PickupDate     string `json:"pickup_date,omitempty"`
	ReturnDate     string `json:"return_date,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	Message        string `json:"message,omitempty"`
}

type settlementReceipt struct {
	BookingID      string                  `json:"booking_id"`
	UserID         string                  `json:"user_id"`
	VehicleID      string                  `json:"vehicle_id"`
	CleaningPolicy string                  `json:"cleaning_policy"`
	Terms          model.RentalTerms       `json:"terms"`
	CheckIn        *model.CheckInSnapshot  `json:"check_in"`
	CheckOut       *model.CheckOutSnapshot `json:"check_out"`
	Settlement     model.Settlement        `json:"settlement"`
	TotalPrice     float64                 `json:"total_price"`
	IssuedAt       string                  `json:"issued_at"`
}

func actorFromContext(ctx context.Context) (userID, role string) {
	userID, _ = ctx.Value(constant.ContextKeyUserID).(string)
	role, _ = ctx.Value(constant.ContextKeyUserRole).(string)

	return userID, role
}

func authorize(booking *model.Booking, userID, role string) error {
	if role == constant.RoleAdmin || booking.UserID == userID {
		return nil
	}

	return model.ErrRequesterNotBookingUser
}

func rentalDays(pickup, ret time.Time) int {
	return int(math.Ceil(ret.Sub(pickup).Hours() / 24)) //nolint:mnd
}

func loadBooking(ctx context.Context, tx uow.Tx, id string) (model.Booking, error) {
	booking, err := tx.Bookings().Get(ctx, id)
	if err != nil {
		return booking, err //nolint:wrapcheck
	}

	if booking.ID == constant.Empty {
		return booking, model.ErrBookingNotFound
	}

	return booking, nil
}

// fail logs err and returns it. Domain failures pass through unwrapped so the caller keeps
// their message and code.
func fail(err error, bookingID, action string) error {
	if failure.IsRejection(err) {
		log.Warn().Err(err).Str("booking_id", bookingID).Msgf("rejected %s", action)

		return err
	}

	log.Error().Err(err).Str("booking_id", bookingID).Msgf("failed to %s", action)

	return fmt.Errorf("failed to %s: %w", action, err)
}

func (s *serviceImpl) render(booking model.Booking, now time.Time) (res dto.BookingResponse) {
	res.FromModel(booking, now, s.policy.AssignmentWindow)

	return res
}

func (s *serviceImpl) notification(recipient, event string, payload any, at time.Time) (oModel.Message, error) {
	return oModel.NewNotification(s.policy.NotificationTopic, recipient, event, payload, at) //nolint:wrapcheck
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetBooking, id)); err != nil {
		log.Error().Err(err).Str("booking_id", id).Msg("failed to invalidate booking cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(&err)

	userID, _ := actorFromContext(ctx)

	pickup, ret, err := req.ParseDates()
	if err != nil {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid date format: %v", err)) // nolint:wrapcheck
	}

	if req.DriverID == constant.Empty && req.HasDocuments() && (req.LicenseRef == constant.Empty || req.InsuranceRef == constant.Empty) {
		return res, model.ErrInvalidDriverDocuments
	}

	now := s.now()

	var created model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		vehicle, err := tx.Vehicles().Get(ctx, req.VehicleID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if vehicle.ID == constant.Empty {
			return model.ErrVehicleNotFound
		}

		if !vehicle.Available() {
			return model.ErrVehicleUnavailable
		}

		days, base, tax, total, err := s.policy.Price(pickup, ret, vehicle.PricePerDay)
		if err != nil {
			return err
		}

		driverID, initial, err := s.resolveDriver(ctx, tx, userID, req, now)
		if err != nil {
			return err
		}

		booking := model.Booking{
			ID:                  uuid.NewString(),
			UserID:              userID,
			VehicleID:           vehicle.ID,
			DriverID:            driverID,
			PickupDate:          pickup,
			ReturnDate:          ret,
			PickupLocation:      req.PickupLocation,
			RentalDays:          days,
			BasePrice:           base,
			TaxAmount:           tax,
			TotalPrice:          total,
			TotalCharges:        total,
			DriverRequestStatus: model.DriverRequestNone,
			PaymentStatus:       model.PaymentUnpaid,
			RentalTerms:         s.policy.Terms,
			Metadata:            gModel.NewMetadata(userID, now),
		}

		if err := lifecycle.Start(&booking, initial, userID, model.HistoryNoteCreated, now); err != nil {
			return err //nolint:wrapcheck
		}

		if err := tx.Bookings().Insert(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		payload := eventPayload{
			BookingID: booking.ID,
			UserID:    userID,
			VehicleID: vehicle.ID,
			Status:    booking.Status.String(),
		}

		toRenter, err := s.notification(userID, oModel.EventBookingCreated, payload, now)
		if err != nil {
			return err
		}

		toAdmins, err := s.notification(oModel.RecipientAdmins, oModel.EventBookingCreatedInfo, payload, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, toRenter, toAdmins); err != nil {
			return err //nolint:wrapcheck
		}

		created = booking

		return nil
	})
	if err != nil {
		return res, fail(err, constant.Empty, "create booking")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)

	log.Info().Str("booking_id", created.ID).Str("status", created.Status.String()).Msg("booking created")

	return s.render(created, now), nil
}

// resolveDriver picks the driver record for a new booking and the status it starts in.
func (s *serviceImpl) resolveDriver(ctx context.Context, tx uow.Tx, userID string, req dto.CreateBookingRequest, now time.Time) (string, model.Status, error) {
	switch {
	case req.DriverID != constant.Empty:
		driver, err := tx.Drivers().Get(ctx, req.DriverID)
		if err != nil {
			return constant.Empty, constant.Empty, err //nolint:wrapcheck
		}

		if driver.ID == constant.Empty || driver.UserID != userID {
			return constant.Empty, constant.Empty, model.ErrDriverNotFound
		}

		if driver.Verified() {
			return driver.ID, model.StatusPendingPayment, nil
		}

		return driver.ID, model.StatusVerificationPending, nil
	case req.HasDocuments():
		driver := dModel.Driver{
			ID:           uuid.NewString(),
			UserID:       userID,
			LicenseRef:   req.LicenseRef,
			InsuranceRef: req.InsuranceRef,
			Metadata:     gModel.NewMetadata(userID, now),
		}

		if err := tx.Drivers().Insert(ctx, driver); err != nil {
			return constant.Empty, constant.Empty, err //nolint:wrapcheck
		}

		user, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return constant.Empty, constant.Empty, err //nolint:wrapcheck
		}

		if user.ID == constant.Empty {
			return constant.Empty, constant.Empty, model.ErrUserNotFound
		}

		user.AddDriver(driver.ID)
		user.Touch(userID, now)

		if err := tx.Users().Save(ctx, user); err != nil {
			return constant.Empty, constant.Empty, err //nolint:wrapcheck
		}

		return driver.ID, model.StatusVerificationPending, nil
	default:
		return constant.Empty, model.StatusLicenseRequired, nil
	}
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(&err)

	userID, role := actorFromContext(ctx)
	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	var booking model.Booking

	if err = s.cache.Get(ctx, cacheKey, &booking); err == nil && booking.ID != constant.Empty {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for booking")
	} else {
		err = s.uow.View(ctx, func(ctx context.Context, tx uow.Tx) error {
			var err error

			booking, err = loadBooking(ctx, tx, id)

			return err
		})
		if err != nil {
			return res, fail(err, id, "get booking")
		}

		if err = s.cache.Save(ctx, cacheKey, booking, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Str("booking_id", id).Msg("failed to save booking to cache")
		}
	}

	if err = authorize(&booking, userID, role); err != nil {
		return res, err
	}

	return s.render(booking, s.now()), nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter model.ListFilter) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if userID, role := actorFromContext(ctx); role != constant.RoleAdmin {
		filter.UserID = userID
	}

	params.Sanitize(sortableColumns...)

	now := s.now()

	switch filter.DriverRequestStatus {
	case model.DriverRequestPending, model.DriverRequestExpired:
		if s.policy.AssignmentWindow > 0 {
			cutoff := now.Add(-s.policy.AssignmentWindow)
			filter.RequestCutoff = &cutoff
		}
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, params, gDto.FilterGroup{Filters: []any{filter}})

	var page struct {
		Bookings []model.Booking `json:"bookings"`
		Total    int             `json:"total"`
	}

	if err = s.cache.Get(ctx, cacheKey, &page); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for bookings")
	} else {
		err = s.uow.View(ctx, func(ctx context.Context, tx uow.Tx) error {
			var err error

			page.Bookings, page.Total, err = tx.Bookings().List(ctx, filter, params)

			return err //nolint:wrapcheck
		})
		if err != nil {
			return res, fail(err, constant.Empty, "list bookings")
		}

		if err = s.cache.Save(ctx, cacheKey, page, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}

	res.FromModels(page.Bookings, page.Total, params.Limit, now, s.policy.AssignmentWindow)

	return res, nil
}

func (s *serviceImpl) RequestDriver(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RequestDriver")
	defer scope.End()
	defer scope.TraceIfError(&err)

	userID, role := actorFromContext(ctx)
	now := s.now()

	online, err := s.presence.Online(ctx, now.Add(-s.policy.PresenceTTL))
	if err != nil {
		return res, fail(err, id, "list online drivers")
	}

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorize(&booking, userID, role); err != nil {
			return err
		}

		if !slices.Contains(requestableStatuses, booking.Status) {
			return model.ErrInvalidBookingState
		}

		if booking.DriverAssigned {
			return model.ErrAlreadyAssigned
		}

		eligible, err := tx.Drivers().ListEligible(ctx, online)
		if err != nil {
			return err //nolint:wrapcheck
		}

		offered := gModel.StringList{}

		for _, driver := range eligible {
			if driver.UserID != booking.UserID {
				offered = append(offered, driver.ID)
			}
		}

		booking.DriverRequestStatus = model.DriverRequestPending
		booking.RequestedAt = &now
		booking.DriverAssigned = false
		booking.OfferedDriverIDs = offered
		booking.Touch(userID, now)

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		payload := eventPayload{
			BookingID:      booking.ID,
			VehicleID:      booking.VehicleID,
			PickupLocation: booking.PickupLocation,
			PickupDate:     timezone.Format(booking.PickupDate, constant.DateFormat),
			ReturnDate:     timezone.Format(booking.ReturnDate, constant.DateFormat),
			ExpiresAt:      timezone.Format(now.Add(s.policy.AssignmentWindow), constant.DateFormat),
		}

		messages := make([]oModel.Message, 0, len(offered))

		for _, driverID := range offered {
			message, err := oModel.NewBroadcast(oModel.DriverTopic(driverID), oModel.EventDriverRequest, payload, now)
			if err != nil {
				return err //nolint:wrapcheck
			}

			messages = append(messages, message)
		}

		if err := tx.Outbox().Insert(ctx, messages...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking

		return nil
	})
	if err != nil {
		return res, fail(err, id, "request driver")
	}

	s.invalidate(ctx, id)

	log.Info().Str("booking_id", id).Int("offered", len(updated.OfferedDriverIDs)).Msg("driver request opened")

	return s.render(updated, now), nil
}

// AcceptRequest resolves the assignment race. The booking row is locked for the whole unit
// of work, so exactly one driver observes an open request and every later caller gets
// ErrAlreadyAssigned.
func (s *serviceImpl) AcceptRequest(ctx context.Context, id, driverID string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".AcceptRequest")
	defer scope.End()
	defer scope.TraceIfError(&err)

	userID, role := actorFromContext(ctx)
	now := s.now()

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if booking.DriverAssigned || booking.EffectiveRequestStatus(now, s.policy.AssignmentWindow) != model.DriverRequestPending {
			return model.ErrAlreadyAssigned
		}

		if !slices.Contains(requestableStatuses, booking.Status) {
			return model.ErrInvalidBookingState
		}

		driver, err := tx.Drivers().Get(ctx, driverID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if driver.ID == constant.Empty {
			return model.ErrDriverNotFound
		}

		if role != constant.RoleAdmin && driver.UserID != userID {
			return failure.ForbiddenError
		}

		if !driver.EligibleForAssignment() {
			return model.ErrDriverNotEligible
		}

		booking.DriverAssigned = true
		booking.DriverRequestStatus = model.DriverRequestAccepted
		booking.ProfessionalDriverID = driver.ID
		booking.Touch(userID, now)

		if err := lifecycle.Transition(&booking, model.StatusPendingPayment, userID, "Driver assigned", now); err != nil {
			return err //nolint:wrapcheck
		}

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		messages, err := s.assignmentMessages(booking, driver.ID, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, messages...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking

		return nil
	})
	if err != nil {
		return res, fail(err, id, "accept driver request")
	}

	s.invalidate(ctx, id)

	log.Info().Str("booking_id", id).Str("driver_id", driverID).Msg("driver assigned")

	return s.render(updated, now), nil
}

func (s *serviceImpl) assignmentMessages(booking model.Booking, winner string, now time.Time) ([]oModel.Message, error) {
	payload := eventPayload{
		BookingID: booking.ID,
		DriverID:  winner,
		Status:    booking.Status.String(),
	}

	accepted, err := oModel.NewBroadcast(oModel.DriverTopic(winner), oModel.EventDriverAccepted, payload, now)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	messages := []oModel.Message{accepted}

	closed, err := closedBroadcasts(booking, winner, now)
	if err != nil {
		return nil, err
	}

	messages = append(messages, closed...)

	assigned, err := oModel.NewBroadcast(oModel.UserTopic(booking.UserID), oModel.EventBookingAssigned, payload, now)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	notice, err := s.notification(booking.UserID, oModel.EventDriverAssigned, payload, now)
	if err != nil {
		return nil, err
	}

	return append(messages, assigned, notice), nil
}

// closedBroadcasts tells every offered driver except skip that the request is gone.
func closedBroadcasts(booking model.Booking, skip string, now time.Time) ([]oModel.Message, error) {
	messages := []oModel.Message{}
	payload := eventPayload{BookingID: booking.ID}

	for _, driverID := range booking.OfferedDriverIDs {
		if driverID == skip {
			continue
		}

		message, err := oModel.NewBroadcast(oModel.DriverTopic(driverID), oModel.EventDriverClosed, payload, now)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}

		messages = append(messages, message)
	}

	return messages, nil
}

// closeOpenRequest declines a driver request that is still open and returns the broadcasts
// that withdraw it from the offered drivers.
func (s *serviceImpl) closeOpenRequest(booking *model.Booking, now time.Time) ([]oModel.Message, error) {
	if booking.DriverAssigned || booking.EffectiveRequestStatus(now, s.policy.AssignmentWindow) != model.DriverRequestPending {
		return nil, nil
	}

	booking.DriverRequestStatus = model.DriverRequestDeclined

	return closedBroadcasts(*booking, constant.Empty, now)
}

func (s *serviceImpl) CancelDriverRequest(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CancelDriverRequest")
	defer scope.End()
	defer scope.TraceIfError(&err)

	userID, role := actorFromContext(ctx)
	now := s.now()

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorize(&booking, userID, role); err != nil {
			return err
		}

		if booking.DriverAssigned || booking.EffectiveRequestStatus(now, s.policy.AssignmentWindow) != model.DriverRequestPending {
			return model.ErrInvalidBookingState
		}

		booking.DriverRequestStatus = model.DriverRequestDeclined
		booking.Touch(userID, now)

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		closed, err := closedBroadcasts(booking, constant.Empty, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, closed...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking

		return nil
	})
	if err != nil {
		return res, fail(err, id, "cancel driver request")
	}

	s.invalidate(ctx, id)

	return s.render(updated, now), nil
}

func (s *serviceImpl) CheckIn(ctx context.Context, id string, req dto.CheckInRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckIn")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if req.FuelLevel != nil && !settlement.ValidFuelLevel(*req.FuelLevel) {
		return res, model.ErrInvalidFuelLevel
	}

	userID, role := actorFromContext(ctx)
	now := s.now()

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorize(&booking, userID, role); err != nil {
			return err
		}

		if booking.Status != model.StatusConfirmed {
			return model.ErrInvalidBookingState
		}

		if !timezone.SameOrAfterDay(now, booking.PickupDate) {
			return model.ErrPickupNotYetDue
		}

		vehicle, err := tx.Vehicles().Get(ctx, booking.VehicleID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if vehicle.ID == constant.Empty {
			return model.ErrVehicleNotFound
		}

		if req.Odometer < vehicle.CurrentOdometer {
			return model.ErrOdometerRegression
		}

		booking.CheckIn = &model.CheckInSnapshot{
			At:        now,
			Odometer:  req.Odometer,
			FuelLevel: req.FuelLevel,
			Notes:     req.Notes,
			Photos:    slices.Clone(req.Photos),
			Actor:     userID,
		}
		booking.Touch(userID, now)

		if err := lifecycle.Transition(&booking, model.StatusActive, userID, "Vehicle checked in", now); err != nil {
			return err //nolint:wrapcheck
		}

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		vehicle.Status = vModel.StatusRented
		vehicle.CurrentOdometer = req.Odometer

		if req.FuelLevel != nil {
			vehicle.FuelLevel = *req.FuelLevel
		}

		vehicle.Touch(userID, now)

		if err := tx.Vehicles().Save(ctx, vehicle); err != nil {
			return err //nolint:wrapcheck
		}

		session := sModel.Session{
			ID:            uuid.NewString(),
			BookingID:     booking.ID,
			UserID:        booking.UserID,
			VehicleID:     vehicle.ID,
			StartedAt:     now,
			StartOdometer: req.Odometer,
			Status:        sModel.StatusOpen,
			Metadata:      gModel.NewMetadata(userID, now),
		}

		if err := tx.Sessions().Insert(ctx, session); err != nil {
			return err //nolint:wrapcheck
		}

		notice, err := s.notification(booking.UserID, oModel.EventCheckedIn, eventPayload{
			BookingID: booking.ID,
			VehicleID: vehicle.ID,
			Status:    booking.Status.String(),
		}, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, notice); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking

		return nil
	})
	if err != nil {
		return res, fail(err, id, "check in")
	}

	s.invalidate(ctx, id)

	log.Info().Str("booking_id", id).Float64("odometer", req.Odometer).Msg("vehicle checked in")

	return s.render(updated, now), nil
}

func (s *serviceImpl) CheckOut(ctx context.Context, id string, req dto.CheckOutRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckOut")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if !settlement.ValidFuelLevel(req.FuelLevel) {
		return res, model.ErrInvalidFuelLevel
	}

	userID, role := actorFromContext(ctx)
	now := s.now()

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorize(&booking, userID, role); err != nil {
			return err
		}

		if !slices.Contains(checkOutStatuses, booking.Status) || booking.CheckIn == nil {
			return model.ErrInvalidBookingState
		}

		vehicle, err := tx.Vehicles().Get(ctx, booking.VehicleID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if vehicle.ID == constant.Empty {
			return model.ErrVehicleNotFound
		}

		breakdown, err := s.policy.Settlement.Calculate(settlement.Input{
			StartOdometer:     booking.CheckIn.Odometer,
			EndOdometer:       req.Odometer,
			CheckInFuelLevel:  booking.CheckIn.FuelLevel,
			CheckOutFuelLevel: req.FuelLevel,
			FuelTankCapacity:  vehicle.FuelTankCapacity,
			CleaningRequired:  req.CleaningRequired,
			TotalPrice:        booking.TotalPrice,
			Terms:             booking.RentalTerms,
		})
		if err != nil {
			return err //nolint:wrapcheck
		}

		booking.CheckOut = &model.CheckOutSnapshot{
			At:               now,
			Odometer:         req.Odometer,
			FuelLevel:        req.FuelLevel,
			CleaningRequired: req.CleaningRequired,
			DamageNotes:      req.DamageNotes,
			Notes:            req.Notes,
			Photos:           slices.Clone(req.Photos),
			Actor:            userID,
		}
		booking.Settlement = &breakdown
		booking.AdditionalCharges = breakdown.TotalAdditional
		booking.TotalCharges = breakdown.TotalCharges
		booking.Touch(userID, now)

		if err := lifecycle.Transition(&booking, model.StatusCompleted, userID, "Vehicle returned", now); err != nil {
			return err //nolint:wrapcheck
		}

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		vehicle.Status = vModel.StatusAvailable
		vehicle.CurrentOdometer = req.Odometer
		vehicle.FuelLevel = req.FuelLevel
		vehicle.Touch(userID, now)

		if err := tx.Vehicles().Save(ctx, vehicle); err != nil {
			return err //nolint:wrapcheck
		}

		user, err := tx.Users().Get(ctx, booking.UserID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if user.ID == constant.Empty {
			return model.ErrUserNotFound
		}

		user.RecordCompletedRental(s.policy.Loyalty)
		user.Touch(userID, now)

		if err := tx.Users().Save(ctx, user); err != nil {
			return err //nolint:wrapcheck
		}

		if err := closeSession(ctx, tx, booking.ID, req.Odometer, now); err != nil {
			return err
		}

		messages, err := s.checkOutMessages(booking, breakdown, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, messages...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking

		return nil
	})
	if err != nil {
		return res, fail(err, id, "check out")
	}

	s.invalidate(ctx, id)

	log.Info().
		Str("booking_id", id).
		Float64("additional_charges", updated.AdditionalCharges).
		Float64("total_charges", updated.TotalCharges).
		Msg("vehicle checked out")

	return s.render(updated, now), nil
}

func closeSession(ctx context.Context, tx uow.Tx, bookingID string, odometer float64, now time.Time) error {
	session, err := tx.Sessions().GetOpenByBooking(ctx, bookingID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if session.ID == constant.Empty {
		log.Warn().Str("booking_id", bookingID).Msg("no open rental session to close")

		return nil
	}

	session.Close(now, odometer)
	session.Touch(constant.ActorSystem, now)

	return tx.Sessions().Save(ctx, session) //nolint:wrapcheck
}

func (s *serviceImpl) checkOutMessages(booking model.Booking, breakdown model.Settlement, now time.Time) ([]oModel.Message, error) {
	notice, err := s.notification(booking.UserID, oModel.EventCheckedOut, eventPayload{
		BookingID: booking.ID,
		VehicleID: booking.VehicleID,
		Status:    booking.Status.String(),
		Message:   fmt.Sprintf("Additional charges %.2f, total %.2f", breakdown.TotalAdditional, breakdown.TotalCharges),
	}, now)
	if err != nil {
		return nil, err
	}

	receipt := settlementReceipt{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		VehicleID:      booking.VehicleID,
		CleaningPolicy: string(s.policy.Settlement.Policy()),
		Terms:          booking.RentalTerms,
		CheckIn:        booking.CheckIn,
		CheckOut:       booking.CheckOut,
		Settlement:     breakdown,
		TotalPrice:     booking.TotalPrice,
		IssuedAt:       timezone.Format(now, constant.DateFormat),
	}

	archive, err := oModel.NewArchive(booking.ID+".json", oModel.EventSettlementArchived, receipt, now)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return []oModel.Message{notice, archive}, nil
}

// ConfirmPayment applies a payment provider event. Deliveries after the first are
// acknowledged without changing anything.
func (s *serviceImpl) ConfirmPayment(ctx context.Context, req dto.PaymentWebhookRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ConfirmPayment")
	defer scope.End()
	defer scope.TraceIfError(&err)

	now := s.now()
	changed := false

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		changed = false

		booking, err := loadBooking(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}

		if booking.PaymentStatus == model.PaymentPaid {
			updated = booking

			return nil
		}

		if booking.Status != model.StatusPendingPayment {
			return model.ErrInvalidBookingState
		}

		if booking.PaymentSessionID != constant.Empty && booking.PaymentSessionID != req.SessionID {
			return model.ErrPaymentSessionMismatch
		}

		if expected := int64(math.Round(booking.TotalPrice * constant.CentsPerUnit)); req.AmountTotal != expected {
			log.Warn().
				Str("booking_id", booking.ID).
				Int64("amount_total", req.AmountTotal).
				Int64("expected", expected).
				Msg("payment amount differs from booking total")
		}

		booking.PaymentStatus = model.PaymentPaid
		booking.PaymentSessionID = req.SessionID
		booking.PaidAt = &now
		booking.Touch(constant.ActorWebhook, now)

		if err := lifecycle.Transition(&booking, model.StatusConfirmed, constant.ActorWebhook, "Payment received", now); err != nil {
			return err //nolint:wrapcheck
		}

		closed, err := s.closeOpenRequest(&booking, now)
		if err != nil {
			return err
		}

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		notice, err := s.notification(booking.UserID, oModel.EventPaymentConfirmed, eventPayload{
			BookingID: booking.ID,
			Status:    booking.Status.String(),
		}, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, append(closed, notice)...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking
		changed = true

		return nil
	})
	if err != nil {
		return res, fail(err, req.BookingID, "confirm payment")
	}

	if changed {
		s.invalidate(ctx, req.BookingID)

		log.Info().Str("booking_id", req.BookingID).Str("session_id", req.SessionID).Msg("payment confirmed")
	} else {
		log.Info().Str("booking_id", req.BookingID).Msg("duplicate payment event ignored")
	}

	return s.render(updated, now), nil
}

func (s *serviceImpl) Transition(ctx context.Context, id string, req dto.TransitionRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Transition")
	defer scope.End()
	defer scope.TraceIfError(&err)

	target := model.Status(req.Status)
	if !slices.Contains(manualTargets, target) {
		return res, model.ErrInvalidTransition
	}

	userID, role := actorFromContext(ctx)
	if role != constant.RoleAdmin && target != model.StatusCancelled {
		return res, failure.ForbiddenError
	}

	now := s.now()
	changed := false

	var updated model.Booking

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		changed = false

		booking, err := loadBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorize(&booking, userID, role); err != nil {
			return err
		}

		if booking.Status == target {
			updated = booking

			return nil
		}

		if err := lifecycle.Transition(&booking, target, userID, req.Note, now); err != nil {
			return err //nolint:wrapcheck
		}

		messages := []oModel.Message{}

		if target == model.StatusCancelled {
			closed, err := s.closeOpenRequest(&booking, now)
			if err != nil {
				return err
			}

			messages = append(messages, closed...)
		}

		booking.Touch(userID, now)

		if err := tx.Bookings().Save(ctx, booking); err != nil {
			return err //nolint:wrapcheck
		}

		notice, err := s.notification(booking.UserID, oModel.EventStatusChanged, eventPayload{
			BookingID: booking.ID,
			Status:    booking.Status.String(),
			Message:   req.Note,
		}, now)
		if err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, append(messages, notice)...); err != nil {
			return err //nolint:wrapcheck
		}

		updated = booking
		changed = true

		return nil
	})
	if err != nil {
		return res, fail(err, id, "transition booking")
	}

	if changed {
		s.invalidate(ctx, id)
	}

	return s.render(updated, now), nil
}

// ExpireDriverRequests persists the expiry of pending requests older than the assignment
// window. Each booking is expired in its own unit of work.
func (s *serviceImpl) ExpireDriverRequests(ctx context.Context) (expired int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".ExpireDriverRequests")
	defer scope.End()
	defer scope.TraceIfError(&err)

	now := s.now()
	cutoff := now.Add(-s.policy.AssignmentWindow)

	candidates, err := s.listIDs(ctx, model.ListFilter{
		DriverRequestStatus: model.DriverRequestPending,
		RequestedBefore:     &cutoff,
	})
	if err != nil {
		return 0, fail(err, constant.Empty, "list pending driver requests")
	}

	errs := []error{}

	for _, id := range candidates {
		changed := false

		err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
			changed = false

			booking, err := loadBooking(ctx, tx, id)
			if err != nil {
				return err
			}

			if booking.DriverAssigned || booking.DriverRequestStatus != model.DriverRequestPending ||
				booking.EffectiveRequestStatus(now, s.policy.AssignmentWindow) != model.DriverRequestExpired {
				return nil
			}

			booking.DriverRequestStatus = model.DriverRequestExpired
			booking.Touch(constant.ActorSystem, now)

			if err := tx.Bookings().Save(ctx, booking); err != nil {
				return err //nolint:wrapcheck
			}

			closed, err := closedBroadcasts(booking, constant.Empty, now)
			if err != nil {
				return err
			}

			if err := tx.Outbox().Insert(ctx, closed...); err != nil {
				return err //nolint:wrapcheck
			}

			changed = true

			return nil
		})
		if err != nil {
			errs = append(errs, fail(err, id, "expire driver request"))

			continue
		}

		if changed {
			expired++

			s.invalidate(ctx, id)
		}
	}

	if expired > 0 {
		log.Info().Int("expired", expired).Msg("driver requests expired")
	}

	return expired, errors.Join(errs...)
}

// MarkOverdue moves rentals whose return date has passed into overdue.
func (s *serviceImpl) MarkOverdue(ctx context.Context) (marked int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".MarkOverdue")
	defer scope.End()
	defer scope.TraceIfError(&err)

	now := s.now()

	candidates, err := s.listIDs(ctx, model.ListFilter{
		Statuses:     []model.Status{model.StatusActive, model.StatusInProgress},
		ReturnBefore: &now,
	})
	if err != nil {
		return 0, fail(err, constant.Empty, "list overdue bookings")
	}

	errs := []error{}

	for _, id := range candidates {
		changed := false

		err := s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
			changed = false

			booking, err := loadBooking(ctx, tx, id)
			if err != nil {
				return err
			}

			if !lifecycle.CanTransition(booking.Status, model.StatusOverdue) || booking.ReturnDate.After(now) {
				return nil
			}

			if err := lifecycle.Transition(&booking, model.StatusOverdue, constant.ActorSystem, "Return date passed", now); err != nil {
				return err //nolint:wrapcheck
			}

			booking.Touch(constant.ActorSystem, now)

			if err := tx.Bookings().Save(ctx, booking); err != nil {
				return err //nolint:wrapcheck
			}

			notice, err := s.notification(booking.UserID, oModel.EventStatusChanged, eventPayload{
				BookingID:  booking.ID,
				Status:     booking.Status.String(),
				ReturnDate: timezone.Format(booking.ReturnDate, constant.DateFormat),
			}, now)
			if err != nil {
				return err
			}

			if err := tx.Outbox().Insert(ctx, notice); err != nil {
				return err //nolint:wrapcheck
			}

			changed = true

			return nil
		})
		if err != nil {
			errs = append(errs, fail(err, id, "mark booking overdue"))

			continue
		}

		if changed {
			marked++

			s.invalidate(ctx, id)
		}
	}

	if marked > 0 {
		log.Info().Int("marked", marked).Msg("bookings marked overdue")
	}

	return marked, errors.Join(errs...)
}

func (s *serviceImpl) listIDs(ctx context.Context, filter model.ListFilter) ([]string, error) {
	ids := []string{}

	err := s.uow.View(ctx, func(ctx context.Context, tx uow.Tx) error {
		bookings, _, err := tx.Bookings().List(ctx, filter, gDto.QueryParams{})
		if err != nil {
			return err //nolint:wrapcheck
		}

		ids = ids[:0]
		for _, booking := range bookings {
			ids = append(ids, booking.ID)
		}

		return nil
	})

	return ids, err //nolint:wrapcheck
}
