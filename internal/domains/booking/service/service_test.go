package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"benzback/config"
	"benzback/infras/otel/mocks"
	"benzback/internal/domains/booking/model"
	"benzback/internal/domains/booking/model/dto"
	"benzback/internal/domains/booking/service"
	dModel "benzback/internal/domains/driver/model"
	oModel "benzback/internal/domains/outbox/model"
	sModel "benzback/internal/domains/session/model"
	uModel "benzback/internal/domains/user/model"
	vModel "benzback/internal/domains/vehicle/model"
	"benzback/internal/presence"
	"benzback/internal/uow"
	"benzback/shared/cache"
	cacheMocks "benzback/shared/cache/mocks"
	"benzback/shared/constant"
	gDto "benzback/shared/dto"
	"benzback/shared/failure"
)

var (
	errBoom   = errors.New("boom")
	startTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type harness struct {
	svc      service.Booking
	memory   *uow.Memory
	registry presence.Registry
	clock    *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	memory := uow.NewMemory(uow.RetryPolicy{MaxRetries: 3, Base: time.Millisecond})
	memory.SeedVehicle(vModel.Vehicle{
		ID:               "v-1",
		Name:             "Sedan",
		PricePerDay:      100,
		CurrentOdometer:  1000,
		FuelLevel:        100,
		FuelTankCapacity: 60,
		Status:           vModel.StatusAvailable,
	})
	memory.SeedUser(uModel.User{ID: "u-1", Email: "renter@example.com", Role: constant.RoleRenter, RentalCount: 4, LoyaltyTier: uModel.TierStandard})
	memory.SeedDriver(dModel.Driver{ID: "d-own", UserID: "u-1", LicenseVerified: true, InsuranceVerified: true})

	registry := presence.NewMemory()
	clk := &clock{now: startTime}

	return &harness{
		svc:      service.NewWithClock(memory, registry, service.DefaultPolicy(), cfg, mockCache, mocks.NewOtel(), clk.Now),
		memory:   memory,
		registry: registry,
		clock:    clk,
	}
}

func asUser(userID, role string) context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, userID)

	return context.WithValue(ctx, constant.ContextKeyUserRole, role)
}

var (
	renterCtx = asUser("u-1", constant.RoleRenter)
	adminCtx  = asUser("admin-1", constant.RoleAdmin)
)

func fuel(level float64) *float64 {
	return &level
}

func createRequest() dto.CreateBookingRequest {
	return dto.CreateBookingRequest{
		VehicleID:      "v-1",
		PickupDate:     "2026-03-01T10:00:00Z",
		ReturnDate:     "2026-03-04T10:00:00Z",
		PickupLocation: "Airport",
		DriverID:       "d-own",
	}
}

func (h *harness) create(t *testing.T) dto.BookingResponse {
	t.Helper()

	res, err := h.svc.Create(renterCtx, createRequest())
	require.NoError(t, err)

	return res
}

func (h *harness) confirm(t *testing.T, id string) {
	t.Helper()

	_, err := h.svc.ConfirmPayment(context.Background(), dto.PaymentWebhookRequest{SessionID: "cs_1", BookingID: id, AmountTotal: 32400})
	require.NoError(t, err)
}

func (h *harness) checkIn(t *testing.T, id string) {
	t.Helper()

	_, err := h.svc.CheckIn(renterCtx, id, dto.CheckInRequest{Odometer: 1000, FuelLevel: fuel(100)})
	require.NoError(t, err)
}

func (h *harness) seedProfessionals(t *testing.T, n int) []string {
	t.Helper()

	ids := make([]string, n)

	for i := range n {
		ids[i] = "pro-" + string(rune('a'+i))
		h.memory.SeedDriver(dModel.Driver{
			ID:                ids[i],
			UserID:            "owner-" + ids[i],
			LicenseVerified:   true,
			InsuranceVerified: true,
			Professional:      true,
		})
		require.NoError(t, h.registry.Heartbeat(context.Background(), ids[i], startTime))
	}

	return ids
}

func (h *harness) outboxEvents(event string) []oModel.Message {
	matched := []oModel.Message{}

	for _, message := range h.memory.OutboxMessages() {
		if message.Event == event {
			matched = append(matched, message)
		}
	}

	return matched
}

func TestBookingService_Create(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(req *dto.CreateBookingRequest)
		wantErr    error
		wantStatus string
	}{
		{
			name:       "verified driver goes straight to payment",
			mutate:     func(*dto.CreateBookingRequest) {},
			wantStatus: model.StatusPendingPayment.String(),
		},
		{
			name: "new documents wait for verification",
			mutate: func(req *dto.CreateBookingRequest) {
				req.DriverID = ""
				req.LicenseRef = "lic-1"
				req.InsuranceRef = "ins-1"
			},
			wantStatus: model.StatusVerificationPending.String(),
		},
		{
			name:       "no driver requires a license",
			mutate:     func(req *dto.CreateBookingRequest) { req.DriverID = "" },
			wantStatus: model.StatusLicenseRequired.String(),
		},
		{
			name: "half the documents",
			mutate: func(req *dto.CreateBookingRequest) {
				req.DriverID = ""
				req.LicenseRef = "lic-1"
			},
			wantErr: model.ErrInvalidDriverDocuments,
		},
		{
			name:    "return before pickup",
			mutate:  func(req *dto.CreateBookingRequest) { req.ReturnDate = "2026-02-28T10:00:00Z" },
			wantErr: model.ErrInvalidDateRange,
		},
		{
			name:    "unknown vehicle",
			mutate:  func(req *dto.CreateBookingRequest) { req.VehicleID = "v-404" },
			wantErr: model.ErrVehicleNotFound,
		},
		{
			name:    "driver owned by someone else",
			mutate:  func(req *dto.CreateBookingRequest) { req.DriverID = "d-other" },
			wantErr: model.ErrDriverNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.memory.SeedDriver(dModel.Driver{ID: "d-other", UserID: "u-2", LicenseVerified: true, InsuranceVerified: true})

			req := createRequest()
			tt.mutate(&req)

			res, err := h.svc.Create(renterCtx, req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, h.memory.Bookings())
				assert.Empty(t, h.memory.OutboxMessages())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, 3, res.RentalDays)
			assert.InDelta(t, 300, res.BasePrice, 1e-9)
			assert.InDelta(t, 24, res.TaxAmount, 1e-9)
			assert.InDelta(t, 324, res.TotalPrice, 1e-9)
			require.Len(t, res.History, 1)
			assert.Equal(t, model.HistoryNoteCreated, res.History[0].Note)

			assert.Len(t, h.outboxEvents(oModel.EventBookingCreated), 1)

			admins := h.outboxEvents(oModel.EventBookingCreatedInfo)
			require.Len(t, admins, 1)
			assert.Equal(t, oModel.RecipientAdmins, admins[0].Recipient)
		})
	}
}

func TestBookingService_CreateIsAtomic(t *testing.T) {
	h := newHarness(t)
	h.memory.InjectFault(uow.OpOutboxInsert, errBoom, 1)

	req := createRequest()
	req.DriverID = ""
	req.LicenseRef = "lic-1"
	req.InsuranceRef = "ins-1"

	_, err := h.svc.Create(renterCtx, req)
	require.ErrorIs(t, err, errBoom)

	assert.Empty(t, h.memory.Bookings())
	assert.Len(t, h.memory.Drivers(), 1)

	user, ok := h.memory.User("u-1")
	require.True(t, ok)
	assert.Empty(t, user.DriverIDs)
}

func TestBookingService_ConcurrentAcceptHasOneWinner(t *testing.T) {
	h := newHarness(t)
	drivers := h.seedProfessionals(t, 8)

	booking := h.create(t)

	requested, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.DriverRequestPending), requested.DriverRequestStatus)
	assert.ElementsMatch(t, drivers, requested.OfferedDriverIDs)
	assert.Len(t, h.outboxEvents(oModel.EventDriverRequest), len(drivers))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  int
	)

	for _, driverID := range drivers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := h.svc.AcceptRequest(asUser("owner-"+driverID, constant.RoleDriver), booking.ID, driverID)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				winners = append(winners, driverID)
			case errors.Is(err, model.ErrAlreadyAssigned):
				losers++
			default:
				t.Errorf("unexpected error for %s: %v", driverID, err)
			}
		}()
	}

	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, len(drivers)-1, losers)

	stored, ok := h.memory.Booking(booking.ID)
	require.True(t, ok)
	assert.True(t, stored.DriverAssigned)
	assert.Equal(t, winners[0], stored.ProfessionalDriverID)
	assert.Equal(t, model.DriverRequestAccepted, stored.DriverRequestStatus)
	assert.Equal(t, model.StatusPendingPayment, stored.Status)

	assert.Len(t, h.outboxEvents(oModel.EventDriverAccepted), 1)
	assert.Len(t, h.outboxEvents(oModel.EventDriverClosed), len(drivers)-1)
	assert.Len(t, h.outboxEvents(oModel.EventBookingAssigned), 1)
}

func TestBookingService_RequestDriverSkipsOwnAndOfflineDrivers(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 2)
	h.memory.SeedDriver(dModel.Driver{ID: "pro-self", UserID: "u-1", LicenseVerified: true, InsuranceVerified: true, Professional: true})
	h.memory.SeedDriver(dModel.Driver{ID: "pro-stale", UserID: "u-9", LicenseVerified: true, InsuranceVerified: true, Professional: true})
	require.NoError(t, h.registry.Heartbeat(context.Background(), "pro-self", startTime))
	require.NoError(t, h.registry.Heartbeat(context.Background(), "pro-stale", startTime.Add(-time.Hour)))

	booking := h.create(t)

	res, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pro-a", "pro-b"}, res.OfferedDriverIDs)
}

func TestBookingService_AcceptRequestRejections(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 1)
	h.memory.SeedDriver(dModel.Driver{ID: "amateur", UserID: "owner-amateur", LicenseVerified: true, InsuranceVerified: true})

	booking := h.create(t)

	_, err := h.svc.AcceptRequest(asUser("owner-pro-a", constant.RoleDriver), booking.ID, "pro-a")
	require.ErrorIs(t, err, model.ErrAlreadyAssigned, "no open request yet")

	_, err = h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	tests := []struct {
		name     string
		ctx      context.Context
		driverID string
		wantErr  error
	}{
		{name: "unknown driver", ctx: adminCtx, driverID: "ghost", wantErr: model.ErrDriverNotFound},
		{name: "someone else's driver", ctx: asUser("intruder", constant.RoleDriver), driverID: "pro-a", wantErr: failure.ForbiddenError},
		{name: "not a professional", ctx: asUser("owner-amateur", constant.RoleDriver), driverID: "amateur", wantErr: model.ErrDriverNotEligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.AcceptRequest(tt.ctx, booking.ID, tt.driverID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBookingService_DriverRequestExpiry(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 2)

	booking := h.create(t)

	_, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Minute)

	got, err := h.svc.Get(renterCtx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.DriverRequestExpired), got.DriverRequestStatus)

	stored, _ := h.memory.Booking(booking.ID)
	assert.Equal(t, model.DriverRequestPending, stored.DriverRequestStatus)

	_, err = h.svc.AcceptRequest(asUser("owner-pro-a", constant.RoleDriver), booking.ID, "pro-a")
	require.ErrorIs(t, err, model.ErrAlreadyAssigned)

	expired, err := h.svc.ExpireDriverRequests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, _ = h.memory.Booking(booking.ID)
	assert.Equal(t, model.DriverRequestExpired, stored.DriverRequestStatus)
	assert.Len(t, h.outboxEvents(oModel.EventDriverClosed), 2)

	expired, err = h.svc.ExpireDriverRequests(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestBookingService_GetAllFiltersByEffectiveRequestStatus(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 2)

	booking := h.create(t)

	_, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	list := func(status model.DriverRequestStatus) dto.GetBookingsResponse {
		t.Helper()

		res, err := h.svc.GetAll(renterCtx, gDto.QueryParams{Page: 1, Limit: 10}, model.ListFilter{DriverRequestStatus: status})
		require.NoError(t, err)

		return res
	}

	tests := []struct {
		name        string
		advance     time.Duration
		sweep       bool
		wantPending int
		wantExpired int
	}{
		{name: "inside the window", advance: time.Minute, wantPending: 1},
		{name: "window passed before the sweep", advance: 5 * time.Minute, wantExpired: 1},
		{name: "after the sweep", sweep: true, wantExpired: 1},
	}

	for _, tt := range tests {
		h.clock.Advance(tt.advance)

		if tt.sweep {
			_, err := h.svc.ExpireDriverRequests(context.Background())
			require.NoError(t, err)
		}

		pending := list(model.DriverRequestPending)
		assert.Equal(t, tt.wantPending, pending.TotalData, tt.name)

		expired := list(model.DriverRequestExpired)
		require.Equal(t, tt.wantExpired, expired.TotalData, tt.name)

		for _, res := range expired.Bookings {
			assert.Equal(t, string(model.DriverRequestExpired), res.DriverRequestStatus, tt.name)
		}
	}
}

func TestBookingService_CancelDriverRequest(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 3)

	booking := h.create(t)

	_, err := h.svc.CancelDriverRequest(renterCtx, booking.ID)
	require.ErrorIs(t, err, model.ErrInvalidBookingState)

	_, err = h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	res, err := h.svc.CancelDriverRequest(renterCtx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.DriverRequestDeclined), res.DriverRequestStatus)
	assert.Len(t, h.outboxEvents(oModel.EventDriverClosed), 3)
}

func TestBookingService_ConfirmPaymentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	booking := h.create(t)

	for range 3 {
		res, err := h.svc.ConfirmPayment(context.Background(), dto.PaymentWebhookRequest{SessionID: "cs_1", BookingID: booking.ID, AmountTotal: 32400})
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed.String(), res.Status)
		assert.Equal(t, string(model.PaymentPaid), res.PaymentStatus)
	}

	stored, _ := h.memory.Booking(booking.ID)
	require.Len(t, stored.History, 2)
	assert.Equal(t, constant.ActorWebhook, stored.History[1].Actor)
	assert.Len(t, h.outboxEvents(oModel.EventPaymentConfirmed), 1)
}

func TestBookingService_ConfirmPaymentRejections(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.ConfirmPayment(context.Background(), dto.PaymentWebhookRequest{SessionID: "cs_1", BookingID: "missing"})
	require.ErrorIs(t, err, model.ErrBookingNotFound)

	req := createRequest()
	req.DriverID = ""
	unpaid, err := h.svc.Create(renterCtx, req)
	require.NoError(t, err)

	_, err = h.svc.ConfirmPayment(context.Background(), dto.PaymentWebhookRequest{SessionID: "cs_1", BookingID: unpaid.ID})
	require.ErrorIs(t, err, model.ErrInvalidBookingState)
}

func TestBookingService_CheckIn(t *testing.T) {
	tests := []struct {
		name     string
		advance  time.Duration
		pickup   string
		req      dto.CheckInRequest
		wantErr  error
		wantOdom float64
	}{
		{
			name:     "records the snapshot and rents the vehicle",
			req:      dto.CheckInRequest{Odometer: 1010, FuelLevel: fuel(90)},
			wantOdom: 1010,
		},
		{
			name:    "odometer below the vehicle reading",
			req:     dto.CheckInRequest{Odometer: 900},
			wantErr: model.ErrOdometerRegression,
		},
		{
			name:    "fuel out of range",
			req:     dto.CheckInRequest{Odometer: 1000, FuelLevel: fuel(120)},
			wantErr: model.ErrInvalidFuelLevel,
		},
		{
			name:    "pickup day not reached",
			pickup:  "2026-03-03T10:00:00Z",
			req:     dto.CheckInRequest{Odometer: 1000},
			wantErr: model.ErrPickupNotYetDue,
		},
		{
			name:     "later on the pickup day is fine",
			pickup:   "2026-03-01T23:00:00Z",
			req:      dto.CheckInRequest{Odometer: 1000},
			wantOdom: 1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			req := createRequest()
			if tt.pickup != "" {
				req.PickupDate = tt.pickup
				req.ReturnDate = "2026-03-06T10:00:00Z"
			}

			booking, err := h.svc.Create(renterCtx, req)
			require.NoError(t, err)
			h.confirm(t, booking.ID)

			res, err := h.svc.CheckIn(renterCtx, booking.ID, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				stored, _ := h.memory.Booking(booking.ID)
				assert.Equal(t, model.StatusConfirmed, stored.Status)
				assert.Empty(t, h.memory.Sessions())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, model.StatusActive.String(), res.Status)
			require.NotNil(t, res.CheckIn)
			assert.InDelta(t, tt.wantOdom, res.CheckIn.Odometer, 1e-9)

			vehicle, _ := h.memory.Vehicle("v-1")
			assert.Equal(t, vModel.StatusRented, vehicle.Status)
			assert.InDelta(t, tt.wantOdom, vehicle.CurrentOdometer, 1e-9)

			sessions := h.memory.Sessions()
			require.Len(t, sessions, 1)
			assert.Equal(t, sModel.StatusOpen, sessions[0].Status)
		})
	}
}

func TestBookingService_CheckInRequiresConfirmedBooking(t *testing.T) {
	h := newHarness(t)
	booking := h.create(t)

	_, err := h.svc.CheckIn(renterCtx, booking.ID, dto.CheckInRequest{Odometer: 1000})
	require.ErrorIs(t, err, model.ErrInvalidBookingState)

	h.confirm(t, booking.ID)

	_, err = h.svc.CheckIn(asUser("u-2", constant.RoleRenter), booking.ID, dto.CheckInRequest{Odometer: 1000})
	require.ErrorIs(t, err, model.ErrRequesterNotBookingUser)
}

func TestBookingService_CheckOutSettlement(t *testing.T) {
	h := newHarness(t)
	booking := h.create(t)
	h.confirm(t, booking.ID)
	h.checkIn(t, booking.ID)

	_, err := h.svc.CheckOut(renterCtx, booking.ID, dto.CheckOutRequest{Odometer: 990, FuelLevel: 80})
	require.ErrorIs(t, err, model.ErrInvalidOdometerReading)

	res, err := h.svc.CheckOut(renterCtx, booking.ID, dto.CheckOutRequest{Odometer: 1250, FuelLevel: 80})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted.String(), res.Status)
	require.NotNil(t, res.Settlement)
	assert.InDelta(t, 250, res.Settlement.MileageUsed, 1e-9)
	assert.InDelta(t, 25, res.Settlement.MileageCharge, 1e-9)
	assert.InDelta(t, 37.2, res.Settlement.FuelCharge, 1e-9)
	assert.InDelta(t, 75, res.Settlement.CleaningCharge, 1e-9)
	assert.InDelta(t, 137.2, res.AdditionalCharges, 1e-9)
	assert.InDelta(t, 461.2, res.TotalCharges, 1e-9)

	vehicle, _ := h.memory.Vehicle("v-1")
	assert.Equal(t, vModel.StatusAvailable, vehicle.Status)
	assert.InDelta(t, 1250, vehicle.CurrentOdometer, 1e-9)
	assert.InDelta(t, 80, vehicle.FuelLevel, 1e-9)

	user, _ := h.memory.User("u-1")
	assert.Equal(t, 5, user.RentalCount)
	assert.Equal(t, uModel.TierBronze, user.LoyaltyTier)

	sessions := h.memory.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, sModel.StatusClosed, sessions[0].Status)

	archives := h.outboxEvents(oModel.EventSettlementArchived)
	require.Len(t, archives, 1)
	assert.Equal(t, oModel.KindArchive, archives[0].Kind)
	assert.Equal(t, booking.ID+".json", archives[0].Topic)

	_, err = h.svc.CheckOut(renterCtx, booking.ID, dto.CheckOutRequest{Odometer: 1300, FuelLevel: 80})
	require.ErrorIs(t, err, model.ErrInvalidBookingState)
}

func TestBookingService_OdometerNeverRegressesAcrossRentals(t *testing.T) {
	h := newHarness(t)

	first := h.create(t)
	h.confirm(t, first.ID)
	h.checkIn(t, first.ID)

	_, err := h.svc.CheckOut(renterCtx, first.ID, dto.CheckOutRequest{Odometer: 1400, FuelLevel: 100})
	require.NoError(t, err)

	second := h.create(t)
	h.confirm(t, second.ID)

	_, err = h.svc.CheckIn(renterCtx, second.ID, dto.CheckInRequest{Odometer: 1399})
	require.ErrorIs(t, err, model.ErrOdometerRegression)

	_, err = h.svc.CheckIn(renterCtx, second.ID, dto.CheckInRequest{Odometer: 1400})
	require.NoError(t, err)
}

func TestBookingService_Transition(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		target     model.Status
		wantErr    error
		wantStatus model.Status
	}{
		{name: "renter cancels", ctx: renterCtx, target: model.StatusCancelled, wantStatus: model.StatusCancelled},
		{name: "renter cannot mark no show", ctx: renterCtx, target: model.StatusNoShow, wantErr: failure.ForbiddenError},
		{name: "admin cannot skip payment", ctx: adminCtx, target: model.StatusNoShow, wantErr: model.ErrInvalidTransition},
		{name: "completed is not a manual target", ctx: adminCtx, target: model.StatusCompleted, wantErr: model.ErrInvalidTransition},
		{name: "same status is a no-op", ctx: adminCtx, target: model.StatusPendingPayment, wantStatus: model.StatusPendingPayment},
		{name: "other renters are refused", ctx: asUser("u-2", constant.RoleRenter), target: model.StatusCancelled, wantErr: model.ErrRequesterNotBookingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			booking := h.create(t)

			res, err := h.svc.Transition(tt.ctx, booking.ID, dto.TransitionRequest{Status: tt.target.String(), Note: "manual"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				stored, _ := h.memory.Booking(booking.ID)
				assert.Equal(t, model.StatusPendingPayment, stored.Status)
				assert.Len(t, stored.History, 1)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus.String(), res.Status)

			stored, _ := h.memory.Booking(booking.ID)
			assert.Equal(t, tt.wantStatus, stored.Status)
		})
	}
}

func TestBookingService_CancelClosesOpenRequest(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 2)
	booking := h.create(t)

	_, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	res, err := h.svc.Transition(renterCtx, booking.ID, dto.TransitionRequest{Status: model.StatusCancelled.String()})
	require.NoError(t, err)
	assert.Equal(t, string(model.DriverRequestDeclined), res.DriverRequestStatus)
	assert.Len(t, h.outboxEvents(oModel.EventDriverClosed), 2)

	_, err = h.svc.RequestDriver(renterCtx, booking.ID)
	require.ErrorIs(t, err, model.ErrInvalidBookingState)
}

func TestBookingService_PaymentClosesOpenRequest(t *testing.T) {
	h := newHarness(t)
	h.seedProfessionals(t, 2)
	booking := h.create(t)

	_, err := h.svc.RequestDriver(renterCtx, booking.ID)
	require.NoError(t, err)

	res, err := h.svc.ConfirmPayment(context.Background(), dto.PaymentWebhookRequest{SessionID: "cs_1", BookingID: booking.ID, AmountTotal: 32400})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed.String(), res.Status)
	assert.Equal(t, string(model.DriverRequestDeclined), res.DriverRequestStatus)
	assert.Len(t, h.outboxEvents(oModel.EventDriverClosed), 2)
	assert.Len(t, h.outboxEvents(oModel.EventPaymentConfirmed), 1)

	_, err = h.svc.AcceptRequest(asUser("owner-pro-a", constant.RoleDriver), booking.ID, "pro-a")
	require.ErrorIs(t, err, model.ErrAlreadyAssigned)

	stored, _ := h.memory.Booking(booking.ID)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	assert.False(t, stored.DriverAssigned)
}

func TestBookingService_MarkOverdue(t *testing.T) {
	h := newHarness(t)
	booking := h.create(t)
	h.confirm(t, booking.ID)
	h.checkIn(t, booking.ID)

	marked, err := h.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)

	h.clock.Advance(4 * 24 * time.Hour)

	marked, err = h.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	stored, _ := h.memory.Booking(booking.ID)
	assert.Equal(t, model.StatusOverdue, stored.Status)
	assert.Equal(t, constant.ActorSystem, stored.History[len(stored.History)-1].Actor)

	res, err := h.svc.CheckOut(renterCtx, booking.ID, dto.CheckOutRequest{Odometer: 1100, FuelLevel: 100})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted.String(), res.Status)
}

func TestBookingService_GetAll(t *testing.T) {
	h := newHarness(t)
	h.create(t)
	h.create(t)

	other := createRequest()
	other.DriverID = ""
	_, err := h.svc.Create(asUser("u-2", constant.RoleRenter), other)
	require.NoError(t, err)

	mine, err := h.svc.GetAll(renterCtx, gDto.QueryParams{Page: 1, Limit: 10}, model.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, mine.TotalData)

	all, err := h.svc.GetAll(adminCtx, gDto.QueryParams{Page: 1, Limit: 10}, model.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalData)

	_, err = h.svc.Get(asUser("u-2", constant.RoleRenter), mine.Bookings[0].ID)
	require.ErrorIs(t, err, model.ErrRequesterNotBookingUser)
}
