package booking

import (
	"benzback/infras/otel"
	"benzback/internal/domains/booking/model"
	"benzback/internal/domains/booking/model/dto"
	"benzback/internal/domains/booking/service"
	"benzback/shared/constant"
	gDto "benzback/shared/dto"
	"benzback/shared/failure"
	"benzback/shared/validator"
	"benzback/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	queryParamUserID    = "user_id"
	queryParamVehicleID = "vehicle_id"
	queryParamStatus    = "status"
	queryParamRequest   = "driver_request_status"
)

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Get("/", handler.GetBookings)
		routerGroup.Get("/{id}", handler.GetBookingByID)
		routerGroup.Patch("/{id}/status", handler.TransitionBooking)
		routerGroup.Post("/{id}/check-in", handler.CheckIn)
		routerGroup.Post("/{id}/check-out", handler.CheckOut)
		routerGroup.Post("/{id}/driver-request", handler.RequestDriver)
		routerGroup.Delete("/{id}/driver-request", handler.CancelDriverRequest)
		routerGroup.Post("/{id}/driver-request/{driver_id}/accept", handler.AcceptRequest)
	})
}

func (handler *Handler) fail(writer http.ResponseWriter, scope otel.Scope, err error, msg string) {
	scope.TraceError(err)

	if failure.GetCode(err) >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	} else {
		log.Warn().Err(err).Msg(msg)
	}

	response.WithError(writer, err)
}

// CreateBooking handles the creation of a new booking.
// @Summary Create a new booking
// @Description Create a vehicle booking. The initial status depends on the driver documents supplied.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Booking created"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
// @Security BearerAuth
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		handler.fail(writer, scope, err, "failed to validate request body")

		return
	}

	booking, err := handler.service.Create(ctx, req)
	if err != nil {
		handler.fail(writer, scope, err, "failed to create booking")

		return
	}

	scope.AddEvent("Booking created " + booking.ID)

	response.WithJSON(writer, http.StatusCreated, booking)
}

// GetBookings lists bookings. Renters only ever see their own.
// @Summary Get bookings
// @Description Retrieve bookings with optional filtering and pagination.
// @Tags Booking
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param user_id query string false "Filter by renter (admin only)"
// @Param vehicle_id query string false "Filter by vehicle"
// @Param status query string false "Filter by booking status"
// @Param driver_request_status query string false "Filter by driver request status"
// @Success 200 {object} response.Data[dto.GetBookingsResponse] "List of bookings"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	query := request.URL.Query()

	filter := model.ListFilter{
		UserID:              query.Get(queryParamUserID),
		VehicleID:           query.Get(queryParamVehicleID),
		Status:              model.Status(query.Get(queryParamStatus)),
		DriverRequestStatus: model.DriverRequestStatus(query.Get(queryParamRequest)),
	}

	if filter.Status != constant.Empty && !filter.Status.IsValid() {
		handler.fail(writer, scope, failure.BadRequestFromString("invalid status filter"), "invalid booking filter")

		return
	}

	bookings, err := handler.service.GetAll(ctx, queryParams, filter)
	if err != nil {
		handler.fail(writer, scope, err, "failed to get bookings")

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking by its ID.
// @Summary Get a booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking details"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	booking, err := handler.service.Get(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		handler.fail(writer, scope, err, "failed to get booking by ID")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// TransitionBooking applies a manual status change.
// @Summary Change a booking's status
// @Description Renters may cancel their own bookings. Admins may also move bookings between the verification, payment, no-show and overdue states.
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.TransitionRequest true "Transition Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Updated booking"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/status [patch]
// @Security BearerAuth
func (handler *Handler) TransitionBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".TransitionBooking")
	defer scope.End()

	req := dto.TransitionRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		handler.fail(writer, scope, err, "failed to validate request body")

		return
	}

	booking, err := handler.service.Transition(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		handler.fail(writer, scope, err, "failed to transition booking")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// CheckIn records the vehicle hand-over.
// @Summary Check in
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.CheckInRequest true "Check-in Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Active booking"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/check-in [post]
// @Security BearerAuth
func (handler *Handler) CheckIn(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckIn")
	defer scope.End()

	req := dto.CheckInRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		handler.fail(writer, scope, err, "failed to validate request body")

		return
	}

	booking, err := handler.service.CheckIn(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		handler.fail(writer, scope, err, "failed to check in")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// CheckOut records the vehicle return and settles additional charges.
// @Summary Check out
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.CheckOutRequest true "Check-out Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Completed booking with settlement"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/check-out [post]
// @Security BearerAuth
func (handler *Handler) CheckOut(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckOut")
	defer scope.End()

	req := dto.CheckOutRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		handler.fail(writer, scope, err, "failed to validate request body")

		return
	}

	booking, err := handler.service.CheckOut(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		handler.fail(writer, scope, err, "failed to check out")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// RequestDriver offers the booking to online professional drivers.
// @Summary Request a professional driver
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking with an open driver request"
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/driver-request [post]
// @Security BearerAuth
func (handler *Handler) RequestDriver(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RequestDriver")
	defer scope.End()

	booking, err := handler.service.RequestDriver(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		handler.fail(writer, scope, err, "failed to request driver")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// CancelDriverRequest withdraws an open driver request.
// @Summary Cancel a driver request
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking with a declined request"
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/driver-request [delete]
// @Security BearerAuth
func (handler *Handler) CancelDriverRequest(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelDriverRequest")
	defer scope.End()

	booking, err := handler.service.CancelDriverRequest(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		handler.fail(writer, scope, err, "failed to cancel driver request")

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// AcceptRequest lets a professional driver claim the booking. Only the first caller wins.
// @Summary Accept a driver request
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Param driver_id path string true "Driver ID"
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking assigned to the driver"
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/bookings/{id}/driver-request/{driver_id}/accept [post]
// @Security BearerAuth
func (handler *Handler) AcceptRequest(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".AcceptRequest")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)
	driverID := chi.URLParam(request, constant.RequestParamDriverID)

	booking, err := handler.service.AcceptRequest(ctx, id, driverID)
	if err != nil {
		handler.fail(writer, scope, err, "failed to accept driver request")

		return
	}

	scope.AddEvent("Driver " + driverID + " assigned")

	response.WithJSON(writer, http.StatusOK, booking)
}
