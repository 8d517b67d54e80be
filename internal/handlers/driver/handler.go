package driver

import (
	"benzback/infras/otel"
	"benzback/internal/domains/driver/service"
	"benzback/shared/constant"
	"benzback/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	messageOnline  = "driver is online"
	messageOffline = "driver is offline"
)

type Handler struct {
	service service.Driver
	otel    otel.Otel
}

func New(service service.Driver, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/drivers/{driver_id}", func(routerGroup chi.Router) {
		routerGroup.Post("/heartbeat", handler.Heartbeat)
		routerGroup.Delete("/presence", handler.Offline)
	})
}

// Heartbeat marks a professional driver online.
// @Summary Driver heartbeat
// @Tags Driver
// @Produce json
// @Param driver_id path string true "Driver ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/drivers/{driver_id}/heartbeat [post]
// @Security BearerAuth
func (handler *Handler) Heartbeat(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DriverHeartbeat")
	defer scope.End()

	driverID := chi.URLParam(request, constant.RequestParamDriverID)

	if err := handler.service.Heartbeat(ctx, driverID); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("driver_id", driverID).Msg("heartbeat rejected")
		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, messageOnline)
}

// Offline removes a driver from the online set.
// @Summary Driver goes offline
// @Tags Driver
// @Produce json
// @Param driver_id path string true "Driver ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Router /v1/drivers/{driver_id}/presence [delete]
// @Security BearerAuth
func (handler *Handler) Offline(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DriverOffline")
	defer scope.End()

	driverID := chi.URLParam(request, constant.RequestParamDriverID)

	if err := handler.service.Offline(ctx, driverID); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("driver_id", driverID).Msg("failed to mark driver offline")
		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, messageOffline)
}
