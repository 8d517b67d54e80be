package payment

import (
	"benzback/infras/otel"
	"benzback/internal/domains/booking/model/dto"
	"benzback/internal/domains/booking/service"
	"benzback/shared/constant"
	"benzback/shared/validator"
	"benzback/transport/http/response"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
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
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Post("/webhook", handler.Webhook)
	})
}

// Webhook receives the payment provider's checkout-completed event. Redelivered events
// for an already paid booking are acknowledged without changes.
// @Summary Payment webhook
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.PaymentWebhookRequest true "Checkout completed event"
// @Success 200 {object} response.Data[dto.BookingResponse] "Confirmed booking"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/payments/webhook [post]
// @Security ApiKeyAuth
func (handler *Handler) Webhook(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".PaymentWebhook")
	defer scope.End()

	req := dto.PaymentWebhookRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Msg("invalid payment webhook body")
		response.WithError(writer, err)

		return
	}

	scope.SetAttributes(map[string]any{
		"booking_id": req.BookingID,
		"session_id": req.SessionID,
	})

	booking, err := handler.service.ConfirmPayment(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", req.BookingID).Msg("failed to confirm payment")
		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}
