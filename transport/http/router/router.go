package router

import (
	"benzback/internal/handlers/booking"
	"benzback/internal/handlers/driver"
	"benzback/internal/handlers/payment"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Booking booking.Handler
	Payment payment.Handler
	Driver  driver.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
		r.DomainHandlers.Driver.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
