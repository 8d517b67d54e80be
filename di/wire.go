//go:build wireinject
// +build wireinject

package di

import (
	"benzback/config"
	"benzback/infras/jwt"
	"benzback/infras/kafka"
	"benzback/infras/otel"
	"benzback/infras/postgres"
	"benzback/infras/redis"
	"benzback/infras/s3"
	"benzback/internal/presence"
	"benzback/internal/uow"
	"benzback/internal/worker"
	"benzback/permissions"
	"benzback/shared/cache"
	"benzback/transport/http"
	"benzback/transport/http/middleware"
	"benzback/transport/http/router"

	bookingRepository "benzback/internal/domains/booking/repository"
	bookingService "benzback/internal/domains/booking/service"
	driverRepository "benzback/internal/domains/driver/repository"
	driverService "benzback/internal/domains/driver/service"
	outboxRepository "benzback/internal/domains/outbox/repository"
	sessionRepository "benzback/internal/domains/session/repository"
	userRepository "benzback/internal/domains/user/repository"
	vehicleRepository "benzback/internal/domains/vehicle/repository"
	bookingHandler "benzback/internal/handlers/booking"
	driverHandler "benzback/internal/handlers/driver"
	paymentHandler "benzback/internal/handlers/payment"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
)

var messaging = wire.NewSet(
	kafka.New,
	s3.New,
	redis.NewBroadcaster,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var repositories = wire.NewSet(
	bookingRepository.New,
	vehicleRepository.New,
	driverRepository.New,
	userRepository.New,
	sessionRepository.New,
	outboxRepository.New,
	wire.Struct(new(uow.Repositories), "*"),
	uow.NewPostgres,
)

var domains = wire.NewSet(
	presence.NewRedis,
	bookingService.New,
	driverService.New,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	bookingHandler.New,
	paymentHandler.New,
	driverHandler.New,
	router.New,
)

var workers = wire.NewSet(
	worker.NewRelay,
	worker.NewScheduler,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		repositories,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

func InitializeWorker() *worker.Scheduler {
	wire.Build(
		configurations,
		infrastructures,
		messaging,
		sharedHelpers,
		repositories,
		domains,
		workers,
	)

	return &worker.Scheduler{}
}
