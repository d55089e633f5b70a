//go:build wireinject
// +build wireinject

package di

import (
	"thakajabe/config"
	"thakajabe/infras/gateway"
	"thakajabe/infras/jwt"
	"thakajabe/infras/kafka"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel"
	"thakajabe/infras/postgres"
	"thakajabe/infras/redis"
	"thakajabe/infras/s3"
	bookingHandler "thakajabe/internal/handlers/booking"
	ledgerHandler "thakajabe/internal/handlers/ledger"
	paymentHandler "thakajabe/internal/handlers/payment"
	payoutHandler "thakajabe/internal/handlers/payout"
	roomHandler "thakajabe/internal/handlers/room"
	payoutWorker "thakajabe/internal/workers/payout"
	"thakajabe/permissions"
	"thakajabe/shared/cache"
	"thakajabe/shared/event"
	gRepo "thakajabe/shared/repository"
	"thakajabe/transport/http"
	"thakajabe/transport/http/middleware"
	"thakajabe/transport/http/router"

	bookingRepository "thakajabe/internal/domains/booking/repository"
	bookingService "thakajabe/internal/domains/booking/service"
	ledgerRepository "thakajabe/internal/domains/ledger/repository"
	ledgerService "thakajabe/internal/domains/ledger/service"
	paymentRepository "thakajabe/internal/domains/payment/repository"
	paymentService "thakajabe/internal/domains/payment/service"
	payoutRepository "thakajabe/internal/domains/payout/repository"
	payoutService "thakajabe/internal/domains/payout/service"
	roomRepository "thakajabe/internal/domains/room/repository"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	otel.New,
	jwt.New,
	s3.New,
	gateway.NewSSLCommerz,
	provideKafkaClient,
)

var postgresStorage = wire.NewSet(
	postgres.New,
	redis.New,
	cache.NewRedisCache,
	gRepo.NewTransactor,
	roomRepository.New,
	bookingRepository.New,
	paymentRepository.New,
	ledgerRepository.New,
	payoutRepository.New,
)

var memoryStorage = wire.NewSet(
	memory.NewStore,
	memory.NewCache,
	memory.NewBroker,
	wire.Bind(new(gRepo.Transactor), new(*memory.Store)),
	wire.Bind(new(cache.RedisCache), new(*memory.Cache)),
	wire.Bind(new(kafka.Client), new(*memory.Broker)),
	roomRepository.NewMemory,
	bookingRepository.NewMemory,
	paymentRepository.NewMemory,
	ledgerRepository.NewMemory,
	payoutRepository.NewMemory,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	event.NewPublisher,
)

var domains = wire.NewSet(
	bookingService.New,
	paymentService.New,
	ledgerService.New,
	payoutService.New,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	ledgerHandler.New,
	payoutHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		postgresStorage,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

// InitializeMemoryService runs the whole engine on the in-process store, cache and broker.
func InitializeMemoryService() *http.HTTP {
	wire.Build(
		config.Get,
		permissions.Get,
		otel.New,
		jwt.New,
		s3.New,
		gateway.NewSSLCommerz,
		memoryStorage,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}

func InitializeWorker() *payoutWorker.Worker {
	wire.Build(
		configurations,
		infrastructures,
		postgresStorage,
		sharedHelpers,
		ledgerService.New,
		payoutService.New,
		payoutWorker.New,
	)

	return &payoutWorker.Worker{}
}
