package main

import (
	"context"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/backoff"
	"github.com/LerianStudio/lib-gated/gated/circuitbreaker"
	"github.com/LerianStudio/lib-gated/gated/events"
	"github.com/LerianStudio/lib-gated/gated/gateway"
	"github.com/LerianStudio/lib-gated/gated/idempotency"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/LerianStudio/lib-gated/gated/runtime"
	"github.com/LerianStudio/lib-gated/gated/server"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
	"github.com/gofiber/fiber/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const (
	valueSourceBreaker = "value-source"
	dependencyTimeout  = 5 * time.Second
)

// service is the composed gateway process.
type service struct {
	app      *fiber.App
	manager  *server.ServerManager
	registry *registry.Registry
	ledger   *ledger.Ledger
	adapter  *wrapper.Adapter
	handler  *gateway.Handler
}

// Run implements gated.App.
func (s *service) Run(*gated.Launcher) error {
	return s.manager.StartWithGracefulShutdownWithError()
}

// newService wires every component. Closers for the resources it opens are
// registered on the returned manager; on error they are released here.
func newService(ctx context.Context, cfg *Config, logger log.Logger, telemetry *opentelemetry.Telemetry) (_ *service, err error) {
	factory := telemetry.MetricsFactory
	manager := server.NewServerManager(telemetry, logger).WithShutdownTimeout(cfg.ShutdownTimeout())

	var cleanup []server.CloseFunc

	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				_ = cleanup[i](context.WithoutCancel(ctx))
			}
		}
	}()

	addCloser := func(name string, fn server.CloseFunc) {
		cleanup = append(cleanup, fn)
		manager.WithCloser(name, fn)
	}

	reg := registry.New(registry.WithLogger(logger), registry.WithMetricsFactory(factory))

	authorized, err := cfg.Authorized()
	if err != nil {
		return nil, err
	}

	for _, id := range authorized {
		reg.Grant(ctx, id)
	}

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetricsFactory(factory),
		ledger.WithDecimals(int32(cfg.LedgerDecimals)),
	}

	if cfg.RabbitMQURI != "" {
		publisher, closeBroker, err := openPublisher(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}

		addCloser("rabbitmq", closeBroker)

		ledgerOpts = append(ledgerOpts, ledger.WithCommitHook(events.LedgerHook(publisher, logger)))
	}

	l, err := ledger.New(reg, ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	breakers := circuitbreaker.NewManager(logger)
	breakers.RegisterStateChangeListener(circuitbreaker.NewMetricsListener(factory))
	external, err := seededSource(cfg)
	if err != nil {
		return nil, err
	}

	source := reserve.WithCircuitBreaker(external, breakers, valueSourceBreaker, circuitbreaker.ValueSourceConfig())

	adapter, err := wrapper.New(l, source, wrapper.WithLogger(logger), wrapper.WithMetricsFactory(factory))
	if err != nil {
		return nil, fmt.Errorf("create wrap adapter: %w", err)
	}

	treasury, err := cfg.Treasury()
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openIdempotencyStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if closeStore != nil {
		addCloser("redis", closeStore)
	}

	handler, err := gateway.New(reg, l,
		gateway.WithAdapter(adapter),
		gateway.WithIdempotency(store, cfg.IdempotencyTTL()),
		gateway.WithLogger(logger),
		gateway.WithMetricsFactory(factory),
		gateway.WithReserveOperations(cfg.ReserveOperations),
		gateway.WithTreasury(treasury),
	)
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	app := gateway.NewApp(gateway.AppConfig{
		Logger:    logger,
		Tracer:    telemetry.Tracer(),
		BodyLimit: int(cfg.BodyLimitBytes),
	}, handler)

	manager.WithHTTPServer(app, cfg.ServerAddress)

	svc := &service{app: app, manager: manager, registry: reg, ledger: l, adapter: adapter, handler: handler}

	stopMonitor := svc.startMonitor(ctx, cfg, logger, telemetry)
	addCloser("monitor", func(context.Context) error {
		stopMonitor()
		return nil
	})

	return svc, nil
}

// seededSource builds the in-process value source and credits the external
// balances listed in RESERVE_SEED_BALANCES.
func seededSource(cfg *Config) (*reserve.Memory, error) {
	seeds, err := cfg.SeedBalances()
	if err != nil {
		return nil, err
	}

	src := reserve.NewMemory(int32(cfg.LedgerDecimals))

	for id, amount := range seeds {
		if err := src.Credit(id, amount); err != nil {
			return nil, fmt.Errorf("seed %s: %w", id, err)
		}
	}

	return src, nil
}

// retryLogger reports a failed connection attempt before the next one.
func retryLogger(ctx context.Context, logger log.Logger, dependency string) func(int, error) {
	return func(attempt int, err error) {
		logger.Log(ctx, log.LevelWarn, "dependency not reachable, retrying",
			log.String("dependency", dependency), log.Int("attempt", attempt), log.Err(err))
	}
}

func openPublisher(ctx context.Context, cfg *Config, logger log.Logger) (events.Publisher, server.CloseFunc, error) {
	var conn *amqp.Connection

	err := backoff.Retry(ctx, cfg.ConnectPolicy(), func(context.Context) error {
		var dialErr error

		conn, dialErr = amqp.Dial(cfg.RabbitMQURI)

		return dialErr
	}, retryLogger(ctx, logger, "rabbitmq"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	exchange := cfg.RabbitMQExchange
	if exchange == "" {
		exchange = events.DefaultExchange
	}

	if err := events.DeclareExchange(ch, exchange); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	publisher, err := events.NewRabbitMQPublisher(ch, events.WithExchange(exchange), events.WithLogger(logger))
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	closeFn := func(context.Context) error {
		_ = publisher.Close()
		return conn.Close()
	}

	return publisher, closeFn, nil
}

// openIdempotencyStore uses Redis when REDIS_ADDRESS is set and an in-process
// store otherwise.
func openIdempotencyStore(ctx context.Context, cfg *Config, logger log.Logger) (idempotency.Store, server.CloseFunc, error) {
	if cfg.RedisAddress == "" {
		logger.Log(ctx, log.LevelWarn, "REDIS_ADDRESS not set, idempotency keys are kept in memory")

		return idempotency.NewMemory(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDB),
	})

	err := backoff.Retry(ctx, cfg.ConnectPolicy(), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, dependencyTimeout)
		defer cancel()

		return client.Ping(pingCtx).Err()
	}, retryLogger(ctx, logger, "redis"))
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	store, err := idempotency.NewRedis(client, idempotency.WithRedisLogger(logger))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return store, func(context.Context) error { return client.Close() }, nil
}

// startMonitor samples host metrics and verifies that the ledger supply is
// fully backed by the reserve on every tick.
func (s *service) startMonitor(ctx context.Context, cfg *Config, logger log.Logger, telemetry *opentelemetry.Telemetry) func() {
	ctx, cancel := context.WithCancel(gated.ContextWithLogger(ctx, logger))
	ctx = gated.ContextWithTracer(ctx, telemetry.Tracer())

	runtime.SafeGoWithContextAndComponent(ctx, logger, "gatewayd", "monitor", runtime.KeepRunning,
		func(ctx context.Context) {
			ticker := time.NewTicker(cfg.SystemMetricsInterval())
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					gated.RecordSystemUsage(ctx, telemetry.MetricsFactory)

					if err := s.adapter.CheckBacking(ctx); err != nil {
						logger.Log(ctx, log.LevelError, "backing check failed", log.Err(err))
					}
				}
			}
		})

	return cancel
}
