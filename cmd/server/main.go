package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"parrainage/internal/cache"
	cachemetrics "parrainage/internal/cache/metrics"
	cachestore "parrainage/internal/cache/store"
	"parrainage/internal/events"
	eventmetrics "parrainage/internal/events/metrics"
	"parrainage/internal/ledger/store"
	"parrainage/internal/ledger/store/migrations"
	periodmetrics "parrainage/internal/period/metrics"
	periodservice "parrainage/internal/period/service"
	"parrainage/internal/platform/config"
	"parrainage/internal/platform/httpserver"
	"parrainage/internal/platform/kafka"
	"parrainage/internal/platform/logger"
	"parrainage/internal/platform/metrics"
	"parrainage/internal/platform/postgres"
	platformredis "parrainage/internal/platform/redis"
	importmetrics "parrainage/internal/rollimport/metrics"
	importservice "parrainage/internal/rollimport/service"
	"parrainage/internal/scheduler"
	sponsormetrics "parrainage/internal/sponsorship/metrics"
	sponsorservice "parrainage/internal/sponsorship/service"
	statsservice "parrainage/internal/statistics/service"
	httptransport "parrainage/internal/transport/http"
)

// listenRetry is the pause before resubscribing to cache invalidations.
const listenRetry = 2 * time.Second

// main wires the stores, services and background workers, serves HTTP and
// shuts everything down in reverse order on SIGINT/SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Postgres.ApplySchema {
		if err := postgres.ApplyMigrations(ctx, db, migrations.FS, "."); err != nil {
			return err
		}
	}
	ledger := store.NewPostgres(db, store.WithTxTimeout(cfg.Postgres.TxTimeout))

	cacheStore, closeCache, err := openCacheStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	coordinator := cache.New(cacheStore,
		cache.WithLockTTL(cfg.Cache.LockTTL),
		cache.WithWaitDeadline(cfg.Cache.WaitDeadline),
		cache.WithLocalTTL(cfg.Cache.LocalTTL),
		cache.WithChannel(cfg.Cache.Channel),
		cache.WithLogger(log),
		cache.WithMetrics(cachemetrics.New(reg)),
	)

	eventMetrics := eventmetrics.New(reg)
	invalidator := statsservice.NewInvalidator(coordinator)
	bus := events.NewBus(log)
	bus.Subscribe(invalidator)

	periods := periodservice.New(
		store.Bind(ledger, func(l store.Ledger) periodservice.Store { return l }),
		periodservice.WithLogger(log),
		periodservice.WithMetrics(periodmetrics.New(reg)),
		periodservice.WithPublisher(bus),
	)
	sponsorships := sponsorservice.New(
		store.Bind(ledger, func(l store.Ledger) sponsorservice.Store { return l }),
		sponsorservice.WithLogger(log),
		sponsorservice.WithMetrics(sponsormetrics.New(reg)),
		sponsorservice.WithPublisher(bus),
	)
	imports := importservice.New(
		store.Bind(ledger, func(l store.Ledger) importservice.Store { return l }),
		importservice.WithLogger(log),
		importservice.WithMetrics(importmetrics.New(reg)),
		importservice.WithPendingTimeout(cfg.Import.PendingTimeout),
	)
	statistics := statsservice.New(
		store.Bind(ledger, func(l store.Ledger) statsservice.Store { return l }),
		coordinator,
		statsservice.WithTTL(cfg.Cache.StatisticsTTL),
		statsservice.WithLogger(log),
	)

	checks := []httptransport.ReadinessCheck{
		{Name: "postgres", Ping: ledger.Health},
		{Name: "cache", Ping: coordinator.Ping},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listenInvalidations(gctx, coordinator, log) })

	broker, err := kafka.New(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	var sink events.Sink = events.Discard{}
	if broker != nil {
		defer broker.Close()
		sink = broker
		consumer := events.NewConsumer(broker, invalidator, log, eventMetrics)
		g.Go(func() error { return consumer.Run(gctx) })
		checks = append(checks, httptransport.ReadinessCheck{Name: "kafka", Ping: broker.Ping})
		log.Info("kafka event fan-out enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	relay := events.NewRelay(
		store.Bind(ledger, func(l store.Ledger) events.OutboxStore { return l }),
		sink,
		events.WithRelayInterval(cfg.Kafka.RelayInterval),
		events.WithRelayBatch(cfg.Kafka.RelayBatch),
		events.WithRelayLogger(log),
		events.WithRelayMetrics(eventMetrics),
	)
	g.Go(func() error { return relay.Run(gctx) })

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			ExpirySpec:    cfg.Scheduler.ExpirySpec,
			WarmupSpec:    cfg.Scheduler.WarmupSpec,
			RetentionSpec: cfg.Scheduler.RetentionSpec,
			Retention:     cfg.Scheduler.Retention,
			WarmupWorkers: cfg.Scheduler.WarmupWorkers,

			PendingTimeout: cfg.Import.PendingTimeout,
		}, periods, statistics, imports,
			scheduler.WithLogger(log),
			scheduler.WithOutboxPruner(relay),
		)
		if err != nil {
			return err
		}
		sched.Start()
	}

	handler := httptransport.New(httptransport.Services{
		Periods:      periods,
		Sponsorships: sponsorships,
		Imports:      imports,
		Statistics:   statistics,
	},
		httptransport.WithLogger(log),
		httptransport.WithMetrics(metrics.New(reg), reg),
		httptransport.WithReadinessChecks(checks...),
		httptransport.WithMaxUploadBytes(cfg.Import.MaxUploadBytes),
	)
	srv := httpserver.New(cfg.Server, handler.Router())

	g.Go(func() error {
		log.Info("starting parrainage", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if sched != nil {
			if err := sched.Stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		// Relay what the last requests committed before the broker closes.
		if _, err := relay.Drain(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("final outbox drain: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// openCacheStore connects to Redis, or falls back to a process-local store
// when no URL is configured.
func openCacheStore(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (cachestore.Store, func(), error) {
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set; statistics cache is local to this process")
		return cachestore.NewMemory(), func() {}, nil
	}
	return cachestore.NewRedis(client.Client), func() { _ = client.Close() }, nil
}

// listenInvalidations keeps the cross-process invalidation subscription alive.
func listenInvalidations(ctx context.Context, c *cache.Coordinator, log *slog.Logger) error {
	for {
		err := c.Listen(ctx, nil)
		if ctx.Err() != nil {
			return nil
		}
		log.WarnContext(ctx, "cache invalidation subscription lost", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenRetry):
		}
	}
}
