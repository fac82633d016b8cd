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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pharmachain/internal/batch/handler"
	batchmetrics "pharmachain/internal/batch/metrics"
	"pharmachain/internal/batch/service"
	"pharmachain/internal/batch/store"
	"pharmachain/internal/eventlog"
	"pharmachain/internal/identity"
	"pharmachain/internal/platform/config"
	"pharmachain/internal/platform/httpserver"
	"pharmachain/internal/platform/kafka"
	"pharmachain/internal/platform/logger"
	platformmetrics "pharmachain/internal/platform/metrics"
	"pharmachain/internal/platform/postgres"
	"pharmachain/internal/platform/redis"
	"pharmachain/internal/platform/sqlite"
	"pharmachain/internal/platform/tracing"
	"pharmachain/pkg/platform/circuit"
	"pharmachain/pkg/platform/httputil"
)

func newServeCmd(c *cli) *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the event relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c.cfg, autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false,
		"apply pending PostgreSQL migrations before serving")
	return cmd
}

// app holds everything serve wires together. closers run in reverse order
// on shutdown.
type app struct {
	log         *slog.Logger
	registry    *service.Registry
	relay       *eventlog.Relay
	reg         *prometheus.Registry
	httpMetrics *platformmetrics.Metrics
	closers     []func() error
	checks      map[string]func(context.Context) error
}

// health pings every backing dependency. It answers 503 with the failing
// names when any check fails.
func (a *app) health(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for name, check := range a.checks {
		if err := check(r.Context()); err != nil {
			a.log.WarnContext(r.Context(), "health check failed", "dependency", name, "error", err)
			failed[name] = "unavailable"
		}
	}
	if len(failed) > 0 {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to release resource", "error", err)
		}
	}
}

func serve(ctx context.Context, cfg config.Config, autoMigrate bool) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	a, err := wire(ctx, cfg, log, autoMigrate)
	if err != nil {
		return err
	}
	defer a.close()

	jwt := identity.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	batchHandler := handler.New(a.registry, jwt, log, a.httpMetrics, cfg.Server.RequestTimeout)

	router := chi.NewRouter()
	router.Get("/healthz", a.health)
	router.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
	batchHandler.Register(router)

	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pharmachain",
			"addr", cfg.Server.Addr,
			"store", cfg.Store.Backend,
			"sink", cfg.Events.Sink,
			"version", version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// wire builds the store, event path, and registry for cfg. With a durable
// store the registry appends to the store's outbox inside its transaction
// and the relay forwards committed events to the configured sink. The
// in-memory store appends straight to an in-process sink, and through a
// MemoryOutbox and the relay to a broker sink.
func wire(ctx context.Context, cfg config.Config, log *slog.Logger, autoMigrate bool) (*app, error) {
	a := &app{log: log, reg: prometheus.NewRegistry(), checks: map[string]func(context.Context) error{}}
	a.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	batchMetrics := batchmetrics.New(a.reg)
	a.httpMetrics = platformmetrics.New(a.reg)

	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	tp, err := tracing.NewProvider(ctx, cfg.Tracing, os.Stdout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })

	delivery, err := a.deliverySink(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	delivery = eventlog.Instrument(cfg.Events.Sink, delivery, batchMetrics)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(batchMetrics),
		service.WithTracer(tp.Tracer()),
		service.WithTxTimeout(cfg.Store.TxTimeout),
		service.WithTerminalCache(cfg.Cache.TerminalTTL, cfg.Cache.CleanupInterval),
	}
	relayOpts := []eventlog.RelayOption{
		eventlog.WithRelayInterval(cfg.Events.RelayInterval),
		eventlog.WithRelayBatchSize(cfg.Events.RelayBatchSize),
		eventlog.WithRelayLogger(log),
		eventlog.WithRelayMetrics(batchMetrics),
		eventlog.WithRelayBreaker(circuit.New(cfg.Events.Sink)),
	}

	switch cfg.Store.Backend {
	case config.StorePostgres:
		if autoMigrate {
			if err := postgres.Migrate(cfg.Store.PostgresDSN); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, cfg.Store.PostgresDSN, cfg.Store.PostgresMaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		a.checks["postgres"] = pool.Ping

		outbox := eventlog.NewPostgresOutbox(pool)
		opts = append(opts, service.WithTx(newBatchPostgresTx(pool, cfg.Store.TxTimeout)))
		a.registry = service.New(store.NewPostgres(pool), outbox, opts...)
		a.relay = eventlog.NewRelay(outbox, delivery, relayOpts...)

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["sqlite"] = db.PingContext

		journal := eventlog.NewSQLiteJournal(db)
		opts = append(opts, service.WithTx(newBatchSQLiteTx(db, cfg.Store.TxTimeout)))
		a.registry = service.New(store.NewSQLite(db), journal, opts...)
		a.relay = eventlog.NewRelay(journal, delivery, relayOpts...)

	default:
		if !brokerSink(cfg.Events.Sink) {
			a.registry = service.New(store.NewInMemory(), delivery, opts...)
			break
		}
		outbox := eventlog.NewMemoryOutbox()
		a.registry = service.New(store.NewInMemory(), outbox, opts...)
		a.relay = eventlog.NewRelay(outbox, delivery, relayOpts...)
	}

	ok = true
	return a, nil
}

// brokerSink reports whether sink appends over the network.
func brokerSink(sink string) bool {
	return sink == config.SinkRedis || sink == config.SinkKafka
}

func (a *app) deliverySink(ctx context.Context, cfg config.Config, log *slog.Logger) (eventlog.Sink, error) {
	switch cfg.Events.Sink {
	case config.SinkRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.checks["redis"] = client.Health
		return eventlog.NewRedisStream(client, cfg.Redis.Stream, cfg.Redis.StreamMaxLen), nil

	case config.SinkKafka:
		client, err := kafka.NewClient(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		a.checks["kafka"] = client.Ping
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka); err != nil {
			return nil, err
		}
		return eventlog.NewKafkaPublisher(client, cfg.Kafka.Topic), nil

	case config.SinkMemory:
		return eventlog.NewRecorder(), nil

	default:
		return eventlog.NewLogSink(log.With("log_type", "event")), nil
	}
}

