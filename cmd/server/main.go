// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal slices.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"credentry/internal/authtoken"
	"credentry/internal/certificate"
	certcache "credentry/internal/certificate/cache"
	certmetrics "credentry/internal/certificate/metrics"
	certservice "credentry/internal/certificate/service"
	certstore "credentry/internal/certificate/store"
	"credentry/internal/content"
	"credentry/internal/events"
	eventshandler "credentry/internal/events/handler"
	"credentry/internal/events/kafka"
	"credentry/internal/events/worker"
	"credentry/internal/institution"
	instmetrics "credentry/internal/institution/metrics"
	instservice "credentry/internal/institution/service"
	inststore "credentry/internal/institution/store"
	"credentry/internal/ledger"
	"credentry/internal/platform/config"
	"credentry/internal/platform/httpserver"
	"credentry/internal/platform/logger"
	"credentry/internal/platform/metrics"
	platformredis "credentry/internal/platform/redis"
	httptransport "credentry/internal/transport/http"
	"credentry/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("credentry exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.JWTSigningKey == "" {
		return errors.New("CREDENTRY_JWT_SIGNING_KEY is required")
	}
	genesisAdmin, err := domain.ParseAddress(cfg.GenesisAdminAddress)
	if err != nil {
		return fmt.Errorf("CREDENTRY_GENESIS_ADMIN is required: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: postgres when configured, in-memory otherwise.
	var (
		db         *sql.DB
		gate       ledger.Gate
		instStore  instservice.Store
		certStore  certservice.Store
		seeder     inststore.Seeder
		eventStore events.Store
		checks     = make(map[string]httptransport.HealthCheck)
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		gate = ledger.NewPostgresGate(db)
		pg := inststore.NewPostgres(db)
		instStore, seeder = pg, pg
		certStore = certstore.NewPostgres(db)
		eventStore = events.NewPostgresStore(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres stores")
	} else {
		gate = ledger.NewMemoryGate()
		mem := inststore.NewInMemory()
		instStore, seeder = mem, mem
		certStore = certstore.NewInMemory()
		eventStore = events.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	// Event pipeline: the primary store is on the mutation path; Kafka is
	// fed through a buffered channel so a slow broker cannot stall
	// mutations.
	sinks := events.MultiSink{eventStore}
	var (
		kafkaSink   *kafka.Sink
		channelSink *events.ChannelSink
		inbox       <-chan events.Event
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err = kafka.New(ctx, cfg.Kafka.Brokers, kafka.WithTopic(cfg.Kafka.Topic))
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		channelSink, inbox = events.NewChannelSink(1024)
		sinks = append(sinks, channelSink)
		log.Info("streaming events to kafka", "topic", cfg.Kafka.Topic)
	}
	publisher := events.NewPublisher(sinks)

	// Redis verification cache.
	var verifyCache certservice.VerifyCache
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		verifyCache = certcache.NewVerifyCache(redisClient, cfg.Redis.VerifyTTL)
		checks["redis"] = redisClient.Health
		log.Info("verification cache enabled", "ttl", cfg.Redis.VerifyTTL)
	}

	// The registry refuses to run without its genesis super admin.
	admin, err := inststore.SeedGenesisAdmin(ctx, seeder, genesisAdmin, cfg.GenesisAdminName)
	if err != nil {
		return fmt.Errorf("seed genesis admin: %w", err)
	}
	log.Info("super admin ready", "address", admin.Address, "name", admin.Name)

	// Services and handlers.
	httpMetrics := metrics.New()
	instSvc := institution.NewService(instStore, gate, publisher,
		instservice.WithLogger(log),
		instservice.WithMetrics(instmetrics.New()),
	)
	certOpts := []certservice.Option{
		certservice.WithLogger(log),
		certservice.WithMetrics(certmetrics.New()),
		certservice.WithContentStore(content.NewInMemory()),
	}
	if verifyCache != nil {
		certOpts = append(certOpts, certservice.WithVerifyCache(verifyCache))
	}
	certSvc := certificate.NewService(certStore, instSvc, gate, publisher, certOpts...)

	tokens := authtoken.NewJWTService(cfg.JWTSigningKey, "credentry", "credentry-api")
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: httpMetrics,
		Handlers: []httptransport.Registrar{
			institution.NewHandler(instSvc, log, tokens),
			certificate.NewHandler(certSvc, log, tokens),
			eventshandler.New(eventStore, log),
		},
		HealthChecks: checks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting credentry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if kafkaSink != nil {
		relay := worker.New(kafkaSink, inbox, log)
		g.Go(func() error {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		publisher.Close()
		if channelSink != nil {
			channelSink.Close()
		}
		return nil
	})

	return g.Wait()
}
