package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
	"github.com/enterprise/fraud-dashboard/internal/aggregation"
	"github.com/enterprise/fraud-dashboard/internal/alerts"
	"github.com/enterprise/fraud-dashboard/internal/api"
	"github.com/enterprise/fraud-dashboard/internal/auth"
	"github.com/enterprise/fraud-dashboard/internal/queue"
	"github.com/enterprise/fraud-dashboard/internal/report"
	"github.com/enterprise/fraud-dashboard/internal/repositories"
	"github.com/enterprise/fraud-dashboard/internal/snapshot"
	"github.com/enterprise/fraud-dashboard/internal/summary"
	"github.com/enterprise/fraud-dashboard/internal/upstream"
)

func main() {
	hashOnly := flag.Bool("hash-password", false, "read a password from stdin, print its bcrypt hash and exit")
	flag.Parse()

	if *hashOnly {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// Load .env file if exists
	_ = godotenv.Load()

	cfg := configs.Load()
	setupLogging(cfg.Server.Environment)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("snapshot_source", cfg.Snapshot.Source).
		Str("alert_transport", cfg.Stream.Transport).
		Msg("Starting Fraud Dashboard")

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	mode, err := aggregation.ParseMode(cfg.Aggregation.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid aggregation mode")
	}
	engine := aggregation.NewEngine(aggregation.WithMode(mode))
	log.Info().Str("mode", string(engine.Mode())).Msg("Aggregation engine ready")

	upstreamClient := upstream.NewClient(cfg.Upstream)
	checks := map[string]api.HealthCheck{}

	// Snapshot source
	var source snapshot.Source
	switch cfg.Snapshot.Source {
	case "postgres":
		db, err := repositories.NewDatabase(baseCtx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		source = repositories.NewCaseRepository(db)
		checks["postgres"] = db.HealthCheck
	case "http", "":
		source = upstreamClient
	default:
		log.Fatal().Str("source", cfg.Snapshot.Source).Msg("Unknown snapshot source")
	}

	// Alert channel
	channel, err := newAlertChannel(cfg, checks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect alert channel")
	}
	defer channel.Close()

	// Subscribe before loading the snapshot so no live alert is missed
	alertClient := alerts.NewClient(channel, engine, cfg.Stream)
	if err := alertClient.Start(baseCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to fraud alerts")
	}

	loader := snapshot.NewLoader(source, engine, cfg.Snapshot.Source)
	if err := loader.Load(baseCtx); err != nil {
		log.Warn().Msg("Starting with an empty case list")
	}

	deps := api.Dependencies{
		Views:     engine,
		Summaries: summary.NewRequester(upstreamClient),
		Reports:   report.NewExporter(upstreamClient),
		Alerts:    alertClient,
		Checks:    checks,
	}
	if cfg.Auth.Enabled() {
		deps.JWT = auth.NewJWTManager(cfg.Auth.Secret, cfg.Auth.Expiration)
		deps.Auth = auth.NewOperatorAuthenticator(cfg.Auth, deps.JWT)
	} else {
		log.Warn().Msg("OPERATOR_PASSWORD_HASH not set, operator API is unauthenticated")
	}

	var limiter *api.RateLimiter
	stopLimiter := make(chan struct{})
	if cfg.Server.RateLimit > 0 {
		limiter = api.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Run(stopLimiter)
	}

	router := api.NewRouter(cfg.Server, deps, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	if err := alertClient.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop alert client")
	}
	close(stopLimiter)

	// ends open event streams
	cancelBase()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func newAlertChannel(cfg *configs.Config, checks map[string]api.HealthCheck) (queue.Channel, error) {
	switch cfg.Stream.Transport {
	case "redis", "":
		channel, err := queue.NewRedisStreamChannel(cfg.Redis)
		if err != nil {
			return nil, err
		}
		checks["redis"] = channel.HealthCheck
		return channel, nil
	case "kafka":
		return queue.NewKafkaChannel(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown alert transport %q", cfg.Stream.Transport)
	}
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
