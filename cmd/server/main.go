package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pairsync/sync-server/internal/catalog"
	"github.com/pairsync/sync-server/internal/config"
	"github.com/pairsync/sync-server/internal/database"
	"github.com/pairsync/sync-server/internal/handler"
	"github.com/pairsync/sync-server/internal/jobs"
	"github.com/pairsync/sync-server/internal/redis"
	"github.com/pairsync/sync-server/internal/repository"
	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/sse"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	healthChecks := map[string]handler.Check{
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}

	var ledger repository.LedgerRepository = repository.NopLedger{}
	if cfg.LedgerEnabled() {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		cancel()
		log.Info().Msg("database connected")

		ledger = repository.NewLedgerRepository(db.DB)
		healthChecks["database"] = func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
			defer cancel()
			return db.Ping(ctx)
		}

		cleanupJob := jobs.NewCleanupJob(ledger, cfg.LedgerRetention(), config.CleanupJobInterval)
		cleanupJob.Start()
		defer cleanupJob.Stop()
	} else {
		log.Info().Msg("DATABASE_URL not set, pair ledger disabled")
	}

	cat, err := catalog.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load catalog")
	}

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	ttls := cfg.TTLs()

	rateLimiter := service.NewRateLimiter(redisClient)
	stateService := service.NewStateService(redisClient, broker, ttls.State)
	guard := service.NewIdempotencyGuard(redisClient, ttls.Idempotency)
	energyService := service.NewEnergyService(redisClient)
	missionService := service.NewMissionService(redisClient, stateService, guard, cat, ttls.Missions)
	scoreService := service.NewScoreService(redisClient, stateService, energyService, ttls.Scores)

	r := handler.NewRouter(handler.RouterConfig{
		Services: handler.Services{
			RateLimiter: rateLimiter,
			Pairing:     service.NewPairingService(redisClient, rateLimiter, ledger, broker, ttls),
			Blocklist:   service.NewBlocklistService(redisClient, ledger, broker, ttls.Blocklist),
			State:       stateService,
			Missions:    missionService,
			Reactions: service.NewReactionService(
				redisClient, stateService, guard, scoreService, energyService,
				ttls.Reaction, ttls.State, ttls.Glow,
			),
			Challenges: service.NewChallengeService(redisClient, stateService, guard, missionService, energyService, ttls.Challenge),
			Scores:     scoreService,
			Garden:     service.NewGardenService(redisClient, stateService, energyService, ttls.State),
			Status:     service.NewStatusService(stateService, energyService, cat),
		},
		Broker:       broker,
		HealthChecks: healthChecks,
		IsProduction: isProduction,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Int("sseClients", broker.TotalClients()).Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
