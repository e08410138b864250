package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/swarmwatch/internal/api"
	"github.com/tensorplex-labs/swarmwatch/internal/cache"
	"github.com/tensorplex-labs/swarmwatch/internal/config"
	"github.com/tensorplex-labs/swarmwatch/internal/coordinator"
	"github.com/tensorplex-labs/swarmwatch/internal/dht"
	"github.com/tensorplex-labs/swarmwatch/internal/names"
	"github.com/tensorplex-labs/swarmwatch/internal/scheduler"
	"github.com/tensorplex-labs/swarmwatch/internal/utils/logger"
	"github.com/tensorplex-labs/swarmwatch/internal/utils/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger.Init()
	log.Info().Msg("Starting swarmwatch...")

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env not loaded; continuing with existing environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load environment configuration")
	}

	store, closeStore := newStore(cfg)
	defer closeStore()

	fetcher, err := dht.NewFetcher(store, cfg.DHTBeamSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init dht fetcher")
	}

	coord, err := coordinator.NewClient(&cfg.CoordinatorEnvConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init coordinator client")
	}

	namer, err := names.NewNamer(cfg.NameCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init name cache")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := cache.New(coord, fetcher, namer,
		cache.WithConfig(cfg.CacheEnvConfig),
		cache.WithMetrics(cache.NewMetrics(reg)),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init cache")
	}
	c.Reset()

	sched, err := scheduler.New(cfg.Intervals().PollInterval, c.Poll)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init scheduler")
	}

	server, err := api.NewServer(&cfg.ServerEnvConfig, c, reg, cfg.HealthMaxStaleness)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init api server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping swarmwatch")
	case err := <-serverErr:
		log.Error().Err(err).Msg("api server exited")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down api server")
	}
	stop()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop scheduler")
	}
	log.Info().Msg("swarmwatch stopped")
}

// newStore builds the DHT backend selected by DHT_BACKEND.
func newStore(cfg *config.AppConfig) (dht.Store, func()) {
	switch strings.ToLower(cfg.DHTBackend) {
	case "redis":
		r, err := redis.NewRedis(&cfg.RedisEnvConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis client")
		}
		s, err := dht.NewRedisStore(r, cfg.DHTKeyPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis dht store")
		}
		return s, r.Close
	case "gateway", "":
		g, err := dht.NewGateway(&cfg.DHTEnvConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init dht gateway")
		}
		return g, g.Close
	default:
		log.Fatal().Str("backend", cfg.DHTBackend).Msg("unknown dht backend")
		return nil, func() {}
	}
}
