// Package api serves the cached views over HTTP.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/swarmwatch/internal/cache"
	"github.com/tensorplex-labs/swarmwatch/internal/config"
)

const DefaultBodyLimit = 1024 * 1024

// Reader is the read side of *cache.Cache.
type Reader interface {
	RoundAndStage() (int, int)
	Leaderboard() cache.Leaderboard
	CumulativeLeaderboard() cache.CumulativeLeaderboard
	Gossip() cache.Gossip
	LastPolled() (time.Time, bool)
}

type Server struct {
	App          *fiber.App
	config       *config.ServerEnvConfig
	reader       Reader
	maxStaleness time.Duration
	now          func() time.Time
}

// NewServer builds the API. gatherer may be nil, in which case /metrics is
// not registered.
func NewServer(cfg *config.ServerEnvConfig, reader Reader, gatherer prometheus.Gatherer, maxStaleness time.Duration) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server configuration cannot be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("cache reader cannot be nil")
	}
	if cfg.BodySizeLimit <= 0 {
		cfg.BodySizeLimit = DefaultBodyLimit
	}

	log.Info().
		Str("host", cfg.Address).
		Int("port", cfg.Port).
		Int("body_limit", cfg.BodySizeLimit).
		Msg("server configuration loaded")

	app := fiber.New(fiber.Config{
		Prefork:               false,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrHandler,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		BodyLimit:             cfg.BodySizeLimit,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	s := &Server{
		App:          app,
		config:       cfg,
		reader:       reader,
		maxStaleness: maxStaleness,
		now:          time.Now,
	}
	s.routes(gatherer)
	return s, nil
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	api := s.App.Group("/api")
	api.Get("/healthz", s.healthz)
	api.Get("/round_and_stage", s.roundAndStage)
	api.Get("/leaderboard", s.leaderboard)
	api.Get("/leaderboard-cumulative", s.leaderboardCumulative)
	api.Get("/gossip", s.gossip)

	if gatherer != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	log.Info().Str("addr", addr).Msg("api server listening")
	if err := s.App.Listen(addr); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.App.ShutdownWithContext(ctx)
}
