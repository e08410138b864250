// Package cache keeps pre-computed views of the training run's DHT state:
// the current round and stage, the instant and cumulative leaderboards with
// per-peer score history, and a recent gossip feed. A single poller refreshes
// the views; any number of readers take copies concurrently.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tensorplex-labs/swarmwatch/internal/config"
	"github.com/tensorplex-labs/swarmwatch/internal/coordinator"
	"github.com/tensorplex-labs/swarmwatch/internal/dht"
	"github.com/tensorplex-labs/swarmwatch/internal/gossip"
)

// Fetcher is the subset of *dht.Fetcher the cache reads through.
type Fetcher interface {
	Rewards(ctx context.Context, round, stage int) (map[string]float64, bool, error)
	Outputs(ctx context.Context, peerID string, round, stage int) (map[string]dht.StageOutput, bool, error)
}

// Namer resolves a peer id to its display nickname.
type Namer interface {
	NameFor(peerID string) string
}

// Renderer turns one stage output into a feed message.
type Renderer func(stage int, peerID, question string, timestamp float64, output map[string]any) string

type Option func(*Cache)

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides the clock used for history samples and lastPolled.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithRenderer(r Renderer) Option {
	return func(c *Cache) { c.render = r }
}

func WithConfig(cfg config.CacheEnvConfig) Option {
	return func(c *Cache) { c.cfg = cfg }
}

type Cache struct {
	coordinator coordinator.Coordinator
	fetcher     Fetcher
	namer       Namer
	render      Renderer
	metrics     *Metrics
	cfg         config.CacheEnvConfig
	now         func() time.Time

	mu          sync.RWMutex
	position    Position
	cumulative  CumulativeLeaderboard
	leaderboard Leaderboard
	history     map[string][]HistoryPoint
	gossip      Gossip
	lastPolled  time.Time
}

func New(coord coordinator.Coordinator, fetcher Fetcher, namer Namer, opts ...Option) (*Cache, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator cannot be nil")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher cannot be nil")
	}
	if namer == nil {
		return nil, fmt.Errorf("namer cannot be nil")
	}

	c := &Cache{
		coordinator: coord,
		fetcher:     fetcher,
		namer:       namer,
		render:      gossip.Render,
		cfg:         config.DefaultCacheConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.applyConfigDefaults()
	c.Reset()
	return c, nil
}

func (c *Cache) applyConfigDefaults() {
	defaults := config.DefaultCacheConfig()
	if c.cfg.GossipBudget <= 0 {
		c.cfg.GossipBudget = defaults.GossipBudget
	}
	if c.cfg.GossipLookbackRounds < 0 {
		c.cfg.GossipLookbackRounds = defaults.GossipLookbackRounds
	}
	if c.cfg.GossipStageLimit <= 0 {
		c.cfg.GossipStageLimit = defaults.GossipStageLimit
	}
	if c.cfg.HistoryLimit <= 0 {
		c.cfg.HistoryLimit = defaults.HistoryLimit
	}
}

// Reset clears every view and forgets the position.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.position = UnknownPosition
	c.cumulative = emptyCumulative()
	c.leaderboard = emptyLeaderboard()
	c.history = make(map[string][]HistoryPoint)
	c.gossip = emptyGossip()
	c.lastPolled = time.Time{}
}

func (c *Cache) Position() Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *Cache) RoundAndStage() (int, int) {
	p := c.Position()
	return p.Round, p.Stage
}

func (c *Cache) Leaderboard() Leaderboard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leaderboard.clone()
}

func (c *Cache) CumulativeLeaderboard() CumulativeLeaderboard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cumulative.clone()
}

func (c *Cache) Gossip() Gossip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gossip.clone()
}

// LastPolled returns when the last poll cycle completed; ok is false if no
// cycle has completed since the last Reset.
func (c *Cache) LastPolled() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPolled, !c.lastPolled.IsZero()
}

// currentRewards fetches the rewards snapshot for the tracked position.
func (c *Cache) currentRewards(ctx context.Context) (Position, map[string]float64, bool, error) {
	pos := c.Position()
	if !pos.Known() {
		return pos, nil, false, nil
	}
	rewards, ok, err := c.fetcher.Rewards(ctx, pos.Round, pos.Stage)
	if err != nil {
		return pos, nil, false, fmt.Errorf("fetch rewards for round %d stage %d: %w", pos.Round, pos.Stage, err)
	}
	return pos, rewards, ok, nil
}
