package cache

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
)

type step struct {
	name string
	run  func(context.Context) error
}

func (c *Cache) steps() []step {
	return []step{
		{name: "round_and_stage", run: c.refreshPosition},
		{name: "leaderboard_cumulative", run: c.buildCumulative},
		{name: "leaderboard", run: c.buildLeaderboard},
		{name: "gossip", run: c.collectGossip},
	}
}

// Poll runs one refresh cycle. Steps run in order and a failing step does
// not stop the ones after it. Poll must not be called concurrently with
// itself.
func (c *Cache) Poll(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.metrics.observeStepFailure("poll")
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("cache failed to poll dht")
		}
	}()

	failed := 0
	for _, s := range c.steps() {
		if err := c.runStep(ctx, s); err != nil {
			failed++
			c.metrics.observeStepFailure(s.name)
			log.Error().Err(err).Str("step", s.name).Msg("cache poll step failed")
		}
	}

	polledAt := c.now()
	c.mu.Lock()
	c.lastPolled = polledAt
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.metrics.observePoll(elapsed, polledAt)
	log.Info().Dur("elapsed", elapsed).Int("failed_steps", failed).Msg("cache poll completed")
}

func (c *Cache) runStep(ctx context.Context, s step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", s.name, r)
		}
	}()
	return s.run(ctx)
}
