package cache

import (
	"context"

	"github.com/rs/zerolog/log"
)

// refreshPosition asks the coordinator for the current position. A failed
// lookup keeps the last known position.
func (c *Cache) refreshPosition(ctx context.Context) error {
	round, stage, err := c.coordinator.RoundAndStage(ctx)
	if err != nil {
		c.metrics.observeUpstreamFailure("coordinator")
		log.Warn().Err(err).Msg("could not get current round and stage, keeping previous position")
		return nil
	}

	c.mu.Lock()
	c.position = Position{Round: round, Stage: stage}
	c.mu.Unlock()

	c.metrics.setPosition(round, stage)
	log.Info().Int("round", round).Int("stage", stage).Msg("cache polled round and stage")
	return nil
}
