package cache

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

func (c *Cache) buildCumulative(ctx context.Context) error {
	pos, rewards, ok, err := c.currentRewards(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Int("round", pos.Round).Int("stage", pos.Stage).Msg("no rewards, leaving cumulative leaderboard untouched")
		return nil
	}

	c.mu.Lock()
	leaders := mergeCumulative(c.cumulative.Leaders, rewards, pos, c.namer.NameFor)
	c.cumulative = CumulativeLeaderboard{Leaders: leaders, Total: len(leaders)}
	c.mu.Unlock()

	c.metrics.setBoardSize("cumulative", len(leaders))
	log.Info().Int("total", len(leaders)).Msg("cumulative leaderboard updated")
	return nil
}

// mergeCumulative folds rewards observed at current into existing. A peer
// seen again at the position it was last recorded at has its score replaced
// rather than added, so repeated polls are idempotent. Entries recorded at
// neither current nor the previous position are dropped.
func mergeCumulative(existing []CumulativeEntry, rewards map[string]float64, current Position, nameFor func(string) string) []CumulativeEntry {
	byID := make(map[string]CumulativeEntry, len(existing)+len(rewards))
	for _, e := range existing {
		byID[e.ID] = e
	}

	for peer, score := range rewards {
		e, seen := byID[peer]
		switch {
		case !seen:
			e = CumulativeEntry{
				ID:              peer,
				Nickname:        nameFor(peer),
				CumulativeScore: score,
			}
		case e.recorded() == current:
			e.CumulativeScore = score
		default:
			e.CumulativeScore += score
		}
		e.LastScore = score
		e.RecordedRound, e.RecordedStage = current.Round, current.Stage
		byID[peer] = e
	}

	previous := PreviousOf(current)
	leaders := make([]CumulativeEntry, 0, len(byID))
	for _, e := range byID {
		if r := e.recorded(); r == current || r == previous {
			leaders = append(leaders, e)
		}
	}

	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].CumulativeScore != leaders[j].CumulativeScore {
			return leaders[i].CumulativeScore > leaders[j].CumulativeScore
		}
		return leaders[i].ID > leaders[j].ID
	})
	return leaders
}
