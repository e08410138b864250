package cache

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

type peerScore struct {
	id    string
	score float64
}

func (c *Cache) buildLeaderboard(ctx context.Context) error {
	_, rewards, _, err := c.currentRewards(ctx)
	if err != nil {
		return err
	}

	ranked := rankRewards(rewards)
	leaders := make([]LeaderboardEntry, 0, len(ranked))
	for _, p := range ranked {
		leaders = append(leaders, LeaderboardEntry{
			ID:       p.id,
			Nickname: c.namer.NameFor(p.id),
			Score:    p.score,
			Values:   []HistoryPoint{},
		})
	}

	sampledAt := c.now().Unix()
	histories := make([]PeerHistory, 0, len(leaders))

	c.mu.Lock()
	for _, e := range leaders {
		next := appendHistory(c.history[e.ID], HistoryPoint{X: sampledAt, Y: e.Score}, c.cfg.HistoryLimit)
		c.history[e.ID] = next
		histories = append(histories, PeerHistory{ID: e.ID, Nickname: e.Nickname, Values: clonePoints(next)})
		log.Debug().Str("peer", e.ID).Int("points", len(next)).Msg("appended reward history")
	}
	c.leaderboard = Leaderboard{Leaders: leaders, Total: len(leaders), RewardsHistory: histories}
	c.mu.Unlock()

	c.metrics.setBoardSize("instant", len(leaders))
	log.Info().Int("total", len(leaders)).Msg("leaderboard updated")
	return nil
}

// rankRewards orders peers by score, then id, both descending.
func rankRewards(rewards map[string]float64) []peerScore {
	ranked := make([]peerScore, 0, len(rewards))
	for id, score := range rewards {
		ranked = append(ranked, peerScore{id: id, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id > ranked[j].id
	})
	return ranked
}

// appendHistory returns a new slice holding past plus point, keeping at most
// the limit most recent points. past is never modified.
func appendHistory(past []HistoryPoint, point HistoryPoint, limit int) []HistoryPoint {
	keep := past
	if len(keep) >= limit {
		keep = keep[len(keep)-limit+1:]
	}
	next := make([]HistoryPoint, 0, len(keep)+1)
	next = append(next, keep...)
	return append(next, point)
}
