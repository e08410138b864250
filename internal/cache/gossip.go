package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/swarmwatch/internal/dht"
	"github.com/tensorplex-labs/swarmwatch/internal/gossip"
)

type timedMessage struct {
	ts  float64
	msg GossipMessage
}

// collectGossip scans recent (round, stage, peer) outputs and replaces the
// feed. The scan stops once the gossip budget is spent and keeps what it has.
// If rewards are missing or a fetch fails the previous feed is kept.
func (c *Cache) collectGossip(ctx context.Context) error {
	start := time.Now()
	var collected []timedMessage
	defer func() {
		log.Info().
			Int("messages", len(collected)).
			Dur("elapsed", time.Since(start)).
			Msg("completed gossip collection")
	}()

	pos, rewards, ok, err := c.currentRewards(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn().Int("round", pos.Round).Int("stage", pos.Stage).Msg("missing current rewards, keeping previous gossip")
		return nil
	}

	peers := make([]string, 0, len(rewards))
	for peer := range rewards {
		peers = append(peers, peer)
	}
	sort.Strings(peers)

	budget := c.cfg.GossipBudget
	scanCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	startRound := max(0, pos.Round-c.cfg.GossipLookbackRounds)
scan:
	for round := startRound; round <= pos.Round; round++ {
		for stage := 0; stage < StagesPerRound; stage++ {
			if (Position{Round: round, Stage: stage}).After(pos) {
				break scan
			}
			for _, peer := range peers {
				if time.Since(start) > budget || scanCtx.Err() != nil {
					c.metrics.observeGossipTimeout()
					log.Warn().Dur("budget", budget).Int("messages", len(collected)).Msg("gossip collection timed out")
					break scan
				}

				outputs, ok, err := c.fetcher.Outputs(scanCtx, peer, round, stage)
				if err != nil {
					return fmt.Errorf("fetch outputs for peer %s round %d stage %d: %w", peer, round, stage, err)
				}
				if !ok {
					continue
				}
				collected = append(collected, c.renderOutputs(peer, round, stage, outputs)...)
			}
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		if collected[i].ts != collected[j].ts {
			return collected[i].ts > collected[j].ts
		}
		return collected[i].msg.ID > collected[j].msg.ID
	})
	messages := make([]GossipMessage, 0, len(collected))
	for _, m := range collected {
		messages = append(messages, m.msg)
	}

	c.mu.Lock()
	c.gossip = Gossip{Messages: messages}
	c.mu.Unlock()

	c.metrics.setGossipMessages(len(messages))
	return nil
}

// renderOutputs keeps the most recent outputs of one peer at (round, stage)
// and renders each into a feed message.
func (c *Cache) renderOutputs(peer string, round, stage int, outputs map[string]dht.StageOutput) []timedMessage {
	type questionOutput struct {
		question string
		out      dht.StageOutput
	}
	ordered := make([]questionOutput, 0, len(outputs))
	for q, out := range outputs {
		ordered = append(ordered, questionOutput{question: q, out: out})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].out.Timestamp != ordered[j].out.Timestamp {
			return ordered[i].out.Timestamp < ordered[j].out.Timestamp
		}
		return ordered[i].question < ordered[j].question
	})
	if limit := c.cfg.GossipStageLimit; len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}

	node := c.namer.NameFor(peer)
	msgs := make([]timedMessage, 0, len(ordered))
	for _, o := range ordered {
		msgs = append(msgs, timedMessage{
			ts: o.out.Timestamp,
			msg: GossipMessage{
				ID:      gossip.MessageID(peer, round, stage, o.question),
				Message: c.render(stage, peer, o.question, o.out.Timestamp, o.out.Output),
				Node:    node,
			},
		})
	}
	return msgs
}
