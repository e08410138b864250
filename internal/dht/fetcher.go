package dht

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

const DefaultBeamSize = 100

// Fetcher adapts a Store to the lookups the cache needs. Missing keys and
// unavailable stores come back as absent (ok == false); only malformed data
// is returned as an error.
type Fetcher struct {
	store    Store
	beamSize int
}

func NewFetcher(store Store, beamSize int) (*Fetcher, error) {
	if store == nil {
		return nil, fmt.Errorf("dht store cannot be nil")
	}
	if beamSize <= 0 {
		beamSize = DefaultBeamSize
	}
	return &Fetcher{store: store, beamSize: beamSize}, nil
}

// Fetch performs one lookup with the configured beam size.
func (f *Fetcher) Fetch(ctx context.Context, key string, latest bool) (Entry, bool, error) {
	entry, err := f.store.Get(ctx, key, f.beamSize, latest)
	switch {
	case err == nil:
		return entry, true, nil
	case errors.Is(err, ErrNotFound):
		log.Trace().Str("key", key).Msg("dht key not found")
		return Entry{}, false, nil
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("key", key).Msg("dht lookup failed, treating value as absent")
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("fetch %s: %w", key, err)
	}
}

// Rewards returns the rewards snapshot for (round, stage). An empty snapshot
// is reported as absent.
func (f *Fetcher) Rewards(ctx context.Context, round, stage int) (map[string]float64, bool, error) {
	entry, ok, err := f.Fetch(ctx, RewardsKey(round, stage), true)
	if err != nil || !ok {
		return nil, false, err
	}
	rewards, err := decodeRewards(entry)
	if err != nil {
		return nil, false, err
	}
	if len(rewards) == 0 {
		return nil, false, nil
	}
	return rewards, true, nil
}

// Outputs returns the question -> output mapping a peer published for
// (round, stage). An empty mapping is reported as absent.
func (f *Fetcher) Outputs(ctx context.Context, peerID string, round, stage int) (map[string]StageOutput, bool, error) {
	entry, ok, err := f.Fetch(ctx, OutputsKey(peerID, round, stage), false)
	if err != nil || !ok {
		return nil, false, err
	}
	outputs, err := decodeOutputs(entry)
	if err != nil {
		return nil, false, err
	}
	if len(outputs) == 0 {
		return nil, false, nil
	}
	return outputs, true, nil
}
