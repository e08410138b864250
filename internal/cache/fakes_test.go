package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tensorplex-labs/swarmwatch/internal/dht"
)

type fakeCoordinator struct {
	mu  sync.Mutex
	pos Position
	err error
}

func (f *fakeCoordinator) RoundAndStage(context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.pos.Round, f.pos.Stage, nil
}

func (f *fakeCoordinator) set(round, stage int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = Position{Round: round, Stage: stage}
	f.err = nil
}

func (f *fakeCoordinator) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeFetcher struct {
	mu         sync.Mutex
	rewards    map[Position]map[string]float64
	outputs    map[string]map[string]dht.StageOutput
	rewardsErr error
	outputsErr error
	delay      time.Duration
	calls      []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		rewards: map[Position]map[string]float64{},
		outputs: map[string]map[string]dht.StageOutput{},
	}
}

func (f *fakeFetcher) setRewards(round, stage int, rewards map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewards[Position{Round: round, Stage: stage}] = rewards
}

func (f *fakeFetcher) setOutputs(peer string, round, stage int, outputs map[string]dht.StageOutput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[dht.OutputsKey(peer, round, stage)] = outputs
}

func (f *fakeFetcher) Rewards(_ context.Context, round, stage int) (map[string]float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rewardsErr != nil {
		return nil, false, f.rewardsErr
	}
	r, ok := f.rewards[Position{Round: round, Stage: stage}]
	if !ok || len(r) == 0 {
		return nil, false, nil
	}
	out := make(map[string]float64, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out, true, nil
}

func (f *fakeFetcher) Outputs(ctx context.Context, peer string, round, stage int) (map[string]dht.StageOutput, bool, error) {
	key := dht.OutputsKey(peer, round, stage)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	delay, err := f.delay, f.outputsErr
	out, ok := f.outputs[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (f *fakeFetcher) outputCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeNamer struct{}

func (fakeNamer) NameFor(peerID string) string { return "nick-" + peerID }

var errCoordinatorDown = errors.New("coordinator down")

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
