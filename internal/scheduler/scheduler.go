// Package scheduler runs a job on a fixed interval without overlapping runs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context)

type Scheduler struct {
	name     string
	interval time.Duration
	job      Job

	running atomic.Bool
	skipped atomic.Int64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(interval time.Duration, job Job) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}
	if job == nil {
		return nil, fmt.Errorf("scheduler job cannot be nil")
	}
	return &Scheduler{
		name:     InferNameFromFunc(job),
		interval: interval,
		job:      job,
	}, nil
}

// Start runs the job once immediately and then on every tick until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	log.Info().Str("job", s.name).Dur("interval", s.interval).Msg("starting scheduler")
	s.wg.Add(1)
	go s.runTicker(ctx)
}

func (s *Scheduler) runTicker(ctx context.Context) {
	defer s.wg.Done()
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts the job unless the previous run is still in flight.
func (s *Scheduler) trigger(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		log.Warn().Str("job", s.name).Msg("previous run still in progress, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.job(ctx)
	}()
}

// Skipped is the number of ticks dropped because a run was in progress.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Stop cancels the ticker and waits for an in-flight run until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Str("job", s.name).Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s to finish: %w", s.name, ctx.Err())
	}
}
