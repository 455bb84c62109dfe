package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically removes expired revocations.
type Sweeper struct {
	guard    *Guard
	interval time.Duration
	logger   *slog.Logger
	onSweep  func(removed int64)

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// StartSweeper runs Sweep every interval until Close. A non-positive interval
// returns nil; Close on a nil Sweeper is a no-op.
func StartSweeper(g *Guard, interval time.Duration, logger *slog.Logger, onSweep func(int64)) *Sweeper {
	if g == nil || interval <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		guard:    g,
		interval: interval,
		logger:   logger,
		onSweep:  onSweep,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	removed, err := s.guard.Sweep(ctx)
	if err != nil {
		s.logger.Warn("guard: revocation sweep failed", slog.Any("error", err))
		return
	}
	if removed > 0 {
		s.logger.Debug("guard: revocations swept", slog.Int64("removed", removed))
	}
	if s.onSweep != nil {
		s.onSweep(removed)
	}
}

// Close stops the sweeper and waits for the running sweep to finish.
func (s *Sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
