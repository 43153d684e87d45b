package judo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler drives the scan cycle on a fixed interval.
//
// The appliance serializes everything behind one session, so at most
// one cycle may be in flight: a tick that lands while the previous
// cycle is still running is skipped, not queued. Skipping keeps a slow
// appliance from building an unbounded backlog.
//
// Before the first successful login a tick attempts the login itself,
// so a device that was offline at startup is picked up automatically.
type Scheduler struct {
	session  *Session
	scanner  *Scanner
	interval time.Duration

	// busy guards against overlapping cycles.
	busy atomic.Bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewScheduler creates a scheduler.
//
// Returns:
//   - *Scheduler: Ready scheduler; call Start to begin ticking
//   - error: If session or scanner is missing or interval is not positive
func NewScheduler(session *Session, scanner *Scanner, interval time.Duration, logger Logger) (*Scheduler, error) {
	if session == nil {
		return nil, fmt.Errorf("judo: scheduler requires a session")
	}
	if scanner == nil {
		return nil, fmt.Errorf("judo: scheduler requires a scanner")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("judo: scheduler interval must be positive, got %s", interval)
	}

	return &Scheduler{
		session:  session,
		scanner:  scanner,
		interval: interval,
		done:     make(chan struct{}),
		logger:   logger,
	}, nil
}

// Start launches the tick loop in a background goroutine.
// The loop runs until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()

	s.logInfo("scheduler started", "interval", s.interval.String())
}

// Stop terminates the tick loop and waits for an in-flight cycle to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// tick runs one cycle unless one is already in flight.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		s.logDebug("cycle still in flight, skipping tick")
		return
	}
	defer s.busy.Store(false)

	if s.session.Registry().Len() == 0 {
		// No devices yet: the startup login failed or never ran.
		// Retry it here so the bridge recovers without a restart.
		if err := s.session.Login(ctx); err != nil {
			s.logWarn("login retry failed", "error", err)
			return
		}
		if s.session.Registry().Len() == 0 {
			s.logWarn("logged in but no devices reported, skipping cycle")
			return
		}
	}

	s.scanner.Scan(ctx)
}

func (s *Scheduler) logDebug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
