package judo

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewSchedulerValidation(t *testing.T) {
	s := &Session{}
	scanner := &Scanner{}

	if _, err := NewScheduler(nil, scanner, time.Second, nil); err == nil {
		t.Error("NewScheduler() without session expected error")
	}
	if _, err := NewScheduler(s, nil, time.Second, nil); err == nil {
		t.Error("NewScheduler() without scanner expected error")
	}
	if _, err := NewScheduler(s, scanner, 0, nil); err == nil {
		t.Error("NewScheduler() with zero interval expected error")
	}
}

func TestSchedulerDrivesCycles(t *testing.T) {
	f := newFakeAppliance(fakeDevice{serial: "711001", model: "i-soft plus"})
	defer f.Close()

	f.addEvent("711001", "1700000100, 61")

	s := newTestSession(t, f)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	var mu sync.Mutex
	var published int
	scanner, err := NewScanner(ScannerConfig{
		Session: s,
		Handler: func(*Device, Event, string) {
			mu.Lock()
			published++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	sched, err := NewScheduler(s, scanner, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	sched.Start(context.Background())
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := published >= 1
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler never completed a cycle")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSchedulerRetriesLogin(t *testing.T) {
	f := newFakeAppliance(fakeDevice{serial: "711001", model: "i-soft plus"})
	defer f.Close()

	f.addEvent("711001", "1700000100, 61")

	// No explicit login: the first tick must log in itself.
	s := newTestSession(t, f)

	var mu sync.Mutex
	var published int
	scanner, err := NewScanner(ScannerConfig{
		Session: s,
		Handler: func(*Device, Event, string) {
			mu.Lock()
			published++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	sched, err := NewScheduler(s, scanner, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	sched.Start(context.Background())
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := published >= 1
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduler never recovered the login")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if f.logins() == 0 {
		t.Error("scheduler completed a cycle without logging in")
	}
}

func TestSchedulerSkipsTicksWhileCycleInFlight(t *testing.T) {
	f := newFakeAppliance(fakeDevice{serial: "711001", model: "i-soft plus"})
	defer f.Close()

	f.addEvent("711001", "1700000100, 61")

	s := newTestSession(t, f)
	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	scanner, err := NewScanner(ScannerConfig{
		Session: s,
		Handler: func(*Device, Event, string) {},
	})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	// Ticks fire every 10ms but each appliance request takes 100ms, so a
	// cycle always outlives several ticks. Those ticks must be skipped,
	// never queued, and cycles must never overlap.
	f.setRequestDelay(100 * time.Millisecond)

	sched, err := NewScheduler(s, scanner, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	sched.Start(context.Background())
	time.Sleep(300 * time.Millisecond)
	sched.Stop()

	if got := f.maxConcurrent(); got != 1 {
		t.Errorf("max concurrent appliance requests = %d, want 1 (cycles must not overlap)", got)
	}

	// ~30 ticks elapsed; with 100ms responses a serialized loop can
	// complete only a handful of cycles. Anything near the tick count
	// means skipped ticks were queued instead of dropped.
	if got := f.requestCount("state/event list"); got > 10 {
		t.Errorf("event list requested %d times, want skipped ticks dropped, not queued", got)
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	f := newFakeAppliance()
	defer f.Close()

	s := newTestSession(t, f)
	scanner, err := NewScanner(ScannerConfig{
		Session: s,
		Handler: func(*Device, Event, string) {},
	})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	sched, err := NewScheduler(s, scanner, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	sched.Start(context.Background())
	sched.Stop()
	sched.Stop()
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	f := newFakeAppliance()
	defer f.Close()

	s := newTestSession(t, f)
	scanner, err := NewScanner(ScannerConfig{
		Session: s,
		Handler: func(*Device, Event, string) {},
	})
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}

	sched, err := NewScheduler(s, scanner, time.Hour, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	cancel()

	// Stop must return promptly once the context tore the loop down.
	doneCh := make(chan struct{})
	go func() {
		sched.Stop()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked after context cancellation")
	}
}
