package schedule

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu      sync.Mutex
	pending []*fakeTimer
	delays  []time.Duration
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, f: f}
	c.pending = append(c.pending, t)
	c.delays = append(c.delays, d)
	return t
}

// take removes the oldest pending timer, stopped or not.
func (c *fakeClock) take() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	t := c.pending[0]
	c.pending = c.pending[1:]
	return t
}

// step fires the oldest pending timer unless it was stopped.
func (c *fakeClock) step() bool {
	t := c.take()
	if t == nil {
		return false
	}
	c.mu.Lock()
	if t.stopped {
		c.mu.Unlock()
		return false
	}
	t.fired = true
	c.mu.Unlock()
	t.f()
	return true
}

func TestLoopTicksAndRearms(t *testing.T) {
	clock := &fakeClock{}
	var n int
	l := New(10*time.Millisecond, func() { n++ }, WithClock(clock))

	if l.Armed() {
		t.Fatalf("new loop should be idle")
	}
	l.Arm()
	for i := 0; i < 3; i++ {
		if !clock.step() {
			t.Fatalf("step %d: expected a pending tick", i)
		}
	}
	if n != 3 {
		t.Fatalf("ticks = %d, want 3", n)
	}
	for i, d := range clock.delays {
		if d != 10*time.Millisecond {
			t.Fatalf("delay %d = %v, want 10ms", i, d)
		}
	}
}

func TestLoopArmIsIdempotent(t *testing.T) {
	clock := &fakeClock{}
	l := New(time.Millisecond, func() {}, WithClock(clock))
	l.Arm()
	l.Arm()
	if len(clock.pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(clock.pending))
	}
}

func TestLoopCancelBeforeDelay(t *testing.T) {
	clock := &fakeClock{}
	var n int
	l := New(10*time.Millisecond, func() { n++ }, WithClock(clock))

	l.Arm()
	l.Cancel()

	if clock.step() {
		t.Fatalf("stopped timer must not fire")
	}
	if n != 0 {
		t.Fatalf("tick ran after cancel")
	}
	if l.Armed() {
		t.Fatalf("loop should be idle after cancel")
	}
}

func TestLoopStaleCallbackAfterCancel(t *testing.T) {
	clock := &fakeClock{}
	var n int
	l := New(10*time.Millisecond, func() { n++ }, WithClock(clock))

	l.Arm()
	// The timer fired but its callback has not taken the lock yet.
	stale := clock.take()
	l.Cancel()
	stale.f()

	if n != 0 {
		t.Fatalf("stale tick ran after cancel")
	}
	if len(clock.pending) != 0 {
		t.Fatalf("stale tick must not reschedule")
	}
}

func TestLoopStaleCallbackAfterRearm(t *testing.T) {
	clock := &fakeClock{}
	var n int
	l := New(10*time.Millisecond, func() { n++ }, WithClock(clock))

	l.Arm()
	stale := clock.take()
	l.Cancel()
	l.Arm()
	stale.f()
	if n != 0 {
		t.Fatalf("tick from previous session ran")
	}

	if !clock.step() || n != 1 {
		t.Fatalf("expected current session to tick once, got %d", n)
	}
}

func TestLoopCancelWaitsForInFlightTick(t *testing.T) {
	clock := &fakeClock{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var running atomic.Bool
	l := New(time.Millisecond, func() {
		running.Store(true)
		close(entered)
		<-release
		running.Store(false)
	}, WithClock(clock))

	l.Arm()
	go clock.step()
	<-entered

	cancelled := make(chan struct{})
	go func() {
		l.Cancel()
		close(cancelled)
	}()

	select {
	case <-cancelled:
		t.Fatalf("Cancel returned while a tick was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-cancelled
	if running.Load() {
		t.Fatalf("tick still running after Cancel returned")
	}
	if clock.step() {
		t.Fatalf("tick rescheduled by the in-flight pass must not fire")
	}
}

func TestLoopRealClock(t *testing.T) {
	var n atomic.Int64
	l := New(time.Millisecond, func() { n.Add(1) })

	l.Arm()
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for ticks, got %d", n.Load())
		}
		time.Sleep(time.Millisecond)
	}
	l.Cancel()

	after := n.Load()
	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != after {
		t.Fatalf("ticks continued after cancel: %d -> %d", after, got)
	}
}
