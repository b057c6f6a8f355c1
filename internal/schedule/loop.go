// Package schedule runs a recurring, self re-arming tick with a single
// cancellation token.
package schedule

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// Loop calls tick every interval while armed. The next tick is only
// scheduled once the previous one has returned, so at most one tick is ever
// in flight. The tick function must not call Arm or Cancel.
type Loop struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	tick     func()

	token uint64 // bumped on every Arm and Cancel
	armed bool
	timer Timer
}

// New returns an idle Loop.
func New(interval time.Duration, tick func(), opts ...Option) *Loop {
	l := &Loop{
		clock:    realClock{},
		interval: interval,
		tick:     tick,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Arm schedules the first tick. It is a no-op when already armed.
func (l *Loop) Arm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.armed {
		return
	}
	l.token++
	l.armed = true
	l.schedule(l.token)
}

// Cancel stops the loop. Once Cancel returns no tick body runs until the
// next Arm, including ticks whose timer had already fired.
func (l *Loop) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.token++
	l.armed = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// Armed reports whether ticks are scheduled.
func (l *Loop) Armed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.armed
}

func (l *Loop) schedule(token uint64) {
	l.timer = l.clock.AfterFunc(l.interval, func() { l.fire(token) })
}

func (l *Loop) fire(token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.armed || token != l.token {
		return
	}
	l.timer = nil
	if l.tick != nil {
		l.tick()
	}
	l.schedule(token)
}
