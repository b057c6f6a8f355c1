// Package tuner ties the capture stream, the analysis window, the YIN
// estimator and the oscilloscope renderer into a recording toggle driven by
// a recurring analysis tick.
package tuner

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	timestats "github.com/cwbudde/algo-dsp/stats/time"

	"music-tuner/internal/config"
	"music-tuner/internal/render"
	"music-tuner/internal/sample"
	"music-tuner/internal/schedule"
	"music-tuner/internal/yin"
)

// AudioContext is the process-wide audio device owner.
type AudioContext interface {
	// Resume starts audio processing. It must be idempotent.
	Resume() error
	// SampleRate is the device's operating rate in Hz.
	SampleRate() float64
}

// Stream is an acquired microphone whose input can be muted.
type Stream interface {
	Name() string
	SetEnabled(enabled bool)
	Connect(windowSize int) error
	TimeDomainData(dst []float64)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSurface sets the oscilloscope surface. Without one, ticks skip
// rendering.
func WithSurface(s render.Surface) Option {
	return func(c *Controller) { c.surface = s }
}

// WithLogf replaces log.Printf as the diagnostic channel.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Controller) {
		if logf != nil {
			c.logf = logf
		}
	}
}

// WithClock replaces the wall clock used to schedule ticks.
func WithClock(clock schedule.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// Controller owns the recording state and everything it switches. State
// changes only through Toggle; acquisition results arrive via SetStream or
// AcquireFailed.
type Controller struct {
	cfg     config.Config
	actx    AudioContext
	surface render.Surface
	clock   schedule.Clock
	logf    func(format string, args ...any)

	mu     sync.Mutex // guards stream, lost, window and transitions
	stream Stream
	lost   bool
	window *sample.Window
	pool   *sample.Pool
	loop   *schedule.Loop

	state atomic.Int32 // RecordingState, written under mu
	armed atomic.Bool
	ticks atomic.Uint64

	// Used only from the tick.
	estimator *yin.Estimator
	renderer  *render.Renderer

	dmu          sync.RWMutex // guards the displayed values
	frequency    float64
	hasFrequency bool
	level        float64
	status       string
	err          error

	lmu       sync.Mutex
	listeners []func(Snapshot)
}

// New returns a stopped controller. actx may be nil when no audio backend
// could be initialised; the tuner then never leaves IDLE.
func New(cfg config.Config, actx AudioContext, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		actx:      actx,
		logf:      log.Printf,
		pool:      sample.NewPool(),
		estimator: yin.NewEstimator(cfg.WindowSize()),
		renderer:  render.NewRenderer(cfg.Gain),
		status:    "Waiting for microphone...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.loop = schedule.New(cfg.TickInterval, c.tick, schedule.WithClock(c.clock))
	return c
}

// OnChange registers fn to receive a snapshot after every change. fn may run
// on the analysis goroutine and must not call Toggle, SetStream or
// StreamLost.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the recording state.
func (c *Controller) State() RecordingState {
	return RecordingState(c.state.Load())
}

// Phase returns the scheduler state.
func (c *Controller) Phase() Phase {
	switch {
	case !c.armed.Load():
		return PhaseIdle
	case c.ticks.Load() == 0:
		return PhaseArmed
	}
	return PhaseTicking
}

// Frequency returns the last accepted estimate.
func (c *Controller) Frequency() (float64, bool) {
	c.dmu.RLock()
	defer c.dmu.RUnlock()
	return c.frequency, c.hasFrequency
}

// Snapshot returns the displayed state.
func (c *Controller) Snapshot() Snapshot {
	c.dmu.RLock()
	defer c.dmu.RUnlock()
	return Snapshot{
		State:        c.State(),
		Frequency:    c.frequency,
		HasFrequency: c.hasFrequency,
		Level:        c.level,
		Status:       c.status,
		Err:          c.err,
	}
}

// Toggle flips between Stopped and Recording and returns the new state.
func (c *Controller) Toggle() RecordingState {
	c.mu.Lock()
	next := Recording
	if c.State() == Recording {
		next = Stopped
	}
	c.state.Store(int32(next))
	if next == Recording {
		c.startLocked()
	} else {
		c.stopLocked()
	}
	c.mu.Unlock()

	c.notify()
	return next
}

// SetStream hands over the stream once acquisition succeeds. The stream is
// muted and, if recording was requested meanwhile, analysis starts. Only the
// first stream is kept.
func (c *Controller) SetStream(s Stream) {
	if s == nil {
		return
	}
	c.mu.Lock()
	if c.stream != nil {
		c.mu.Unlock()
		return
	}
	c.stream = s
	s.SetEnabled(false)
	if c.State() == Recording {
		c.startLocked()
	} else {
		c.setStatus("Stopped", nil)
	}
	c.mu.Unlock()

	c.notify()
}

// AcquireFailed records that no stream will arrive. The tuner stays inert.
func (c *Controller) AcquireFailed(err error) {
	c.logf("tuner: microphone unavailable: %v", err)
	c.setStatus(fmt.Sprintf("Error: %v", err), err)
	c.notify()
}

// StreamLost stops analysis after the device went away. The recording state
// is left as the user set it.
func (c *Controller) StreamLost(err error) {
	c.logf("tuner: stream lost: %v", err)
	c.mu.Lock()
	c.lost = true
	c.disarmLocked()
	c.mu.Unlock()

	c.setStatus(fmt.Sprintf("Error: %v", err), err)
	c.notify()
}

func (c *Controller) startLocked() {
	if c.stream == nil {
		if !c.hasError() {
			c.setStatus("Waiting for microphone...", nil)
		}
		return
	}
	if c.lost {
		return
	}
	if c.actx != nil {
		if err := c.actx.Resume(); err != nil {
			c.logf("tuner: resume audio: %v", err)
			c.setStatus(fmt.Sprintf("Error: %v", err), err)
			return
		}
	}
	c.stream.SetEnabled(true)

	if c.window == nil {
		w, err := c.pool.Get(c.cfg.WindowSize())
		if err != nil {
			c.logf("tuner: window: %v", err)
			c.stream.SetEnabled(false)
			c.setStatus(fmt.Sprintf("Error: %v", err), err)
			return
		}
		c.window = w
	}
	if err := c.stream.Connect(c.window.Len()); err != nil {
		c.logf("tuner: connect: %v", err)
		c.stream.SetEnabled(false)
		c.pool.Put(c.window)
		c.window = nil
		c.setStatus(fmt.Sprintf("Error: %v", err), err)
		return
	}

	c.clearError()
	c.setStatus(fmt.Sprintf("Listening on %s", c.stream.Name()), nil)
	c.ticks.Store(0)
	c.armed.Store(true)
	c.loop.Arm()
}

func (c *Controller) stopLocked() {
	c.disarmLocked()
	if c.stream != nil {
		c.stream.SetEnabled(false)
	}
	if !c.hasError() {
		c.setStatus("Stopped", nil)
	}
}

// disarmLocked cancels the loop; after it returns no tick touches the window,
// so it can go back to the pool.
func (c *Controller) disarmLocked() {
	c.loop.Cancel()
	c.armed.Store(false)
	if c.window != nil {
		c.pool.Put(c.window)
		c.window = nil
	}
}

// tick is one pull, estimate, render pass.
func (c *Controller) tick() {
	c.ticks.Add(1)
	c.window.Fill(c.stream)
	samples := c.window.Samples()

	var sampleRate float64
	if c.actx != nil {
		sampleRate = c.actx.SampleRate()
	}
	r, ok := c.estimator.Estimate(samples, sampleRate, c.cfg.Threshold)
	accept := ok && r.Frequency > c.cfg.MinFrequency
	level := timestats.RMS(samples)

	c.render(samples)

	c.dmu.Lock()
	if accept {
		c.frequency = r.Frequency
		c.hasFrequency = true
	}
	c.level = level
	if c.err == nil {
		c.status = fmt.Sprintf("Listening on %s (level %.2f)", c.stream.Name(), level)
	}
	c.dmu.Unlock()

	c.notify()
}

func (c *Controller) render(samples []float64) {
	if c.surface == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logf("tuner: render skipped: %v", r)
		}
	}()
	size := c.cfg.CanvasSize
	c.renderer.Render(c.surface, samples, size, size)
}

func (c *Controller) setStatus(status string, err error) {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	c.status = status
	if err != nil {
		c.err = err
	}
}

func (c *Controller) clearError() {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	c.err = nil
}

func (c *Controller) hasError() bool {
	c.dmu.RLock()
	defer c.dmu.RUnlock()
	return c.err != nil
}

func (c *Controller) notify() {
	c.lmu.Lock()
	listeners := slices.Clone(c.listeners)
	c.lmu.Unlock()
	if len(listeners) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}
