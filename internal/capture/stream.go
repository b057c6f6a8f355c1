package capture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"music-tuner/internal/sample"
)

// Stream is the handle to an acquired microphone. It lives as long as the
// process; enabling and disabling it mutes the input without reacquiring
// the device.
type Stream struct {
	name       string
	device     string // listed device name, empty for the system default
	sampleRate float64
	node       *Node

	enabled atomic.Bool
	ended   atomic.Bool

	mu      sync.Mutex
	onEnded func()
}

func newStream(name string, nodeSize int) *Stream {
	return &Stream{name: name, node: NewNode(nodeSize)}
}

// Name returns the capture device name.
func (s *Stream) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Device returns the name of the listed device that was opened, or "" when
// the system default input is in use.
func (s *Stream) Device() string {
	if s == nil {
		return ""
	}
	return s.device
}

// SampleRate returns the device's operating rate in Hz.
func (s *Stream) SampleRate() float64 {
	if s == nil {
		return 0
	}
	return s.sampleRate
}

// SetEnabled turns the input on or off. It does nothing on a nil or ended
// stream.
func (s *Stream) SetEnabled(enabled bool) {
	if s == nil || s.ended.Load() {
		return
	}
	s.enabled.Store(enabled)
}

// Enabled reports whether captured frames reach the analysis node.
func (s *Stream) Enabled() bool {
	return s != nil && s.enabled.Load()
}

// Ended reports whether the device stopped delivering audio.
func (s *Stream) Ended() bool {
	return s != nil && s.ended.Load()
}

// Connect sizes the analysis node for windows of windowSize samples.
func (s *Stream) Connect(windowSize int) error {
	if s == nil {
		return ErrClosed
	}
	if !sample.IsPowerOfTwo(windowSize) {
		return fmt.Errorf("connect %d: %w", windowSize, sample.ErrNotPowerOfTwo)
	}
	s.node.Resize(windowSize)
	return nil
}

// TimeDomainData copies the newest len(dst) samples into dst, oldest first.
func (s *Stream) TimeDomainData(dst []float64) {
	if s == nil {
		clear(dst)
		return
	}
	s.node.TimeDomainData(dst)
}

// OnEnded registers fn to run once if the device stops on its own.
func (s *Stream) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

func (s *Stream) deliver(samples []float32) {
	if !s.enabled.Load() || s.ended.Load() {
		return
	}
	s.node.Write(samples)
}

// end marks the stream ended and, when notify is set, runs the OnEnded hook.
func (s *Stream) end(notify bool) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.enabled.Store(false)
	if !notify {
		return
	}
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
