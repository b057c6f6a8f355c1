// Package capture owns the microphone: a process-wide audio context, the one
// stream acquired from it, and the analysis node that keeps the newest
// samples for the tuner to pull.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// defaultLabel names the system default input in logs and the status line.
const defaultLabel = "default input"

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be opened
	// or started, including when access to it is denied.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrNoInputDevice is reported when acquisition yields no stream.
	ErrNoInputDevice = errors.New("input device not found")
	// ErrClosed is returned by a closed or uninitialised Context.
	ErrClosed = errors.New("audio context closed")
)

// DeviceOption is a named capture device.
type DeviceOption struct {
	Name string
	Info *malgo.DeviceInfo
}

// Context is the audio context. It is created once, acquires at most one
// stream, and is resumed on every transition into recording.
type Context struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	stream  *Stream
	err     error
	tried   bool
	closed  bool
	closing atomic.Bool
	logf    func(format string, args ...any)
}

// NewContext initialises the audio backend. malgo's own messages go to logf,
// which defaults to log.Printf.
func NewContext(logf func(format string, args ...any)) (*Context, error) {
	if logf == nil {
		logf = log.Printf
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logf("malgo: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo init: %w", err)
	}
	return &Context{ctx: ctx, logf: logf}, nil
}

// InputDevices lists the capture devices.
func (c *Context) InputDevices() ([]DeviceOption, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil || c.closed {
		return nil, ErrClosed
	}
	return inputDevices(c.ctx)
}

// Acquire opens the named capture device, or the system default when name is
// empty, and returns its stream disabled. Only the first call touches the
// device; later calls return the same stream or error.
func (c *Context) Acquire(ctx context.Context, name string) (*Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tried {
		return c.stream, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.ctx == nil || c.closed {
		return nil, ErrClosed
	}
	c.tried = true
	c.stream, c.err = c.open(name)
	return c.stream, c.err
}

func (c *Context) open(name string) (*Stream, error) {
	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1

	var selected *DeviceOption
	if name != "" {
		devs, err := inputDevices(c.ctx)
		if err != nil {
			return nil, fmt.Errorf("input devices: %w: %w", ErrDeviceUnavailable, err)
		}
		selected = selectDevice(devs, name, c.logf)
	}

	stream := newStream(defaultLabel, DefaultNodeSize)
	if selected != nil {
		config.Capture.DeviceID = selected.Info.ID.Pointer()
		config.SampleRate = chooseSampleRate(selected.Info)
		stream.name = selected.Name
		stream.device = selected.Name
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if len(input) == 0 {
				return
			}
			stream.deliver(bytesToFloat32Slice(input))
		},
		Stop: func() {
			if c.closing.Load() {
				return
			}
			c.logf("capture: %s stopped", stream.Name())
			stream.end(true)
		},
	}

	device, err := malgo.InitDevice(c.ctx.Context, config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init device: %w: %w", ErrDeviceUnavailable, err)
	}
	stream.sampleRate = float64(device.SampleRate())
	c.device = device
	return stream, nil
}

// Resume starts the acquired device if it is not running. It is safe to call
// any number of times, and before acquisition.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || c.closed || c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("start device: %w: %w", ErrDeviceUnavailable, err)
	}
	return nil
}

// SampleRate returns the operating rate of the acquired device, or 0.
func (c *Context) SampleRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream.SampleRate()
}

// Close releases the device and the backend. The stream ends without
// firing its OnEnded hook.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closing.Store(true)
	if c.stream != nil {
		c.stream.end(false)
	}
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}

func inputDevices(ctx *malgo.AllocatedContext) ([]DeviceOption, error) {
	list, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	devs := make([]DeviceOption, 0, len(list))
	for i := range list {
		info := list[i]
		name := info.Name()
		if name == "" {
			name = "Unknown input"
		}
		devs = append(devs, DeviceOption{
			Name: name,
			Info: &info,
		})
	}
	return devs, nil
}

// selectDevice resolves name against devs. A remembered device may have been
// unplugged since, in which case nil selects the system default.
func selectDevice(devs []DeviceOption, name string, logf func(format string, args ...any)) *DeviceOption {
	if name == "" {
		return nil
	}
	selected := findDeviceByName(devs, name)
	if selected == nil {
		logf("capture: %q not found, using %s", name, defaultLabel)
	}
	return selected
}

func findDeviceByName(devs []DeviceOption, name string) *DeviceOption {
	for i := range devs {
		if devs[i].Name == name {
			return &devs[i]
		}
	}
	return nil
}

// chooseSampleRate picks the first rate the device reports; 0 lets the
// backend use the device's native rate.
func chooseSampleRate(info *malgo.DeviceInfo) uint32 {
	if info == nil {
		return 0
	}
	for _, f := range info.Formats {
		if f.SampleRate > 0 {
			return f.SampleRate
		}
	}
	return 0
}

func bytesToFloat32Slice(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}
