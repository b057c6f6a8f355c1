// Package config holds the tuner settings, read from the app's preferences.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Preference keys.
const (
	KeyWindowExponent = "window_exponent"
	KeyThreshold      = "threshold"
	KeyTickInterval   = "tick_interval_ms"
	KeyMinFrequency   = "min_frequency"
	KeyGain           = "gain"
	KeyCanvasSize     = "canvas_size"
	KeyInputDevice    = "input_device"
	KeyLastDevice     = "last_device"
	KeyLogFile        = "log_file"
)

// Preferences is the subset of fyne.Preferences the config reads and writes.
type Preferences interface {
	IntWithFallback(key string, fallback int) int
	FloatWithFallback(key string, fallback float64) float64
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
}

// Config is the complete tuner configuration.
type Config struct {
	WindowExponent int           // analysis window is 2^WindowExponent samples
	Threshold      float64       // YIN absolute threshold
	TickInterval   time.Duration // delay between analysis ticks
	MinFrequency   float64       // estimates at or below this are not displayed
	Gain           float64       // oscilloscope pixels per unit sample
	CanvasSize     int           // oscilloscope width and height in pixels
	InputDevice    string        // capture device name, empty for the default
	LogFile        string        // optional rotating diagnostic log
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		WindowExponent: 13,
		Threshold:      0.4,
		TickInterval:   10 * time.Millisecond,
		MinFrequency:   50,
		Gain:           200,
		CanvasSize:     500,
	}
}

// WindowSize returns the analysis window length in samples.
func (c Config) WindowSize() int {
	return 1 << c.WindowExponent
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	for _, f := range c.check() {
		errs = append(errs, f.err)
	}
	return errors.Join(errs...)
}

type fieldError struct {
	reset func(*Config)
	err   error
}

func (c Config) check() []fieldError {
	def := Default()
	var out []fieldError
	add := func(ok bool, reset func(*Config), format string, args ...any) {
		if ok {
			return
		}
		out = append(out, fieldError{
			reset: reset,
			err:   fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)),
		})
	}

	add(c.WindowExponent >= 6 && c.WindowExponent <= 15,
		func(n *Config) { n.WindowExponent = def.WindowExponent },
		"%s %d not in [6, 15]", KeyWindowExponent, c.WindowExponent)
	add(c.Threshold > 0 && c.Threshold < 1,
		func(n *Config) { n.Threshold = def.Threshold },
		"%s %v not in (0, 1)", KeyThreshold, c.Threshold)
	add(c.TickInterval >= time.Millisecond && c.TickInterval <= time.Second,
		func(n *Config) { n.TickInterval = def.TickInterval },
		"%s %v not in [1ms, 1s]", KeyTickInterval, c.TickInterval)
	add(c.MinFrequency >= 0 && c.MinFrequency < 20000,
		func(n *Config) { n.MinFrequency = def.MinFrequency },
		"%s %v not in [0, 20000)", KeyMinFrequency, c.MinFrequency)
	add(c.Gain > 0,
		func(n *Config) { n.Gain = def.Gain },
		"%s %v must be > 0", KeyGain, c.Gain)
	add(c.CanvasSize >= 16 && c.CanvasSize <= 4096,
		func(n *Config) { n.CanvasSize = def.CanvasSize },
		"%s %d not in [16, 4096]", KeyCanvasSize, c.CanvasSize)
	return out
}

// Load reads the config from p. Out-of-range values are logged through logf
// (log.Printf when nil) and replaced by their defaults. An empty input device
// falls back to the last device that was acquired successfully.
func Load(p Preferences, logf func(format string, args ...any)) Config {
	if logf == nil {
		logf = log.Printf
	}
	def := Default()
	c := Config{
		WindowExponent: p.IntWithFallback(KeyWindowExponent, def.WindowExponent),
		Threshold:      p.FloatWithFallback(KeyThreshold, def.Threshold),
		TickInterval:   time.Duration(p.IntWithFallback(KeyTickInterval, int(def.TickInterval/time.Millisecond))) * time.Millisecond,
		MinFrequency:   p.FloatWithFallback(KeyMinFrequency, def.MinFrequency),
		Gain:           p.FloatWithFallback(KeyGain, def.Gain),
		CanvasSize:     p.IntWithFallback(KeyCanvasSize, def.CanvasSize),
		InputDevice:    p.StringWithFallback(KeyInputDevice, ""),
		LogFile:        p.StringWithFallback(KeyLogFile, ""),
	}
	if c.InputDevice == "" {
		c.InputDevice = p.StringWithFallback(KeyLastDevice, "")
	}
	for _, f := range c.check() {
		logf("config: %v, using default", f.err)
		f.reset(&c)
	}
	return c
}

// RememberDevice stores the name of a successfully acquired device.
func RememberDevice(p Preferences, name string) {
	if name == "" {
		return
	}
	p.SetString(KeyLastDevice, name)
}
