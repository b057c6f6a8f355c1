// Package sample holds the fixed-size window of time-domain samples that each
// analysis tick overwrites in place.
package sample

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/buffer"
)

// ErrNotPowerOfTwo is returned for window sizes that are not a power of two.
var ErrNotPowerOfTwo = errors.New("window size must be a power of two")

// Source yields the newest len(dst) time-domain samples, oldest first.
type Source interface {
	TimeDomainData(dst []float64)
}

// Window is a power-of-two length sample buffer that is never resized.
type Window struct {
	buf *buffer.Buffer
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NewWindow allocates a zeroed window of size samples.
func NewWindow(size int) (*Window, error) {
	if !IsPowerOfTwo(size) {
		return nil, fmt.Errorf("new window %d: %w", size, ErrNotPowerOfTwo)
	}
	return &Window{buf: buffer.New(size)}, nil
}

// Len returns the window length.
func (w *Window) Len() int {
	if w == nil || w.buf == nil {
		return 0
	}
	return w.buf.Len()
}

// Samples returns the backing slice. Callers other than the owner of the
// window must treat it as read-only.
func (w *Window) Samples() []float64 {
	if w == nil || w.buf == nil {
		return nil
	}
	return w.buf.Samples()
}

// Fill overwrites the window with the newest samples from src.
func (w *Window) Fill(src Source) {
	if src == nil || w.Len() == 0 {
		return
	}
	src.TimeDomainData(w.buf.Samples())
}

// Pool hands out windows backed by a shared buffer pool, so that stopping and
// restarting a recording session reuses the same memory.
type Pool struct {
	pool *buffer.Pool
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{pool: buffer.NewPool()}
}

// Get returns a zeroed window of size samples.
func (p *Pool) Get(size int) (*Window, error) {
	if !IsPowerOfTwo(size) {
		return nil, fmt.Errorf("pool window %d: %w", size, ErrNotPowerOfTwo)
	}
	return &Window{buf: p.pool.Get(size)}, nil
}

// Put returns w to the pool. The window is empty afterwards.
func (p *Pool) Put(w *Window) {
	if w == nil || w.buf == nil {
		return
	}
	p.pool.Put(w.buf)
	w.buf = nil
}
