// Package render draws a sample window as an oscilloscope trace.
package render

import (
	"image/color"
)

const (
	// DefaultGain scales a sample to a pixel offset from the vertical centre.
	DefaultGain = 200.0
	// DefaultLineWidth is the trace width in pixels.
	DefaultLineWidth = 2.0
)

var (
	// Background is the colour the surface is cleared to.
	Background = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	// Trace is the stroke colour of the waveform.
	Trace = color.NRGBA{A: 255}
)

// Point is a position on the surface in pixels.
type Point struct {
	X, Y float64
}

// Surface is a fixed-size drawable that accepts clear and polyline commands.
type Surface interface {
	Clear(bg color.Color)
	Polyline(points []Point, width float64, stroke color.Color)
}

// Flusher is implemented by surfaces that present a finished frame.
type Flusher interface {
	Flush()
}

// Renderer turns sample windows into draw commands. It keeps its point slice
// between frames and is not safe for concurrent use.
type Renderer struct {
	Gain      float64
	LineWidth float64
	BG        color.Color
	Stroke    color.Color

	points []Point
}

// NewRenderer returns a Renderer with the default gain and colours.
func NewRenderer(gain float64) *Renderer {
	if gain <= 0 {
		gain = DefaultGain
	}
	return &Renderer{
		Gain:      gain,
		LineWidth: DefaultLineWidth,
		BG:        Background,
		Stroke:    Trace,
	}
}

// Render clears s and draws samples spread evenly across widthPx, centred on
// heightPx/2, closing the trace at the right edge of the centre line.
// samples is only read.
func (r *Renderer) Render(s Surface, samples []float64, widthPx, heightPx int) {
	if s == nil {
		return
	}
	s.Clear(r.BG)

	n := len(samples)
	mid := float64(heightPx) / 2
	slice := 0.0
	if n > 0 {
		slice = float64(widthPx) / float64(n)
	}

	pts := r.points[:0]
	x := 0.0
	for i := 0; i < n; i++ {
		pts = append(pts, Point{X: x, Y: mid + samples[i]*r.Gain})
		x += slice
	}
	pts = append(pts, Point{X: float64(widthPx), Y: mid})
	r.points = pts

	s.Polyline(pts, r.LineWidth, r.Stroke)
	if f, ok := s.(Flusher); ok {
		f.Flush()
	}
}
