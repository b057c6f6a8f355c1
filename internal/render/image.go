package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Image is a double-buffered RGBA Surface. Draw calls go to a back buffer;
// Flush publishes it so a reader on another goroutine sees whole frames.
type Image struct {
	mu    sync.Mutex
	back  *image.RGBA
	front *image.RGBA
}

// NewImage returns a surface of the given pixel size, cleared to Background.
func NewImage(width, height int) *Image {
	r := image.Rect(0, 0, width, height)
	m := &Image{back: image.NewRGBA(r), front: image.NewRGBA(r)}
	m.Clear(Background)
	m.Flush()
	return m
}

// Bounds returns the surface rectangle.
func (m *Image) Bounds() image.Rectangle {
	return m.back.Bounds()
}

// Clear fills the back buffer with bg.
func (m *Image) Clear(bg color.Color) {
	draw.Draw(m.back, m.back.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

// Polyline strokes consecutive points onto the back buffer. Segments with a
// non-finite end are skipped; the rest are clipped to the surface.
func (m *Image) Polyline(points []Point, width float64, stroke color.Color) {
	if len(points) < 2 {
		return
	}
	w := int(math.Round(width))
	if w < 1 {
		w = 1
	}
	c := color.RGBAModel.Convert(stroke).(color.RGBA)
	b := m.back.Bounds()
	for i := 1; i < len(points); i++ {
		p0, ok0 := m.pixel(points[i-1], b, w)
		p1, ok1 := m.pixel(points[i], b, w)
		if !ok0 || !ok1 {
			continue
		}
		m.line(p0, p1, w, c)
	}
}

// Flush publishes the back buffer as the current frame.
func (m *Image) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.front.Pix, m.back.Pix)
}

// Snapshot copies the last flushed frame into dst, allocating it when it is
// nil or the wrong size, and returns it.
func (m *Image) Snapshot(dst *image.RGBA) *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dst == nil || dst.Bounds() != m.front.Bounds() {
		dst = image.NewRGBA(m.front.Bounds())
	}
	copy(dst.Pix, m.front.Pix)
	return dst
}

// pixel rounds p to a pixel, pulling far off-surface coordinates in to just
// outside the stroke margin so line walks stay short.
func (m *Image) pixel(p Point, b image.Rectangle, w int) (image.Point, bool) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return image.Point{}, false
	}
	x := core.Clamp(math.Round(p.X), float64(b.Min.X-w), float64(b.Max.X+w))
	y := core.Clamp(math.Round(p.Y), float64(b.Min.Y-w), float64(b.Max.Y+w))
	return image.Pt(int(x), int(y)), true
}

// line walks from p0 to p1 with Bresenham and stamps a w×w square per step.
func (m *Image) line(p0, p1 image.Point, w int, c color.RGBA) {
	dx := abs(p1.X - p0.X)
	dy := -abs(p1.Y - p0.Y)
	sx, sy := 1, 1
	if p0.X > p1.X {
		sx = -1
	}
	if p0.Y > p1.Y {
		sy = -1
	}
	err := dx + dy
	x, y := p0.X, p0.Y
	for {
		m.stamp(x, y, w, c)
		if x == p1.X && y == p1.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func (m *Image) stamp(x, y, w int, c color.RGBA) {
	half := w / 2
	b := m.back.Bounds()
	for oy := -half; oy < w-half; oy++ {
		for ox := -half; ox < w-half; ox++ {
			p := image.Pt(x+ox, y+oy)
			if p.In(b) {
				m.back.SetRGBA(p.X, p.Y, c)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
