package render

import (
	"image/color"
	"sync"
)

// Command is one recorded draw call.
type Command struct {
	Op     string // "clear" or "polyline"
	Color  color.NRGBA
	Width  float64
	Points []Point
}

// Recorder is a Surface that keeps the commands of the last frame.
type Recorder struct {
	mu     sync.Mutex
	cmds   []Command
	frames int
}

// Clear starts a new frame.
func (r *Recorder) Clear(bg color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds[:0], Command{Op: "clear", Color: toNRGBA(bg)})
	r.frames++
}

// Polyline records a copy of points.
func (r *Recorder) Polyline(points []Point, width float64, stroke color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, Command{
		Op:     "polyline",
		Color:  toNRGBA(stroke),
		Width:  width,
		Points: append([]Point(nil), points...),
	})
}

// Commands returns a copy of the last frame's commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}

// Frames returns how many frames were started.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
