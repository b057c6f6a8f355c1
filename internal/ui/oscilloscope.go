package ui

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"music-tuner/internal/render"
)

// Oscilloscope is a fixed-size trace of the last analysis window. It is a
// render.Surface: the analysis tick draws into an off-screen image and Flush
// hands the finished frame to the raster.
type Oscilloscope struct {
	widget.BaseWidget

	img  *render.Image
	size int

	mu    sync.Mutex
	shown *image.RGBA // reused by the raster generator
}

var _ render.Surface = (*Oscilloscope)(nil)

// NewOscilloscope returns a size×size oscilloscope showing the background.
func NewOscilloscope(size int) *Oscilloscope {
	if size <= 0 {
		size = 1
	}
	o := &Oscilloscope{img: render.NewImage(size, size), size: size}
	o.ExtendBaseWidget(o)
	return o
}

func (o *Oscilloscope) Clear(bg color.Color) {
	o.img.Clear(bg)
}

func (o *Oscilloscope) Polyline(points []render.Point, width float64, stroke color.Color) {
	o.img.Polyline(points, width, stroke)
}

// Flush publishes the frame and schedules a repaint.
func (o *Oscilloscope) Flush() {
	o.img.Flush()
	o.Refresh()
}

// Frame returns a copy of the last published frame.
func (o *Oscilloscope) Frame() *image.RGBA {
	return o.img.Snapshot(nil)
}

func (o *Oscilloscope) frame(_, _ int) image.Image {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.shown = o.img.Snapshot(o.shown)
	return o.shown
}

func (o *Oscilloscope) CreateRenderer() fyne.WidgetRenderer {
	raster := canvas.NewRaster(o.frame)
	raster.ScaleMode = canvas.ImageScalePixels
	return &oscilloscopeRenderer{scope: o, raster: raster}
}

type oscilloscopeRenderer struct {
	scope  *Oscilloscope
	raster *canvas.Raster
}

func (r *oscilloscopeRenderer) Layout(size fyne.Size) {
	r.raster.Move(fyne.NewPos(0, 0))
	r.raster.Resize(size)
}

func (r *oscilloscopeRenderer) MinSize() fyne.Size {
	s := float32(r.scope.size)
	return fyne.NewSize(s, s)
}

func (r *oscilloscopeRenderer) Refresh() {
	r.Layout(r.scope.Size())
	canvas.Refresh(r.raster)
}

func (r *oscilloscopeRenderer) Destroy() {}

func (r *oscilloscopeRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.raster}
}
