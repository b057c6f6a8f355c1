package render

import (
	"image/color"
	"math"
	"reflect"
	"testing"
)

func TestRenderPoints(t *testing.T) {
	rec := &Recorder{}
	r := NewRenderer(0)
	r.Render(rec, []float64{0, 0.5, -0.5, 0}, 500, 500)

	cmds := rec.Commands()
	if len(cmds) != 2 {
		t.Fatalf("expected clear + polyline, got %d commands", len(cmds))
	}
	if cmds[0].Op != "clear" || cmds[0].Color != Background {
		t.Fatalf("unexpected first command %+v", cmds[0])
	}
	want := []Point{{0, 250}, {125, 350}, {250, 150}, {375, 250}, {500, 250}}
	if !reflect.DeepEqual(cmds[1].Points, want) {
		t.Fatalf("points = %v, want %v", cmds[1].Points, want)
	}
	if cmds[1].Width != DefaultLineWidth || cmds[1].Color != Trace {
		t.Fatalf("unexpected stroke %+v", cmds[1])
	}
}

func TestRenderIdempotent(t *testing.T) {
	samples := make([]float64, 1024)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(float64(i)/7)
	}
	r := NewRenderer(DefaultGain)

	a, b := &Recorder{}, &Recorder{}
	r.Render(a, samples, 500, 500)
	r.Render(b, samples, 500, 500)
	if !reflect.DeepEqual(a.Commands(), b.Commands()) {
		t.Fatalf("rendering the same window twice produced different commands")
	}

	r.Render(a, samples, 500, 500)
	if !reflect.DeepEqual(a.Commands(), b.Commands()) || a.Frames() != 2 {
		t.Fatalf("re-rendering onto the same surface changed the frame")
	}
}

func TestRenderDoesNotMutateSamples(t *testing.T) {
	samples := []float64{0.1, -0.2, 0.3, -0.4}
	orig := append([]float64(nil), samples...)
	NewRenderer(DefaultGain).Render(&Recorder{}, samples, 100, 100)
	if !reflect.DeepEqual(samples, orig) {
		t.Fatalf("samples changed: %v", samples)
	}
}

func TestRenderNilSurface(t *testing.T) {
	NewRenderer(DefaultGain).Render(nil, []float64{1, 2}, 10, 10)
}

func TestRenderEmptyWindow(t *testing.T) {
	rec := &Recorder{}
	NewRenderer(DefaultGain).Render(rec, nil, 500, 500)
	cmds := rec.Commands()
	if len(cmds) != 2 || len(cmds[1].Points) != 1 || cmds[1].Points[0] != (Point{500, 250}) {
		t.Fatalf("expected only the closing point, got %+v", cmds)
	}
}

func TestImageRender(t *testing.T) {
	img := NewImage(500, 500)
	NewRenderer(DefaultGain).Render(img, make([]float64, 256), 500, 500)

	frame := img.Snapshot(nil)
	black := color.RGBA{A: 255}
	grey := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	if got := frame.RGBAAt(100, 250); got != black {
		t.Fatalf("trace pixel = %v, want %v", got, black)
	}
	if got := frame.RGBAAt(100, 100); got != grey {
		t.Fatalf("background pixel = %v, want %v", got, grey)
	}
}

func TestImageSnapshotOnlyShowsFlushedFrames(t *testing.T) {
	img := NewImage(20, 20)
	img.Clear(color.Black)

	frame := img.Snapshot(nil)
	if got := frame.RGBAAt(5, 5); got.R != 200 {
		t.Fatalf("unflushed clear leaked into snapshot: %v", got)
	}

	img.Flush()
	again := img.Snapshot(frame)
	if again != frame {
		t.Fatalf("snapshot should reuse a correctly sized destination")
	}
	if got := again.RGBAAt(5, 5); got.R != 0 {
		t.Fatalf("flushed frame not visible: %v", got)
	}
}

func TestImagePolylineExtremeValues(t *testing.T) {
	img := NewImage(50, 50)
	pts := []Point{{0, 25}, {10, 1e12}, {20, math.NaN()}, {30, -1e12}, {50, 25}}
	img.Polyline(pts, 2, color.Black)
	img.Flush()
	if got := img.Snapshot(nil).RGBAAt(0, 25); got.R != 0 {
		t.Fatalf("expected start of trace to be drawn, got %v", got)
	}
}
