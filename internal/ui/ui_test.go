package ui

import (
	"image/color"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"music-tuner/internal/render"
	"music-tuner/internal/tuner"
)

type fakeTuner struct {
	mu        sync.Mutex
	snap      tuner.Snapshot
	toggles   int
	listeners []func(tuner.Snapshot)
}

func (f *fakeTuner) Toggle() tuner.RecordingState {
	f.mu.Lock()
	f.toggles++
	if f.snap.State == tuner.Recording {
		f.snap.State = tuner.Stopped
	} else {
		f.snap.State = tuner.Recording
	}
	snap := f.snap
	listeners := f.listeners
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return snap.State
}

func (f *fakeTuner) Snapshot() tuner.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeTuner) OnChange(fn func(tuner.Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *fakeTuner) publish(s tuner.Snapshot) {
	f.mu.Lock()
	f.snap = s
	listeners := f.listeners
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWindowInitialState(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	ft := &fakeTuner{snap: tuner.Snapshot{Status: "Waiting for microphone..."}}
	w := NewWindow(a, ft, NewOscilloscope(50))

	if got := w.Fyne().Title(); got != Title {
		t.Fatalf("expected title %q, got %q", Title, got)
	}
	if got, _ := w.freqText.Get(); got != "" {
		t.Fatalf("expected empty frequency, got %q", got)
	}
	if got, _ := w.toggleText.Get(); got != "Start Recording" {
		t.Fatalf("expected start label, got %q", got)
	}
	if got, _ := w.statusText.Get(); got != "Waiting for microphone..." {
		t.Fatalf("unexpected status %q", got)
	}
}

func TestTapTogglesAndRelabels(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	ft := &fakeTuner{}
	w := NewWindow(a, ft, NewOscilloscope(50))

	test.Tap(w.Toggle)
	if ft.toggles != 1 {
		t.Fatalf("expected one toggle, got %d", ft.toggles)
	}
	if got, _ := w.toggleText.Get(); got != "Stop Recording" {
		t.Fatalf("expected stop label, got %q", got)
	}
	waitFor(t, "button label", func() bool {
		return w.Toggle.Text == "Stop Recording"
	})

	test.Tap(w.Toggle)
	if got, _ := w.toggleText.Get(); got != "Start Recording" {
		t.Fatalf("expected start label, got %q", got)
	}
}

func TestFrequencyLabelFollowsSnapshots(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	ft := &fakeTuner{}
	w := NewWindow(a, ft, NewOscilloscope(50))

	ft.publish(tuner.Snapshot{
		State:        tuner.Recording,
		Frequency:    440.004,
		HasFrequency: true,
		Status:       "Listening on Mic (level 0.12)",
	})
	if got, _ := w.freqText.Get(); got != "440.00 Hz" {
		t.Fatalf("expected 440.00 Hz, got %q", got)
	}
	if got, _ := w.statusText.Get(); got != "Listening on Mic (level 0.12)" {
		t.Fatalf("unexpected status %q", got)
	}
	waitFor(t, "frequency text", func() bool {
		return w.Frequency.Text == "440.00 Hz"
	})
}

func TestOscilloscopeShowsFlushedFrame(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()

	scope := NewOscilloscope(20)
	r := render.NewRenderer(render.DefaultGain)
	r.Render(scope, make([]float64, 16), 20, 20)

	frame := scope.Frame()
	if got := color.NRGBAModel.Convert(frame.At(0, 0)); got != render.Background {
		t.Fatalf("expected background at the corner, got %v", got)
	}
	if got := color.NRGBAModel.Convert(frame.At(10, 10)); got != render.Trace {
		t.Fatalf("expected the trace on the centre line, got %v", got)
	}

	if ms := test.WidgetRenderer(scope).MinSize(); ms.Width != 20 || ms.Height != 20 {
		t.Fatalf("expected 20x20 min size, got %v", ms)
	}
	if img := scope.frame(20, 20); img.Bounds().Dx() != 20 {
		t.Fatalf("expected a 20px raster frame, got %v", img.Bounds())
	}
}
