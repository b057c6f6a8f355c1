// Package ui is the tuner window: a recording toggle, the detected
// frequency, a status line and the oscilloscope.
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"music-tuner/internal/tuner"
)

// Title is the window title.
const Title = "Music Tuner"

// Tuner is what the window drives and displays.
type Tuner interface {
	Toggle() tuner.RecordingState
	Snapshot() tuner.Snapshot
	OnChange(fn func(tuner.Snapshot))
}

// Window holds the widgets and their bindings.
type Window struct {
	win fyne.Window

	Toggle    *widget.Button
	Frequency *canvas.Text
	Status    *widget.Label
	Scope     *Oscilloscope

	toggleText binding.String
	freqText   binding.String
	statusText binding.String
}

// NewWindow builds the tuner window around scope. Changes reported by t are
// pushed into the bound labels.
func NewWindow(a fyne.App, t Tuner, scope *Oscilloscope) *Window {
	w := &Window{
		win:        a.NewWindow(Title),
		Scope:      scope,
		toggleText: binding.NewString(),
		freqText:   binding.NewString(),
		statusText: binding.NewString(),
	}

	// Some drivers drop the title passed to NewWindow.
	w.win.SetTitle(Title)

	w.Toggle = widget.NewButton(tuner.Stopped.ToggleLabel(), func() {
		t.Toggle()
	})
	w.Toggle.Importance = widget.HighImportance

	w.Frequency = canvas.NewText("", theme.ForegroundColor())
	w.Frequency.Alignment = fyne.TextAlignCenter
	w.Frequency.TextStyle = fyne.TextStyle{Monospace: true, Bold: true}
	w.Frequency.TextSize = 26.0

	w.Status = widget.NewLabelWithData(w.statusText)

	// Binding updates -> button and canvas.Text
	w.toggleText.AddListener(binding.NewDataListener(func() {
		val, _ := w.toggleText.Get()
		w.Toggle.SetText(val)
	}))
	w.freqText.AddListener(binding.NewDataListener(func() {
		val, _ := w.freqText.Get()
		w.Frequency.Text = val
		w.Frequency.Refresh()
	}))

	w.show(t.Snapshot())
	t.OnChange(w.show)

	w.win.SetContent(container.NewVBox(
		container.NewCenter(w.Toggle),
		container.NewCenter(w.Frequency),
		container.NewCenter(scope),
		w.Status,
	))
	w.win.SetFixedSize(true)
	return w
}

// Fyne returns the underlying window.
func (w *Window) Fyne() fyne.Window {
	return w.win
}

func (w *Window) show(s tuner.Snapshot) {
	_ = w.toggleText.Set(s.ToggleLabel())
	_ = w.freqText.Set(s.FrequencyText())
	_ = w.statusText.Set(s.Status)
}
