package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"fyne.io/fyne/v2/app"
	"gopkg.in/natefinch/lumberjack.v2"

	"music-tuner/internal/capture"
	"music-tuner/internal/config"
	"music-tuner/internal/tuner"
	"music-tuner/internal/ui"
)

const appID = "music-tuner"

// acquirer opens the microphone. capture.Context is the real one.
type acquirer interface {
	Acquire(ctx context.Context, name string) (*capture.Stream, error)
}

func main() {
	runtime.LockOSThread()

	a := app.NewWithID(appID)
	prefs := a.Preferences()
	cfg := config.Load(prefs, log.Printf)

	if logFile := setupLogging(cfg.LogFile); logFile != nil {
		defer logFile.Close()
	}

	actx, err := capture.NewContext(log.Printf)
	if err != nil {
		log.Printf("audio backend unavailable: %v", err)
	}

	scope := ui.NewOscilloscope(cfg.CanvasSize)
	// A nil *capture.Context must not become a non-nil interface.
	var audio tuner.AudioContext
	if actx != nil {
		audio = actx
	}
	ctrl := tuner.New(cfg, audio, tuner.WithSurface(scope))
	win := ui.NewWindow(a, ctrl, scope)
	w := win.Fyne()

	ctx, cancel := context.WithCancel(context.Background())
	if actx != nil {
		go acquire(ctx, actx, cfg.InputDevice, ctrl, prefs)
	} else {
		ctrl.AcquireFailed(err)
	}

	var closeAudio func()
	if actx != nil {
		closeAudio = actx.Close
	}
	shutdown := newShutdown(cancel, ctrl, closeAudio)

	// Stop audio cleanly on window close or Ctrl+C.
	w.SetCloseIntercept(func() {
		shutdown()
		a.Quit()
	})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		shutdown()
		w.Close()
	}()

	w.ShowAndRun()
}

// acquire requests the microphone once and hands the result to ctrl. A
// successfully opened device is remembered for the next start.
func acquire(ctx context.Context, src acquirer, device string, ctrl *tuner.Controller, prefs config.Preferences) {
	stream, err := src.Acquire(ctx, device)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		ctrl.AcquireFailed(err)
		return
	}
	if stream == nil {
		ctrl.AcquireFailed(capture.ErrNoInputDevice)
		return
	}
	log.Printf("acquired %s at %.0f Hz", stream.Name(), stream.SampleRate())
	// Only a listed device is worth remembering; the default input is
	// picked again anyway.
	config.RememberDevice(prefs, stream.Device())
	stream.OnEnded(func() {
		ctrl.StreamLost(capture.ErrDeviceUnavailable)
	})
	ctrl.SetStream(stream)
}

// newShutdown returns a func that stops recording and releases audio. The
// window close intercept and the signal handler may both call it; only the
// first call does anything.
func newShutdown(cancel context.CancelFunc, ctrl *tuner.Controller, closeAudio func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			if ctrl.State() == tuner.Recording {
				ctrl.Toggle()
			}
			if closeAudio != nil {
				closeAudio()
			}
		})
	}
}

// setupLogging tees the standard logger into a rotating file when path is
// set. The returned closer is nil when no file is used.
func setupLogging(path string) io.Closer {
	if path == "" {
		return nil
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return lj
}
