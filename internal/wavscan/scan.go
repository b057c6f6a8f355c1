// Package wavscan runs the pitch estimator over a WAV file, one reading per
// consecutive window.
package wavscan

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"

	"music-tuner/internal/sample"
	"music-tuner/internal/yin"
)

// ErrInvalidFile is returned for input that is not a PCM WAV file.
var ErrInvalidFile = errors.New("invalid WAV file")

// chunkFrames is how many frames are decoded per read.
const chunkFrames = 4096

// Options controls the analysis.
type Options struct {
	WindowSize   int     // samples per window, a power of two
	Hop          int     // samples between window starts; WindowSize when zero
	Threshold    float64 // YIN absolute threshold
	MinFrequency float64 // estimates at or below this count as unvoiced
}

// DefaultOptions matches the live tuner.
func DefaultOptions() Options {
	return Options{
		WindowSize:   8192,
		Threshold:    yin.DefaultThreshold,
		MinFrequency: 50,
	}
}

// Reading is the estimate for one window.
type Reading struct {
	Offset      time.Duration // start of the window
	Frequency   float64       // Hz, zero when unvoiced
	Probability float64
	Voiced      bool
}

// Scan decodes r, mixes it down to mono and estimates the pitch of every
// full window. A file shorter than one window yields no readings.
func Scan(r io.ReadSeeker, opts Options) ([]Reading, error) {
	if !sample.IsPowerOfTwo(opts.WindowSize) {
		return nil, fmt.Errorf("scan window %d: %w", opts.WindowSize, sample.ErrNotPowerOfTwo)
	}
	hop := opts.Hop
	if hop <= 0 {
		hop = opts.WindowSize
	}

	buf, err := decode(r)
	if err != nil {
		return nil, err
	}
	sampleRate := float64(buf.Format.SampleRate)

	est := yin.NewEstimator(opts.WindowSize)
	var readings []Reading
	for start := 0; start+opts.WindowSize <= len(buf.Data); start += hop {
		window := buf.Data[start : start+opts.WindowSize]
		reading := Reading{
			Offset: time.Duration(float64(start) / sampleRate * float64(time.Second)),
		}
		if res, ok := est.Estimate(window, sampleRate, opts.Threshold); ok && res.Frequency > opts.MinFrequency {
			reading.Frequency = res.Frequency
			reading.Probability = res.Probability()
			reading.Voiced = true
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// decode reads the whole file as normalized mono samples.
func decode(r io.ReadSeeker) (*audio.FloatBuffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidFile
	}
	format := decoder.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFile)
	}

	chunk := &audio.IntBuffer{
		Format: format,
		Data:   make([]int, chunkFrames*format.NumChannels),
	}
	var pcm []int
	for {
		n, err := decoder.PCMBuffer(chunk)
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode pcm: %w", err)
			}
			break
		}
		// The last chunk may be short.
		pcm = append(pcm, chunk.Data[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode pcm: %w", err)
		}
	}

	all := &audio.IntBuffer{Format: format, Data: pcm, SourceBitDepth: int(decoder.BitDepth)}
	fb := all.AsFloatBuffer()
	if format.NumChannels > 1 {
		if err := transforms.MonoDownmix(fb); err != nil {
			return nil, fmt.Errorf("downmix: %w", err)
		}
	}
	transforms.NormalizeMax(fb)
	return fb, nil
}
