// Package yin estimates the fundamental frequency of a window of time-domain
// samples with the YIN algorithm: a cumulative mean normalized difference
// function, an absolute threshold search and parabolic refinement of the lag.
package yin

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// DefaultThreshold is the absolute threshold used when none in (0, 1) is given.
	DefaultThreshold = 0.4

	// minSamples is the shortest window that still has a lag range to search.
	minSamples = 4
)

// Result is a single pitch estimate.
type Result struct {
	Frequency    float64 // Hz
	Lag          float64 // refined period in samples, within [1, N/2]
	Aperiodicity float64 // normalized difference at the chosen lag
}

// Probability returns the certainty of the estimate in [0, 1].
func (r Result) Probability() float64 {
	return core.Clamp(1-r.Aperiodicity, 0, 1)
}

// Estimator runs YIN and keeps its difference buffer between calls so a
// recurring analysis does not allocate once the window size settles.
type Estimator struct {
	cmnd []float64
}

// NewEstimator returns an Estimator sized for windows of windowSize samples.
func NewEstimator(windowSize int) *Estimator {
	if windowSize < 0 {
		windowSize = 0
	}
	return &Estimator{cmnd: make([]float64, windowSize/2+1)}
}

// Estimate is a convenience wrapper around a throwaway Estimator.
func Estimate(samples []float64, sampleRate, threshold float64) (Result, bool) {
	var e Estimator
	return e.Estimate(samples, sampleRate, threshold)
}

// Estimate returns the fundamental frequency of samples, or false when no
// period can be found (silence, constant input, or a window too short to
// search). The samples are not modified.
func (e *Estimator) Estimate(samples []float64, sampleRate, threshold float64) (Result, bool) {
	n := len(samples)
	if n < minSamples || !(sampleRate > 0) {
		return Result{}, false
	}
	if !(threshold > 0 && threshold < 1) {
		threshold = DefaultThreshold
	}

	half := n / 2
	e.cmnd = core.EnsureLen(e.cmnd, half+1)
	d := e.cmnd

	difference(samples, d, half)
	cumulativeMeanNormalize(d, half)

	tau, ok := absoluteThreshold(d, half, threshold)
	if !ok {
		return Result{}, false
	}

	lag := parabolicLag(d, tau, half)
	return Result{
		Frequency:    sampleRate / lag,
		Lag:          lag,
		Aperiodicity: d[tau],
	}, true
}

// difference fills d[1..half] with the squared difference of x against
// itself shifted by tau, over the full overlap of the window.
func difference(x, d []float64, half int) {
	n := len(x)
	d[0] = 0
	for tau := 1; tau <= half; tau++ {
		var sum float64
		for i := 0; i < n-tau; i++ {
			delta := x[i] - x[i+tau]
			sum += delta * delta
		}
		d[tau] = sum
	}
}

// cumulativeMeanNormalize rewrites d in place as d'(tau) = d(tau)*tau/S(tau).
// A zero running sum leaves d'(tau) at 1.
func cumulativeMeanNormalize(d []float64, half int) {
	d[0] = 1
	var running float64
	for tau := 1; tau <= half; tau++ {
		running += d[tau]
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] *= float64(tau) / running
	}
}

// absoluteThreshold returns the first local minimum below threshold, starting
// at lag 2. Failing that it falls back to the global minimum, provided the
// curve dips below 1 at all.
func absoluteThreshold(d []float64, half int, threshold float64) (int, bool) {
	for tau := 2; tau <= half; tau++ {
		if d[tau] < threshold {
			for tau+1 <= half && d[tau+1] < d[tau] {
				tau++
			}
			return tau, true
		}
	}

	best := -1
	for tau := 2; tau <= half; tau++ {
		if d[tau] < 1 && (best < 0 || d[tau] < d[best]) {
			best = tau
		}
	}
	return best, best >= 0
}

// parabolicLag refines tau to a fractional lag from its two neighbours.
// Edges and flat neighbourhoods keep the integer lag.
func parabolicLag(d []float64, tau, half int) float64 {
	if tau < 1 || tau >= half {
		return float64(tau)
	}

	s0, s1, s2 := d[tau-1], d[tau], d[tau+1]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return float64(tau)
	}

	// Limit shift estimation to plus/minus half a sample.
	shift := core.Clamp((s2-s0)/denom, -0.5, 0.5)
	return core.Clamp(float64(tau)+shift, 1, float64(half))
}
