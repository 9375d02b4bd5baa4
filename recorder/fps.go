// Copyright © 2023 Sloan Childers
package recorder

import "math"

const (
	MaxFps = 120.0
	MinFps = 1.0
)

// FpsEstimator turns per-frame latency into an instantaneous rate and keeps a
// sliding window whose mean is the rate clips are written at. Networked
// cameras report a nominal rate that rarely matches what actually arrives.
type FpsEstimator struct {
	window  []float64
	next    int
	count   int
	current float64
	nominal float64
}

func NewFpsEstimator(capacity int, nominal float64) *FpsEstimator {
	if capacity < 1 {
		capacity = 1
	}
	return &FpsEstimator{window: make([]float64, capacity), nominal: clampFps(nominal)}
}

// Observe records one frame that took elapsedSeconds and returns the
// instantaneous rate, always finite and within [0, MaxFps].
func (x *FpsEstimator) Observe(elapsedSeconds float64) float64 {
	var fps float64
	switch {
	case math.IsNaN(elapsedSeconds), elapsedSeconds <= 1/MaxFps:
		fps = MaxFps
	case math.IsInf(elapsedSeconds, 1):
		fps = 0
	default:
		fps = 1 / elapsedSeconds
	}
	x.window[x.next] = fps
	x.next = (x.next + 1) % len(x.window)
	if x.count < len(x.window) {
		x.count++
	}
	x.current = fps
	return fps
}

func (x *FpsEstimator) Current() float64 {
	return x.current
}

// Average is the mean of the window, or the nominal rate before the first
// observation, and never below MinFps.
func (x *FpsEstimator) Average() float64 {
	if x.count == 0 {
		return x.nominal
	}
	sum := 0.0
	for i := 0; i < x.count; i++ {
		sum += x.window[i]
	}
	return clampFps(sum / float64(x.count))
}

func (x *FpsEstimator) Reset() {
	x.next = 0
	x.count = 0
	x.current = 0
}

func clampFps(fps float64) float64 {
	if math.IsNaN(fps) || fps < MinFps {
		return MinFps
	}
	if fps > MaxFps {
		return MaxFps
	}
	return fps
}
