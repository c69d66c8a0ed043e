package playback

import (
	"math"
	"time"
)

const (
	// MinFPS and MaxFPS bound the measured production rate before the offset
	// is applied.
	MinFPS = 1
	MaxFPS = 60
)

// RateEstimator turns frame inter-arrival times into a target display rate.
//
// Samples go into a fixed-size ring. Until the ring fills up the default rate
// is reported. After that every new sample recomputes the rate from the ring
// mean and adds a small positive offset, so playback runs slightly faster
// than production and the buffer does not grow without bound.
type RateEstimator struct {
	window     []time.Duration
	next       int
	full       bool
	offset     int
	defaultFPS int
	targetFPS  int
}

// NewRateEstimator creates an instance of a RateEstimator.
func NewRateEstimator(windowSize, offset, defaultFPS int) *RateEstimator {
	e := new(RateEstimator)
	e.window = make([]time.Duration, windowSize)
	e.offset = offset
	e.defaultFPS = defaultFPS
	e.targetFPS = defaultFPS
	return e
}

// Sample records the time elapsed since the previous frame arrived. It
// reports whether the target rate changed as a result.
func (e *RateEstimator) Sample(interArrival time.Duration) bool {
	e.window[e.next] = interArrival
	e.next++
	if e.next == len(e.window) {
		e.next = 0
		e.full = true
	}
	if !e.full {
		return false
	}

	target := measuredFPS(e.mean()) + e.offset
	if target == e.targetFPS {
		return false
	}
	e.targetFPS = target
	return true
}

func (e *RateEstimator) mean() time.Duration {
	var sum time.Duration
	for _, d := range e.window {
		sum += d
	}
	return sum / time.Duration(len(e.window))
}

func measuredFPS(mean time.Duration) int {
	if mean <= 0 {
		return MaxFPS
	}
	fps := math.Floor(float64(time.Second) / float64(mean))
	switch {
	case fps < MinFPS:
		return MinFPS
	case fps > MaxFPS:
		return MaxFPS
	}
	return int(fps)
}

// Full reports whether enough samples were collected to estimate the rate.
func (e *RateEstimator) Full() bool {
	return e.full
}

// CurrentTargetFPS returns the target display rate.
func (e *RateEstimator) CurrentTargetFPS() int {
	return e.targetFPS
}

// Interval returns the target time between two displayed frames.
func (e *RateEstimator) Interval() time.Duration {
	return time.Second / time.Duration(e.targetFPS)
}

// Reset drops all samples and goes back to the default rate.
func (e *RateEstimator) Reset() {
	for i := range e.window {
		e.window[i] = 0
	}
	e.next = 0
	e.full = false
	e.targetFPS = e.defaultFPS
}
