package playback

import "time"

// Clock provides the current time. It exists so tests can drive the
// scheduler with deterministic timestamps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// DefaultClock returns a Clock backed by time.Now.
func DefaultClock() Clock {
	return realClock{}
}
