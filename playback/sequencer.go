package playback

import (
	"go.uber.org/atomic"
)

// Sequencer hands out sequence numbers to the submission side. It is shared by
// every producer feeding one Scheduler so that deliveries can be reordered
// into submission order. The first number handed out is 1.
type Sequencer struct {
	last atomic.Uint64
}

// NewSequencer creates an instance of a Sequencer.
func NewSequencer() *Sequencer {
	return new(Sequencer)
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.last.Inc()
}

// Reset makes the next call to Next return 1 again. Call it together with
// Scheduler.Start.
func (s *Sequencer) Reset() {
	s.last.Store(0)
}
