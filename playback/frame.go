package playback

import (
	"context"
	"time"
)

// Frame is a single displayable unit awaiting presentation.
type Frame struct {
	Sequence            uint64
	Payload             []byte
	Producer            string
	ArrivalTime         time.Time
	ExpectedDisplayTime time.Time
}

// Renderer is a display sink. Display must not block for long: the scheduler
// calls it from the tick loop and does not wait for any acknowledgement.
type Renderer interface {
	Display(ctx context.Context, payload []byte)
}

// FrameSink accepts frames from producers. Scheduler implements it.
type FrameSink interface {
	OnFrameReceivedFrom(ctx context.Context, producer string, payload []byte, sequence uint64) bool
}
