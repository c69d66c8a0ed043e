package render

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"go.uber.org/atomic"
)

// Log is a renderer that only reports what it was given. It is handy for
// running without a display.
type Log struct {
	displayed atomic.Uint64
	bytes     atomic.Uint64
}

// NewLog creates an instance of a Log renderer.
func NewLog() *Log {
	return new(Log)
}

// Display counts payload and logs its size at Debug.
func (l *Log) Display(ctx context.Context, payload []byte) {
	n := l.displayed.Inc()
	total := l.bytes.Add(uint64(len(payload)))
	logger.Debugf(ctx, "display #%d: %s (%s so far)", n, humanize.Bytes(uint64(len(payload))), humanize.Bytes(total))
}

// Counters returns the number of frames and bytes displayed.
func (l *Log) Counters() (displayed, bytes uint64) {
	return l.displayed.Load(), l.bytes.Load()
}
