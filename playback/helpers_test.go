package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
)

func testContext(t *testing.T) context.Context {
	l := logrus.Default().WithLevel(logger.LevelTrace)
	ctx := logger.CtxWithLogger(context.Background(), l)
	t.Cleanup(func() { belt.Flush(ctx) })
	return ctx
}

type fakeClock struct {
	locker sync.Mutex
	now    time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.locker.Lock()
	defer c.locker.Unlock()
	c.now = c.now.Add(d)
}

type recordingRenderer struct {
	locker   sync.Mutex
	payloads []string
}

func (r *recordingRenderer) Display(_ context.Context, payload []byte) {
	r.locker.Lock()
	defer r.locker.Unlock()
	r.payloads = append(r.payloads, string(payload))
}

func (r *recordingRenderer) Displayed() []string {
	r.locker.Lock()
	defer r.locker.Unlock()
	return append([]string(nil), r.payloads...)
}
