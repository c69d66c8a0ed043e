package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/xsync"
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	}
	return fmt.Sprintf("unknown_state_%d", int(s))
}

// TickResult describes what a single Tick did.
type TickResult int

const (
	// TickIdle: not running, or nothing buffered and no stall yet.
	TickIdle TickResult = iota
	// TickStalled: nothing buffered for longer than the stall threshold.
	TickStalled
	// TickWaiting: the earliest frame is not due yet.
	TickWaiting
	// TickDisplayed: the next frame in sequence was displayed.
	TickDisplayed
	// TickForcedDisplayed: a frame was displayed across a gap that did not fill in time.
	TickForcedDisplayed
	// TickGap: the earliest frame is due but an earlier sequence is missing.
	TickGap
	// TickDiscardedStale: the earliest frame was already passed and got dropped.
	TickDiscardedStale
)

func (r TickResult) String() string {
	switch r {
	case TickIdle:
		return "idle"
	case TickStalled:
		return "stalled"
	case TickWaiting:
		return "waiting"
	case TickDisplayed:
		return "displayed"
	case TickForcedDisplayed:
		return "forced_displayed"
	case TickGap:
		return "gap"
	case TickDiscardedStale:
		return "discarded_stale"
	}
	return fmt.Sprintf("unknown_tick_result_%d", int(r))
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock makes the Scheduler read time from c instead of time.Now.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithTickSource drives the playback loop from ch instead of an internal
// timer. Each received value triggers one Tick.
func WithTickSource(ch <-chan time.Time) Option {
	return func(s *Scheduler) { s.tickSource = ch }
}

// Scheduler reorders frames delivered by producers and hands them to a
// Renderer at an adaptive, steady pace.
//
// Producers call OnFrameReceived from any goroutine. Frames are shown only
// from the tick loop, one tick after the other, so a frame is never displayed
// twice and never displayed out of order except when a gap is skipped.
// Start and Stop may be called from any goroutine; they are serialised.
type Scheduler struct {
	config     Config
	renderer   Renderer
	clock      Clock
	tickSource <-chan time.Time

	locker                xsync.Mutex
	buffer                *FrameBuffer
	rate                  *RateEstimator
	state                 State
	lastDisplayedSequence uint64
	lastFrameTime         time.Time
	lastArrival           time.Time
	lastExpected          time.Time
	currentInterval       time.Duration
	consecutiveDropCount  int
	stats                 Stats

	lifecycleLocker xsync.Mutex
	cancelFn        context.CancelFunc
	loopDone        chan struct{}
}

// NewScheduler creates an instance of a Scheduler. Zero fields of cfg are
// filled with defaults. The Scheduler starts in StateStopped.
func NewScheduler(cfg Config, renderer Renderer, opts ...Option) (*Scheduler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is not set")
	}

	s := new(Scheduler)
	s.config = cfg
	s.renderer = renderer
	s.clock = DefaultClock()
	for _, opt := range opts {
		opt(s)
	}

	s.buffer = NewFrameBuffer()
	s.rate = NewRateEstimator(cfg.WindowSize, cfg.FPSOffset, cfg.DefaultFPS)
	s.currentInterval = s.rate.Interval()
	s.lastFrameTime = s.clock.Now()
	s.lastArrival = s.lastFrameTime
	return s, nil
}

// Start resets all playback state and begins the tick loop. Calling Start on
// a running Scheduler restarts it.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycleLocker.Do(ctx, func() {
		s.stopLoop(ctx)

		loopCtx, cancelFn := context.WithCancel(ctx)
		done := make(chan struct{})
		s.cancelFn = cancelFn
		s.loopDone = done
		s.locker.Do(ctx, func() {
			s.resetLocked(s.clock.Now())
			s.state = StateRunning
		})
		logger.Debugf(ctx, "playback started at %d fps", s.config.DefaultFPS)

		observability.Go(ctx, func() {
			defer close(done)
			s.loop(loopCtx)
		})
	})
}

// Stop cancels the tick loop, waits for it to return and discards every
// buffered frame. Deliveries arriving afterwards are ignored.
func (s *Scheduler) Stop(ctx context.Context) {
	s.lifecycleLocker.Do(ctx, func() {
		s.stopLoop(ctx)
	})
}

// stopLoop must be called with lifecycleLocker held.
func (s *Scheduler) stopLoop(ctx context.Context) {
	s.locker.Do(ctx, func() {
		s.state = StateStopped
		s.buffer.Clear()
	})

	cancelFn, done := s.cancelFn, s.loopDone
	s.cancelFn, s.loopDone = nil, nil
	if cancelFn == nil {
		return
	}

	cancelFn()
	<-done
	logger.Debugf(ctx, "playback stopped")
}

func (s *Scheduler) resetLocked(now time.Time) {
	s.buffer.Clear()
	s.rate.Reset()
	s.currentInterval = s.rate.Interval()
	s.lastDisplayedSequence = 0
	s.lastFrameTime = now
	s.lastArrival = now
	s.lastExpected = time.Time{}
	s.consecutiveDropCount = 0
	s.stats = Stats{}
}

func (s *Scheduler) loop(ctx context.Context) {
	if s.tickSource != nil {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.tickSource:
				s.Tick(ctx)
			}
		}
	}

	t := time.NewTimer(s.config.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s.Tick(ctx)
		t.Reset(s.config.TickInterval)
	}
}

// OnFrameReceived accepts a frame delivered by a producer. It returns false
// if the frame was not buffered: the Scheduler is stopped or the sequence is
// already buffered.
func (s *Scheduler) OnFrameReceived(ctx context.Context, payload []byte, sequence uint64) bool {
	return s.OnFrameReceivedFrom(ctx, "", payload, sequence)
}

// OnFrameReceivedFrom is OnFrameReceived with the id of the delivering
// producer attached for diagnostics.
func (s *Scheduler) OnFrameReceivedFrom(
	ctx context.Context,
	producer string,
	payload []byte,
	sequence uint64,
) bool {
	return xsync.DoR1(ctx, &s.locker, func() bool {
		return s.onFrameReceivedLocked(ctx, producer, payload, sequence)
	})
}

func (s *Scheduler) onFrameReceivedLocked(
	ctx context.Context,
	producer string,
	payload []byte,
	sequence uint64,
) bool {
	if s.state != StateRunning {
		s.stats.Ignored++
		logger.Tracef(ctx, "not running, ignoring frame %d", sequence)
		return false
	}
	if s.buffer.Contains(sequence) {
		s.stats.Duplicates++
		logger.Tracef(ctx, "frame %d is already buffered, rejecting the duplicate", sequence)
		return false
	}

	now := s.clock.Now()
	s.stats.Received++
	if producer != "" {
		if s.stats.ByProducer == nil {
			s.stats.ByProducer = map[string]uint64{}
		}
		s.stats.ByProducer[producer]++
	}

	if s.rate.Sample(now.Sub(s.lastArrival)) {
		s.currentInterval = s.rate.Interval()
		logger.Debugf(ctx, "target frame rate is now %d fps (%v per frame)", s.rate.CurrentTargetFPS(), s.currentInterval)
	}
	s.lastArrival = now

	// never before arrival, never before an earlier insertion
	expected := s.lastFrameTime.Add(s.currentInterval)
	if expected.Before(now) {
		expected = now
	}
	if expected.Before(s.lastExpected) {
		expected = s.lastExpected
	}
	s.lastExpected = expected

	s.buffer.Insert(Frame{
		Sequence:            sequence,
		Payload:             payload,
		Producer:            producer,
		ArrivalTime:         now,
		ExpectedDisplayTime: expected,
	})
	logger.Tracef(ctx, "buffered frame %d from '%s', due at %v, %d buffered", sequence, producer, expected, s.buffer.Len())
	return true
}

// Tick runs one scheduling step and, if a frame became due, displays it.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	result, frame := xsync.DoR2(ctx, &s.locker, func() (TickResult, typing.Optional[Frame]) {
		return s.tickLocked(ctx, s.clock.Now())
	})
	if frame.IsSet() {
		s.renderer.Display(ctx, frame.Get().Payload)
	}
	return result
}

func (s *Scheduler) tickLocked(ctx context.Context, now time.Time) (TickResult, typing.Optional[Frame]) {
	if s.state != StateRunning {
		return TickIdle, typing.Optional[Frame]{}
	}

	head := s.buffer.PeekEarliest()
	if !head.IsSet() {
		if since := now.Sub(s.lastFrameTime); since > s.config.StallThreshold {
			logger.Debugf(ctx, "no frames for %v, resetting the frame timer", since)
			s.lastFrameTime = now
			s.stats.Stalls++
			return TickStalled, typing.Optional[Frame]{}
		}
		return TickIdle, typing.Optional[Frame]{}
	}

	f := head.Get()
	if now.Before(f.ExpectedDisplayTime) {
		return TickWaiting, typing.Optional[Frame]{}
	}

	next := s.lastDisplayedSequence + 1
	switch {
	case f.Sequence == next:
		return TickDisplayed, s.popForDisplayLocked(now)
	case f.Sequence < next:
		s.buffer.PopEarliest()
		s.stats.Stale++
		logger.Tracef(ctx, "frame %d is stale (last displayed %d), discarding", f.Sequence, s.lastDisplayedSequence)
		return TickDiscardedStale, typing.Optional[Frame]{}
	case s.consecutiveDropCount >= s.config.MaxConsecutiveDrops:
		logger.Debugf(ctx, "giving up on frames %d..%d, advancing to %d", next, f.Sequence-1, f.Sequence)
		s.stats.Forced++
		return TickForcedDisplayed, s.popForDisplayLocked(now)
	default:
		s.consecutiveDropCount++
		s.stats.GapTicks++
		logger.Tracef(ctx, "waiting for frame %d, %d buffered ahead (attempt %d/%d)", next, s.buffer.Len(), s.consecutiveDropCount, s.config.MaxConsecutiveDrops)
		return TickGap, typing.Optional[Frame]{}
	}
}

func (s *Scheduler) popForDisplayLocked(now time.Time) typing.Optional[Frame] {
	f := s.buffer.PopEarliest()
	s.lastDisplayedSequence = f.Get().Sequence
	s.lastFrameTime = now
	s.consecutiveDropCount = 0
	s.stats.Displayed++
	return f
}

// TargetFrameRate returns the frame rate the Scheduler currently aims for.
func (s *Scheduler) TargetFrameRate() int {
	return xsync.DoR1(context.TODO(), &s.locker, s.rate.CurrentTargetFPS)
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return xsync.DoR1(context.TODO(), &s.locker, func() State {
		return s.state
	})
}

// LastDisplayedSequence returns the sequence of the most recently displayed frame.
func (s *Scheduler) LastDisplayedSequence() uint64 {
	return xsync.DoR1(context.TODO(), &s.locker, func() uint64 {
		return s.lastDisplayedSequence
	})
}

// Buffered returns the number of frames waiting for display.
func (s *Scheduler) Buffered() int {
	return xsync.DoR1(context.TODO(), &s.locker, s.buffer.Len)
}

// Stats returns a snapshot of the playback counters.
func (s *Scheduler) Stats() Stats {
	return xsync.DoR1(context.TODO(), &s.locker, func() Stats {
		st := s.stats.clone()
		st.State = s.state.String()
		st.TargetFPS = s.rate.CurrentTargetFPS()
		st.Buffered = s.buffer.Len()
		st.LastDisplayedSequence = s.lastDisplayedSequence
		return st
	})
}

var _ FrameSink = (*Scheduler)(nil)
