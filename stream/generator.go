package stream

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/matt-g-everett/framecast/playback"
	"github.com/matt-g-everett/framecast/util"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// WorkerConfig describes one simulated producer.
type WorkerConfig struct {
	Name            string        `yaml:"name"`
	MinLatency      time.Duration `yaml:"minLatency"`
	MaxLatency      time.Duration `yaml:"maxLatency"`
	LossProbability float64       `yaml:"lossProbability"`
}

// GeneratorConfig configures the synthetic producer.
type GeneratorConfig struct {
	Workers        []WorkerConfig `yaml:"workers"`
	Width          int            `yaml:"width"`
	Height         int            `yaml:"height"`
	Format         string         `yaml:"format"`
	AnimationTime  time.Duration  `yaml:"animationTime"`
	TransitionTime time.Duration  `yaml:"transitionTime"`
	Seed           int64          `yaml:"seed"`
}

// ApplyDefaults fills in zero fields.
func (c *GeneratorConfig) ApplyDefaults() {
	if len(c.Workers) == 0 {
		c.Workers = []WorkerConfig{
			{Name: "gpu0", MinLatency: 80 * time.Millisecond, MaxLatency: 140 * time.Millisecond},
			{Name: "gpu1", MinLatency: 100 * time.Millisecond, MaxLatency: 220 * time.Millisecond},
		}
	}
	for i := range c.Workers {
		if c.Workers[i].Name == "" {
			c.Workers[i].Name = fmt.Sprintf("worker%d", i)
		}
	}
	if c.Width == 0 {
		c.Width = 64
	}
	if c.Height == 0 {
		c.Height = 36
	}
	if c.Format == "" {
		c.Format = FormatPNG
	}
	if c.AnimationTime == 0 {
		c.AnimationTime = 20 * time.Second
	}
	if c.TransitionTime == 0 {
		c.TransitionTime = 3 * time.Second
	}
}

// Validate checks the configuration is usable.
func (c GeneratorConfig) Validate() error {
	if len(c.Workers) == 0 {
		return fmt.Errorf("no workers configured")
	}
	for _, w := range c.Workers {
		if w.MinLatency < 0 || w.MaxLatency < w.MinLatency {
			return fmt.Errorf("worker '%s': latency range %v..%v is invalid", w.Name, w.MinLatency, w.MaxLatency)
		}
		if w.LossProbability < 0 || w.LossProbability > 1 {
			return fmt.Errorf("worker '%s': loss probability %v is outside [0, 1]", w.Name, w.LossProbability)
		}
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size %dx%d is invalid", c.Width, c.Height)
	}
	switch c.Format {
	case FormatPNG, FormatRaw:
	default:
		return fmt.Errorf("unknown payload format '%s'", c.Format)
	}
	return nil
}

type job struct {
	sequence uint64
	payload  []byte
	latency  time.Duration
	lost     bool
}

// Generator simulates a pool of producers with uneven latency. Every worker
// takes a sequence number, renders the animation at that moment and
// delivers the picture after a random delay, so deliveries from different
// workers overtake each other.
type Generator struct {
	config    GeneratorConfig
	sequencer *playback.Sequencer
	sink      playback.FrameSink

	locker     xsync.Mutex
	controller *Controller
	rng        *rand.Rand
	startTime  time.Time

	generated atomic.Uint64
	delivered atomic.Uint64
	lost      atomic.Uint64
	bytes     atomic.Uint64
}

// NewGenerator creates an instance of a Generator.
func NewGenerator(cfg GeneratorConfig, sequencer *playback.Sequencer, sink playback.FrameSink) (*Generator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := new(Generator)
	g.config = cfg
	g.sequencer = sequencer
	g.sink = sink
	g.rng = rand.New(rand.NewSource(seed))
	g.controller = NewController(cfg.AnimationTime, cfg.TransitionTime, DefaultAnimations(seed)...)
	g.startTime = time.Now()
	return g, nil
}

func (g *Generator) nextJob(ctx context.Context, w WorkerConfig) (job, error) {
	var (
		j     job
		frame *Frame
		err   error
	)
	g.locker.Do(ctx, func() {
		j.sequence = g.sequencer.Next()
		runtimeMs := time.Since(g.startTime).Milliseconds()
		frame, err = g.controller.CalculateFrame(g.config.Width, g.config.Height, runtimeMs)
		j.latency = time.Duration(util.RandomBetween(g.rng, float64(w.MinLatency), float64(w.MaxLatency)))
		j.lost = g.rng.Float64() < w.LossProbability
	})
	if err != nil {
		return j, fmt.Errorf("unable to render frame %d: %w", j.sequence, err)
	}

	j.payload, err = frame.Encode(g.config.Format)
	if err != nil {
		return j, fmt.Errorf("unable to encode frame %d: %w", j.sequence, err)
	}
	g.generated.Inc()
	return j, nil
}

// Run starts every worker and blocks until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, w := range g.config.Workers {
		w := w
		wg.Add(1)
		observability.Go(ctx, func() {
			defer wg.Done()
			g.runWorker(ctx, w)
		})
	}
	wg.Wait()
	return ctx.Err()
}

func (g *Generator) runWorker(ctx context.Context, w WorkerConfig) {
	logger.Debugf(ctx, "%s: started with latency %v..%v", w.Name, w.MinLatency, w.MaxLatency)
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for {
		j, err := g.nextJob(ctx, w)
		if err != nil {
			logger.Errorf(ctx, "%s: %v", w.Name, err)
			return
		}

		timer.Reset(j.latency)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if j.lost {
			g.lost.Inc()
			logger.Tracef(ctx, "%s: frame %d lost", w.Name, j.sequence)
			continue
		}

		g.delivered.Inc()
		g.bytes.Add(uint64(len(j.payload)))
		logger.Tracef(ctx, "%s: delivering frame %d (%s) after %v", w.Name, j.sequence, humanize.Bytes(uint64(len(j.payload))), j.latency)
		g.sink.OnFrameReceivedFrom(ctx, w.Name, j.payload, j.sequence)
	}
}

// GeneratorCounters is a snapshot of the Generator's counters.
type GeneratorCounters struct {
	Generated uint64 `json:"generated"`
	Delivered uint64 `json:"delivered"`
	Lost      uint64 `json:"lost"`
	Bytes     uint64 `json:"bytes"`
}

// Counters returns a snapshot of the Generator's counters.
func (g *Generator) Counters() GeneratorCounters {
	return GeneratorCounters{
		Generated: g.generated.Load(),
		Delivered: g.delivered.Load(),
		Lost:      g.lost.Load(),
		Bytes:     g.bytes.Load(),
	}
}
