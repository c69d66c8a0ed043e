package comfy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/matt-g-everett/framecast/playback"
	"github.com/xaionaro-go/observability"
)

// Server is one ComfyUI instance, typically one GPU.
type Server struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	UnetName string `yaml:"unetName"`
}

// Config configures the ComfyUI producer.
type Config struct {
	Servers  []Server `yaml:"servers"`
	Workflow string   `yaml:"workflow"`
	Image    string   `yaml:"image"`
	Prompt   string   `yaml:"prompt"`
	Denoise  float64  `yaml:"denoise"`
	Nodes    Nodes    `yaml:"nodes"`
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("no ComfyUI servers configured")
	}
	if c.Workflow == "" {
		return fmt.Errorf("no workflow file configured")
	}
	if c.Denoise < 0 || c.Denoise > 1 {
		return fmt.Errorf("denoise %v is out of [0, 1]", c.Denoise)
	}
	return nil
}

// Producer runs one Client per configured server, all numbering their jobs
// from the same Sequencer.
type Producer struct {
	config   Config
	workflow Workflow
	image    string
	clients  []*Client

	rngLocker sync.Mutex
	rng       *rand.Rand
}

// NewProducer loads the workflow (and the input image, if any) and creates
// the clients.
func NewProducer(cfg Config, sequencer *playback.Sequencer, sink playback.FrameSink) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workflow, err := LoadWorkflow(cfg.Workflow)
	if err != nil {
		return nil, err
	}

	p := &Producer{
		config:   cfg,
		workflow: workflow,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
	if cfg.Image != "" {
		b, err := os.ReadFile(cfg.Image)
		if err != nil {
			return nil, fmt.Errorf("unable to read the input image '%s': %w", cfg.Image, err)
		}
		p.image = base64.StdEncoding.EncodeToString(b)
	}

	for i, srv := range cfg.Servers {
		name := srv.Name
		if name == "" {
			name = fmt.Sprintf("comfy%d", i)
		}
		c, err := NewClient(name, srv.URL, sequencer, sink)
		if err != nil {
			return nil, fmt.Errorf("server '%s': %w", name, err)
		}
		p.clients = append(p.clients, c)
	}
	return p, nil
}

// Clients returns the per-server clients.
func (p *Producer) Clients() []*Client {
	return p.clients
}

func (p *Producer) nextJob(srv Server) (Workflow, error) {
	p.rngLocker.Lock()
	seed := p.rng.Uint64()
	p.rngLocker.Unlock()

	return p.workflow.Apply(p.config.Nodes, Job{
		Seed:        seed,
		Prompt:      p.config.Prompt,
		Denoise:     p.config.Denoise,
		ImageBase64: p.image,
		UnetName:    srv.UnetName,
	})
}

// Run runs every client until ctx is cancelled or one of them fails.
func (p *Producer) Run(ctx context.Context) error {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	errCh := make(chan error, len(p.clients))
	for i, c := range p.clients {
		srv := p.config.Servers[i]
		c := c
		observability.Go(ctx, func() {
			err := c.Run(ctx, func() (Workflow, error) {
				return p.nextJob(srv)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf(ctx, "%s: %v", c.Name, err)
			}
			errCh <- err
		})
	}

	var result error
	for range p.clients {
		err := <-errCh
		if result == nil && err != nil && !errors.Is(err, context.Canceled) {
			result = err
		}
		cancelFn()
	}
	return result
}
