package stream

import (
	"fmt"
	"os"
	"time"

	"github.com/matt-g-everett/framecast/comfy"
	"github.com/matt-g-everett/framecast/playback"
	"gopkg.in/yaml.v2"
)

// Producer kinds.
const (
	ProducerSynthetic = "synthetic"
	ProducerMqtt      = "mqtt"
	ProducerComfy     = "comfy"
)

// Renderer kinds.
const (
	RendererMqtt     = "mqtt"
	RendererTerminal = "ascii"
	RendererLog      = "log"
)

type Config struct {
	Mqtt struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		ClientID string `yaml:"clientId"`
		Topics   struct {
			Frames  string `yaml:"frames"`
			Display string `yaml:"display"`
		} `yaml:"topics"`
	} `yaml:"mqtt"`
	Playback playback.Config `yaml:"playback"`
	Producer struct {
		Kind      string          `yaml:"kind"`
		Synthetic GeneratorConfig `yaml:"synthetic"`
		Comfy     comfy.Config    `yaml:"comfy"`
	} `yaml:"producer"`
	Renderer struct {
		Kind  string `yaml:"kind"`
		Cols  int    `yaml:"cols"`
		Rows  int    `yaml:"rows"`
		Color bool   `yaml:"color"`
	} `yaml:"renderer"`
	Api struct {
		Listen string `yaml:"listen"`
		Static string `yaml:"static"`
	} `yaml:"api"`
	StatsInterval time.Duration `yaml:"statsInterval"`
}

// ReadConfig reads a YAML config file, fills in defaults and validates it.
func ReadConfig(path string) (Config, error) {
	var c Config
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("unable to open the config '%s': %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&c); err != nil {
		return c, fmt.Errorf("unable to parse the config '%s': %w", path, err)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyDefaults fills in zero fields.
func (c *Config) ApplyDefaults() {
	if c.Mqtt.ClientID == "" {
		c.Mqtt.ClientID = "framecast"
	}
	if c.Mqtt.Topics.Frames == "" {
		c.Mqtt.Topics.Frames = "framecast/frames"
	}
	if c.Mqtt.Topics.Display == "" {
		c.Mqtt.Topics.Display = "framecast/display"
	}
	c.Playback.ApplyDefaults()
	if c.Producer.Kind == "" {
		c.Producer.Kind = ProducerSynthetic
	}
	c.Producer.Synthetic.ApplyDefaults()
	if c.Renderer.Kind == "" {
		c.Renderer.Kind = RendererLog
	}
	if c.Renderer.Cols == 0 {
		c.Renderer.Cols = 80
	}
	if c.Renderer.Rows == 0 {
		c.Renderer.Rows = 24
	}
	if c.Api.Static == "" {
		c.Api.Static = "client/dist"
	}
	if c.StatsInterval == 0 {
		c.StatsInterval = 5 * time.Second
	}
}

// Validate checks the configuration is consistent.
func (c Config) Validate() error {
	if err := c.Playback.Validate(); err != nil {
		return err
	}

	switch c.Producer.Kind {
	case ProducerSynthetic:
		if err := c.Producer.Synthetic.Validate(); err != nil {
			return fmt.Errorf("synthetic producer: %w", err)
		}
	case ProducerComfy:
		if err := c.Producer.Comfy.Validate(); err != nil {
			return fmt.Errorf("comfy producer: %w", err)
		}
	case ProducerMqtt:
	default:
		return fmt.Errorf("unknown producer kind '%s'", c.Producer.Kind)
	}

	switch c.Renderer.Kind {
	case RendererTerminal:
		if c.Producer.Kind == ProducerSynthetic && c.Producer.Synthetic.Format == FormatRaw {
			return fmt.Errorf("the '%s' renderer cannot draw '%s' payloads", RendererTerminal, FormatRaw)
		}
	case RendererMqtt, RendererLog:
	default:
		return fmt.Errorf("unknown renderer kind '%s'", c.Renderer.Kind)
	}

	if c.NeedsMqtt() && c.Mqtt.URL == "" {
		return fmt.Errorf("mqtt.url is required for the '%s' producer and the '%s' renderer", c.Producer.Kind, c.Renderer.Kind)
	}
	return nil
}

// NeedsMqtt reports whether the configured producer or renderer uses the broker.
func (c Config) NeedsMqtt() bool {
	return c.Producer.Kind == ProducerMqtt || c.Renderer.Kind == RendererMqtt
}
