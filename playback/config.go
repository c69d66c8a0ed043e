package playback

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned (wrapped) by Config.Validate.
var ErrInvalidConfig = errors.New("invalid playback config")

// Config tunes the Scheduler.
type Config struct {
	DefaultFPS          int           `yaml:"defaultFps"`
	WindowSize          int           `yaml:"windowSize"`
	FPSOffset           int           `yaml:"fpsOffset"`
	TickInterval        time.Duration `yaml:"tickInterval"`
	StallThreshold      time.Duration `yaml:"stallThreshold"`
	MaxConsecutiveDrops int           `yaml:"maxConsecutiveDrops"`
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		DefaultFPS:          24,
		WindowSize:          5,
		FPSOffset:           3,
		TickInterval:        16 * time.Millisecond,
		StallThreshold:      time.Second,
		MaxConsecutiveDrops: 5,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.DefaultFPS == 0 {
		c.DefaultFPS = def.DefaultFPS
	}
	if c.WindowSize == 0 {
		c.WindowSize = def.WindowSize
	}
	if c.FPSOffset == 0 {
		c.FPSOffset = def.FPSOffset
	}
	if c.TickInterval == 0 {
		c.TickInterval = def.TickInterval
	}
	if c.StallThreshold == 0 {
		c.StallThreshold = def.StallThreshold
	}
	if c.MaxConsecutiveDrops == 0 {
		c.MaxConsecutiveDrops = def.MaxConsecutiveDrops
	}
}

// Validate checks the values are within the supported ranges.
func (c Config) Validate() error {
	if c.DefaultFPS < MinFPS || c.DefaultFPS > MaxFPS {
		return fmt.Errorf("%w: defaultFps %d is out of [%d, %d]", ErrInvalidConfig, c.DefaultFPS, MinFPS, MaxFPS)
	}
	if c.WindowSize < 5 || c.WindowSize > 10 {
		return fmt.Errorf("%w: windowSize %d is out of [5, 10]", ErrInvalidConfig, c.WindowSize)
	}
	if c.FPSOffset < 1 || c.FPSOffset > 3 {
		return fmt.Errorf("%w: fpsOffset %d is out of [1, 3]", ErrInvalidConfig, c.FPSOffset)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tickInterval must be positive", ErrInvalidConfig)
	}
	if c.StallThreshold <= 0 {
		return fmt.Errorf("%w: stallThreshold must be positive", ErrInvalidConfig)
	}
	if c.MaxConsecutiveDrops < 1 {
		return fmt.Errorf("%w: maxConsecutiveDrops must be at least 1", ErrInvalidConfig)
	}
	return nil
}
