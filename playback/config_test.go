package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{FPSOffset: 1}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	def := DefaultConfig()
	assert.Equal(t, 1, cfg.FPSOffset)
	assert.Equal(t, def.WindowSize, cfg.WindowSize)
	assert.Equal(t, def.TickInterval, cfg.TickInterval)
	assert.Equal(t, time.Second, cfg.StallThreshold)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"fps":       func(c *Config) { c.DefaultFPS = 61 },
		"window":    func(c *Config) { c.WindowSize = 11 },
		"offset":    func(c *Config) { c.FPSOffset = 4 },
		"tick":      func(c *Config) { c.TickInterval = -time.Millisecond },
		"stall":     func(c *Config) { c.StallThreshold = -time.Second },
		"max_drops": func(c *Config) { c.MaxConsecutiveDrops = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
