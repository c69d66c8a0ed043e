package stream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matt-g-everett/framecast/playback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfig(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  url: tcp://broker:1883
  topics:
    display: leds/frames
playback:
  defaultFps: 30
  tickInterval: 10ms
producer:
  kind: synthetic
  synthetic:
    workers:
      - name: gpu0
        minLatency: 50ms
        maxLatency: 90ms
        lossProbability: 0.1
    format: raw
renderer:
  kind: mqtt
api:
  listen: ":8080"
`)
	c, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", c.Mqtt.URL)
	assert.Equal(t, "leds/frames", c.Mqtt.Topics.Display)
	assert.Equal(t, "framecast/frames", c.Mqtt.Topics.Frames)
	assert.Equal(t, 30, c.Playback.DefaultFPS)
	assert.Equal(t, 10*time.Millisecond, c.Playback.TickInterval)
	assert.Equal(t, 5, c.Playback.WindowSize)
	assert.Equal(t, []WorkerConfig{{Name: "gpu0", MinLatency: 50 * time.Millisecond, MaxLatency: 90 * time.Millisecond, LossProbability: 0.1}}, c.Producer.Synthetic.Workers)
	assert.Equal(t, FormatRaw, c.Producer.Synthetic.Format)
	assert.Equal(t, RendererMqtt, c.Renderer.Kind)
	assert.Equal(t, ":8080", c.Api.Listen)
	assert.Equal(t, "client/dist", c.Api.Static)
	assert.True(t, c.NeedsMqtt())
}

func TestReadConfigDefaults(t *testing.T) {
	c, err := ReadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, ProducerSynthetic, c.Producer.Kind)
	assert.Equal(t, RendererLog, c.Renderer.Kind)
	assert.Equal(t, 5*time.Second, c.StatsInterval)
	assert.Equal(t, 80, c.Renderer.Cols)
	assert.Equal(t, 24, c.Renderer.Rows)
	assert.False(t, c.NeedsMqtt())
}

func TestReadConfigErrors(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ReadConfig(writeConfig(t, "producer: [\n"))
	require.Error(t, err)

	_, err = ReadConfig(writeConfig(t, "producer:\n  kind: carrier-pigeon\n"))
	require.Error(t, err)

	_, err = ReadConfig(writeConfig(t, "renderer:\n  kind: mqtt\n"))
	require.ErrorContains(t, err, "mqtt.url")

	_, err = ReadConfig(writeConfig(t, "playback:\n  windowSize: 50\n"))
	require.ErrorIs(t, err, playback.ErrInvalidConfig)

	_, err = ReadConfig(writeConfig(t, "producer:\n  synthetic:\n    format: raw\nrenderer:\n  kind: ascii\n"))
	require.Error(t, err)

	_, err = ReadConfig(writeConfig(t, "producer:\n  kind: comfy\n"))
	require.Error(t, err)
}
