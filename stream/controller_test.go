package stream

import (
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type solid colorful.Color

func (s solid) CalculateFrame(width, height int, _ int64) *Frame {
	f := NewFrame(width, height)
	for i := range f.pixels {
		f.pixels[i] = colorful.Color(s)
	}
	return f
}

func TestControllerCrossfades(t *testing.T) {
	red := solid{R: 1}
	blue := solid{B: 1}
	c := NewController(100*time.Millisecond, 50*time.Millisecond, red, blue)

	f, err := c.CalculateFrame(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, colorful.Color(red), f.pixels[0])
	assert.Equal(t, 0, c.Current())

	// halfway through the crossfade
	_, err = c.CalculateFrame(1, 1, 100)
	require.NoError(t, err)
	f, err = c.CalculateFrame(1, 1, 125)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Current())
	assert.NotEqual(t, colorful.Color(red), f.pixels[0])
	assert.NotEqual(t, colorful.Color(blue), f.pixels[0])

	f, err = c.CalculateFrame(1, 1, 150)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Current())
	assert.Equal(t, colorful.Color(blue), f.pixels[0])

	// and back round to the first one
	_, err = c.CalculateFrame(1, 1, 250)
	require.NoError(t, err)
	f, err = c.CalculateFrame(1, 1, 300)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Current())
	assert.Equal(t, colorful.Color(red), f.pixels[0])
}

func TestControllerSingleAnimation(t *testing.T) {
	c := NewController(10*time.Millisecond, 0, solid{G: 1})
	for ms := int64(0); ms < 100; ms += 7 {
		f, err := c.CalculateFrame(2, 2, ms)
		require.NoError(t, err)
		assert.Equal(t, colorful.Color{G: 1}, f.pixels[3])
	}
	assert.Equal(t, 0, c.Current())
}

func TestControllerWithoutAnimations(t *testing.T) {
	_, err := NewController(time.Second, time.Second).CalculateFrame(1, 1, 0)
	require.Error(t, err)
}
