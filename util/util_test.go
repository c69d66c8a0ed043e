package util

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLutIsSymmetricPulse(t *testing.T) {
	lut := GenerateLut(10)
	assert.Len(t, lut, 10)
	assert.Equal(t, 0.0, lut[0])
	assert.Equal(t, 0.0, lut[9])
	for i := 0; i < 5; i++ {
		assert.Equal(t, lut[i], lut[9-i])
	}
	for i := 1; i < 5; i++ {
		assert.Greater(t, lut[i], lut[i-1])
	}
	assert.LessOrEqual(t, lut[4], 1.0)
}

func TestLutAtWraps(t *testing.T) {
	lut := GenerateLut(10)
	assert.Equal(t, lut[2], lut.At(0.25))
	assert.Equal(t, lut[2], lut.At(1.25))
	assert.Equal(t, lut[7], lut.At(-0.25))
	assert.Equal(t, Lut{0}, GenerateLut(1))
}

func TestRandomBetween(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		v := RandomBetween(rng, 0.2, 0.5)
		assert.GreaterOrEqual(t, v, 0.2)
		assert.Less(t, v, 0.5)
	}
}
