package util

import (
	"math/rand"

	"github.com/fogleman/ease"
)

// RandomBetween returns a uniformly distributed value in [min, max).
func RandomBetween(rng *rand.Rand, min float64, max float64) float64 {
	return rng.Float64()*(max-min) + min
}

// Lut is a precomputed curve sampled at equal steps.
type Lut []float64

// GenerateLut builds a symmetric pulse: it eases in from 0 to 1 over the
// first half and back out to 0 over the second half.
func GenerateLut(length int) Lut {
	if length < 2 {
		return Lut{0}
	}
	increment := 1.0 / float64(length/2)
	lut := make(Lut, length)
	for i, j := 0, length-1; i < length/2; i, j = i+1, j-1 {
		value := float64(i) * increment
		lut[i] = ease.InOutQuad(value)
		lut[j] = ease.InOutQuad(value)
	}
	return lut
}

// At samples the curve at phase, wrapping phase into [0, 1).
func (l Lut) At(phase float64) float64 {
	phase -= float64(int64(phase))
	if phase < 0 {
		phase++
	}
	return l[int(phase*float64(len(l)))%len(l)]
}
