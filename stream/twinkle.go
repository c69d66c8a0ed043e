package stream

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/matt-g-everett/framecast/util"
)

type twinkleParticle struct {
	pixel  int
	phase  float64
	period float64
}

// A Twinkle is an Animation that pulses random particles over a background.
type Twinkle struct {
	numParticles int
	foreColour   colorful.Color
	backColour   colorful.Color
	lut          util.Lut
	rng          *rand.Rand

	particles []twinkleParticle
	numPixels int
}

// NewTwinkle creates an instance of a Twinkle object.
func NewTwinkle(numParticles int, foreColour, backColour colorful.Color, seed int64) *Twinkle {
	t := new(Twinkle)
	t.numParticles = numParticles
	t.foreColour = foreColour
	t.backColour = backColour
	t.lut = util.GenerateLut(64)
	t.rng = rand.New(rand.NewSource(seed))
	return t
}

func (t *Twinkle) scatter(numPixels int) {
	t.numPixels = numPixels
	t.particles = make([]twinkleParticle, t.numParticles)
	for i := range t.particles {
		t.particles[i] = twinkleParticle{
			pixel:  t.rng.Intn(numPixels),
			phase:  t.rng.Float64(),
			period: util.RandomBetween(t.rng, 600, 2400),
		}
	}
}

// CalculateFrame creates a new Frame instance.
func (t *Twinkle) CalculateFrame(width, height int, runtimeMs int64) *Frame {
	f := NewFrame(width, height)
	if len(f.pixels) == 0 {
		return f
	}
	if t.particles == nil || t.numPixels != len(f.pixels) {
		t.scatter(len(f.pixels))
	}

	for i := range f.pixels {
		f.pixels[i] = t.backColour
	}
	for _, p := range t.particles {
		gain := t.lut.At(p.phase + float64(runtimeMs)/p.period)
		f.pixels[p.pixel] = t.backColour.BlendHcl(t.foreColour, gain)
	}

	return f
}
