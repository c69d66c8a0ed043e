package stream

import (
	"math"
)

// A GradientTrail is an Animation that scrolls a gradient diagonally across
// the frame.
type GradientTrail struct {
	gradient    GradientTable
	trailLength float64
	speed       float64
	current     float64
}

// NewGradientTrail creates an instance of a GradientTrail object. speed is
// in pixels per second.
func NewGradientTrail(gradient GradientTable, trailLength int, speed float64) *GradientTrail {
	g := new(GradientTrail)
	g.gradient = gradient
	g.trailLength = float64(trailLength)
	g.speed = speed
	return g
}

// CalculateFrame creates a new Frame instance.
func (g *GradientTrail) CalculateFrame(width, height int, runtimeMs int64) *Frame {
	f := NewFrame(width, height)
	g.current = math.Mod(g.speed*float64(runtimeMs)/1000, g.trailLength)
	for i := range f.pixels {
		x, y := i%width, i/width
		pos := float64(x+y) + g.trailLength - g.current
		t := math.Mod(pos, g.trailLength) / g.trailLength
		f.pixels[i] = g.gradient.At(t)
	}

	return f
}
