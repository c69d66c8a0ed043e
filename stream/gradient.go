package stream

import (
	"github.com/lucasb-eyer/go-colorful"
)

// GradientStop pins a colour to a position in [0, 1].
type GradientStop struct {
	Colour colorful.Color
	Pos    float64
}

// GradientTable is a list of stops in ascending position. Colours between
// stops are blended in HCL space.
type GradientTable []GradientStop

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultGradient runs once around the colour wheel and back to its start.
var DefaultGradient = GradientTable{
	{mustHex("#ff3f8e"), 0.0},
	{mustHex("#e8202a"), 0.14},
	{mustHex("#f28c1c"), 0.28},
	{mustHex("#f5e12a"), 0.42},
	{mustHex("#2fc45a"), 0.56},
	{mustHex("#20c9c0"), 0.70},
	{mustHex("#2a5bea"), 0.84},
	{mustHex("#8a3ae0"), 0.92},
	{mustHex("#ff3f8e"), 1.0},
}

// At returns the colour at t. Positions outside the table take the nearest
// end stop.
func (g GradientTable) At(t float64) colorful.Color {
	if len(g) == 0 {
		return colorful.Color{}
	}
	if t <= g[0].Pos {
		return g[0].Colour
	}
	for i := 0; i < len(g)-1; i++ {
		c1, c2 := g[i], g[i+1]
		if t <= c2.Pos {
			if t == c2.Pos {
				return c2.Colour
			}
			return c1.Colour.BlendHcl(c2.Colour, (t-c1.Pos)/(c2.Pos-c1.Pos)).Clamped()
		}
	}
	return g[len(g)-1].Colour
}
