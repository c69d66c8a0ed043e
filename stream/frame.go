package stream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Payload encodings understood by Frame.Encode.
const (
	FormatPNG = "png"
	FormatRaw = "raw"
)

// Frame is a grid of pixels produced by the synthetic generator.
type Frame struct {
	width  int
	height int
	pixels []colorful.Color
}

// NewFrame creates a new black Frame instance.
func NewFrame(width, height int) *Frame {
	f := new(Frame)
	f.width = width
	f.height = height
	f.pixels = make([]colorful.Color, width*height)
	return f
}

// Len returns the number of pixels.
func (f *Frame) Len() int {
	return len(f.pixels)
}

// Bounds returns the frame dimensions.
func (f *Frame) Bounds() (width, height int) {
	return f.width, f.height
}

// InterpolateFrame blends f towards f2; transitionPoint 0 is f, 1 is f2.
func (f *Frame) InterpolateFrame(f2 *Frame, transitionPoint float64) *Frame {
	out := NewFrame(f.width, f.height)
	for i := 0; i < len(f.pixels); i++ {
		out.pixels[i] = f.pixels[i].BlendHcl(f2.pixels[i], transitionPoint)
	}

	return out
}

// MarshalBinary converts a Frame into the LED wire format: a little-endian
// pixel count followed by one RGB triple per pixel.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	if len(f.pixels) > math.MaxUint16 {
		return nil, fmt.Errorf("too many pixels for the raw format: %d", len(f.pixels))
	}

	data = make([]byte, 2, (len(f.pixels)*3)+2)
	binary.LittleEndian.PutUint16(data, uint16(len(f.pixels)))
	for _, p := range f.pixels {
		r, g, b := p.Clamped().RGB255()
		data = append(data, r, g, b)
	}

	return data, nil
}

// Image renders the frame as an RGBA image.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for i, p := range f.pixels {
		img.Set(i%f.width, i/f.width, p.Clamped())
	}
	return img
}

// Encode produces a display payload in the given format.
func (f *Frame) Encode(format string) ([]byte, error) {
	switch format {
	case FormatRaw:
		return f.MarshalBinary()
	case FormatPNG, "":
		var buf bytes.Buffer
		if err := png.Encode(&buf, f.Image()); err != nil {
			return nil, fmt.Errorf("unable to encode PNG: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown payload format '%s'", format)
}
