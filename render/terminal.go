package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/nfnt/resize"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

var chars = []byte(" .,:;i1tfLCG08@")

const (
	ansiHome  = "\x1b[H"
	ansiReset = "\x1b[0m"
)

// Terminal draws each displayed image as ASCII art on a text terminal.
// Payloads must be PNG or JPEG.
type Terminal struct {
	out    io.Writer
	cols   int
	rows   int
	aspect float64
	color  bool

	locker xsync.Mutex
	drawn  atomic.Uint64
	failed atomic.Uint64
}

// NewTerminal creates an instance of a Terminal drawing into a cols x rows
// character area of out. With color set every character carries a
// 24-bit foreground color.
func NewTerminal(out io.Writer, cols, rows int, color bool) *Terminal {
	t := new(Terminal)
	t.out = out
	t.cols = cols
	t.rows = rows
	// character cells are about twice as tall as they are wide
	t.aspect = 2.0
	t.color = color
	return t
}

// Display decodes payload and redraws the screen.
func (t *Terminal) Display(ctx context.Context, payload []byte) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		t.failed.Inc()
		logger.Warnf(ctx, "unable to decode a frame of %d bytes: %v", len(payload), err)
		return
	}

	var buf bytes.Buffer
	t.draw(&buf, img)

	t.locker.Do(ctx, func() {
		_, err = t.out.Write(buf.Bytes())
	})
	if err != nil {
		t.failed.Inc()
		logger.Errorf(ctx, "unable to write to the terminal: %v", err)
		return
	}
	t.drawn.Inc()
}

func (t *Terminal) fit(bounds image.Rectangle) (uint, uint) {
	imgW, imgH := float64(bounds.Dx())*t.aspect, float64(bounds.Dy())
	if imgW == 0 || imgH == 0 {
		return 0, 0
	}

	fitW, fitH := float64(t.cols)/imgW, float64(t.rows)/imgH
	if fitW < fitH {
		return uint(imgW * fitW), uint(imgH * fitW)
	}
	return uint(imgW * fitH), uint(imgH * fitH)
}

func (t *Terminal) draw(buf *bytes.Buffer, img image.Image) {
	buf.WriteString(ansiHome)

	scaleW, scaleH := t.fit(img.Bounds())
	if scaleW == 0 || scaleH == 0 {
		return
	}
	scaled := resize.Resize(scaleW, scaleH, img, resize.Bilinear)

	bounds := scaled.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := scaled.At(x, y)
			if t.color {
				r, g, b, _ := c.RGBA()
				fmt.Fprintf(buf, "\x1b[38;2;%d;%d;%dm", r>>8, g>>8, b>>8)
			}
			k, _, _, _ := color.GrayModel.Convert(c).RGBA()
			buf.WriteByte(chars[int(k)*(len(chars)-1)/0xffff])
		}
		if t.color {
			buf.WriteString(ansiReset)
		}
		buf.WriteString("\r\n")
	}
}

// Counters returns how many frames were drawn and how many failed.
func (t *Terminal) Counters() (drawn, failed uint64) {
	return t.drawn.Load(), t.failed.Load()
}
