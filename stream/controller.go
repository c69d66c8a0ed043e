package stream

import (
	"fmt"
	"time"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"
)

// Controller cycles through animations, crossfading from one to the next.
type Controller struct {
	animations     []Animation
	current        int
	next           int
	animationTime  time.Duration
	transitionTime time.Duration

	cycleStartMs      int64
	transitionStartMs int64
	transitioning     bool
}

// NewController creates an instance of a Controller. Each animation runs for
// animationTime before a crossfade of transitionTime to the next one.
func NewController(animationTime, transitionTime time.Duration, animations ...Animation) *Controller {
	c := new(Controller)
	c.animations = animations
	c.animationTime = animationTime
	c.transitionTime = transitionTime
	return c
}

// DefaultAnimations returns the gradient-trail and twinkle pair.
func DefaultAnimations(seed int64) []Animation {
	backColour, _ := colorful.Hex("#000005")
	foreColour, _ := colorful.Hex("#808080")
	return []Animation{
		NewGradientTrail(DefaultGradient, 48, 12),
		NewTwinkle(40, foreColour, backColour, seed),
	}
}

// Current returns the index of the animation being shown. During a
// crossfade it is the animation being faded out.
func (c *Controller) Current() int {
	return c.current
}

// CalculateFrame renders the picture at runtimeMs. Calls are expected with
// non-decreasing runtimeMs.
func (c *Controller) CalculateFrame(width, height int, runtimeMs int64) (*Frame, error) {
	if len(c.animations) == 0 {
		return nil, fmt.Errorf("no animations configured")
	}

	if !c.transitioning && len(c.animations) > 1 &&
		time.Duration(runtimeMs-c.cycleStartMs)*time.Millisecond >= c.animationTime {
		c.next = (c.current + 1) % len(c.animations)
		c.transitioning = true
		c.transitionStartMs = runtimeMs
	}

	f := c.animations[c.current].CalculateFrame(width, height, runtimeMs)
	if !c.transitioning {
		return f, nil
	}

	transition := 1.0
	if c.transitionTime > 0 {
		transition = float64(time.Duration(runtimeMs-c.transitionStartMs)*time.Millisecond) / float64(c.transitionTime)
	}
	if transition >= 1.0 {
		c.current = c.next
		c.transitioning = false
		c.cycleStartMs = runtimeMs
		return c.animations[c.current].CalculateFrame(width, height, runtimeMs), nil
	}

	f2 := c.animations[c.next].CalculateFrame(width, height, runtimeMs)
	return f.InterpolateFrame(f2, ease.InOutQuad(transition)), nil
}
