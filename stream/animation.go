package stream

// An Animation draws the picture for a given point in time. Frames are
// requested in submission order, so an Animation may keep state between calls.
type Animation interface {
	CalculateFrame(width, height int, runtimeMs int64) *Frame
}
