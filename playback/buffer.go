package playback

import (
	"sort"

	"github.com/xaionaro-go/typing"
)

// FrameBuffer holds frames awaiting display ordered by ascending sequence.
// A sequence may be present at most once; a second delivery of the same
// sequence is rejected.
//
// FrameBuffer is not safe for concurrent use; Scheduler serialises access.
type FrameBuffer struct {
	frames []Frame
}

// NewFrameBuffer creates an instance of a FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	b := new(FrameBuffer)
	b.frames = make([]Frame, 0, 16)
	return b
}

func (b *FrameBuffer) search(sequence uint64) int {
	return sort.Search(len(b.frames), func(i int) bool {
		return b.frames[i].Sequence >= sequence
	})
}

// Insert places f at the position that keeps the buffer sorted. It returns
// false and leaves the buffer untouched if f.Sequence is already buffered.
func (b *FrameBuffer) Insert(f Frame) bool {
	i := b.search(f.Sequence)
	if i < len(b.frames) && b.frames[i].Sequence == f.Sequence {
		return false
	}

	b.frames = append(b.frames, Frame{})
	copy(b.frames[i+1:], b.frames[i:])
	b.frames[i] = f
	return true
}

// PeekEarliest returns the lowest-sequence frame without removing it.
func (b *FrameBuffer) PeekEarliest() typing.Optional[Frame] {
	if len(b.frames) == 0 {
		return typing.Optional[Frame]{}
	}
	return typing.Opt(b.frames[0])
}

// PopEarliest removes and returns the lowest-sequence frame.
func (b *FrameBuffer) PopEarliest() typing.Optional[Frame] {
	if len(b.frames) == 0 {
		return typing.Optional[Frame]{}
	}

	f := b.frames[0]
	b.frames[0] = Frame{}
	b.frames = b.frames[1:]
	return typing.Opt(f)
}

// Contains reports whether sequence is buffered.
func (b *FrameBuffer) Contains(sequence uint64) bool {
	i := b.search(sequence)
	return i < len(b.frames) && b.frames[i].Sequence == sequence
}

// Len returns the number of buffered frames.
func (b *FrameBuffer) Len() int {
	return len(b.frames)
}

// Clear drops every buffered frame.
func (b *FrameBuffer) Clear() {
	b.frames = make([]Frame, 0, 16)
}
