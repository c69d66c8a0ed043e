package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferedSequences(b *FrameBuffer) []uint64 {
	var seqs []uint64
	for _, f := range b.frames {
		seqs = append(seqs, f.Sequence)
	}
	return seqs
}

func TestFrameBufferInsertKeepsOrder(t *testing.T) {
	b := NewFrameBuffer()
	for _, seq := range []uint64{5, 1, 3, 9, 2, 7} {
		require.True(t, b.Insert(Frame{Sequence: seq}))
	}
	assert.Equal(t, []uint64{1, 2, 3, 5, 7, 9}, bufferedSequences(b))
	assert.Equal(t, 6, b.Len())
}

func TestFrameBufferRejectsDuplicate(t *testing.T) {
	b := NewFrameBuffer()
	require.True(t, b.Insert(Frame{Sequence: 4, Payload: []byte("first")}))
	require.False(t, b.Insert(Frame{Sequence: 4, Payload: []byte("second")}))

	require.Equal(t, 1, b.Len())
	head := b.PeekEarliest()
	require.True(t, head.IsSet())
	assert.Equal(t, "first", string(head.Get().Payload))
}

func TestFrameBufferPeekAndPop(t *testing.T) {
	b := NewFrameBuffer()
	assert.False(t, b.PeekEarliest().IsSet())
	assert.False(t, b.PopEarliest().IsSet())

	b.Insert(Frame{Sequence: 2})
	b.Insert(Frame{Sequence: 1})

	assert.Equal(t, uint64(1), b.PeekEarliest().Get().Sequence)
	assert.Equal(t, 2, b.Len())

	assert.Equal(t, uint64(1), b.PopEarliest().Get().Sequence)
	assert.Equal(t, uint64(2), b.PopEarliest().Get().Sequence)
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.PopEarliest().IsSet())

	// the buffer stays usable once drained
	require.True(t, b.Insert(Frame{Sequence: 8}))
	assert.Equal(t, uint64(8), b.PeekEarliest().Get().Sequence)
}

func TestFrameBufferContainsAndClear(t *testing.T) {
	b := NewFrameBuffer()
	b.Insert(Frame{Sequence: 10})
	b.Insert(Frame{Sequence: 12})
	assert.True(t, b.Contains(10))
	assert.False(t, b.Contains(11))

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Contains(10))
	assert.False(t, b.PeekEarliest().IsSet())
}
