package chunk

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGetPutRoundTrip(t *testing.T) {
	p := NewPool(4, 256, 2, nil)

	c := p.Get(128, 2, TagAmplimix)
	require.NotNil(t, c)
	assert.Equal(t, 128*2, len(c.Samples))
	assert.Equal(t, uintptr(0), uintptr(unsafe.Pointer(&c.Samples[0]))%Alignment)

	allocs, frees, _ := p.Stats(TagAmplimix)
	assert.Equal(t, uint64(1), allocs)
	assert.Equal(t, uint64(0), frees)

	p.Put(c)
	allocs, frees, _ = p.Stats(TagAmplimix)
	assert.Equal(t, uint64(1), allocs)
	assert.Equal(t, uint64(1), frees)
}

func TestPoolExhaustionReturnsNil(t *testing.T) {
	p := NewPool(1, 64, 2, nil)

	c1 := p.Get(64, 2, TagCodec)
	require.NotNil(t, c1)

	c2 := p.Get(64, 2, TagCodec)
	assert.Nil(t, c2, "pool must report exhaustion by returning nil rather than growing")
}

func TestPoolPeakBytesTracksHighWaterMark(t *testing.T) {
	p := NewPool(2, 256, 2, nil)

	a := p.Get(256, 2, TagFiltering)
	b := p.Get(256, 2, TagFiltering)
	require.NotNil(t, a)
	require.NotNil(t, b)

	_, _, peak := p.Stats(TagFiltering)
	assert.Equal(t, uint64(256*2*2*2), peak)

	p.Put(a)
	p.Put(b)

	_, _, peakAfter := p.Stats(TagFiltering)
	assert.Equal(t, peak, peakAfter, "peak is a high-water mark and must not shrink on free")
}
