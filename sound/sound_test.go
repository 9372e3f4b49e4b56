package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundkit/amplimix/codec"
)

func testFormat() codec.Format {
	return codec.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16, SampleType: codec.SampleI16, Interleave: codec.Interleaved}
}

func TestStaticDataReadRespectsBounds(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5, 6, 7, 8} // 4 stereo frames
	d := NewStatic(testFormat(), samples)

	out := make([]int16, 4)
	n := d.ReadStatic(out, 2, 2)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{5, 6, 7, 8}, out)

	n = d.ReadStatic(out, 10, 2)
	assert.Equal(t, 0, n)
}

func TestDataRefCounting(t *testing.T) {
	d := NewStatic(testFormat(), []int16{0, 0})
	assert.Equal(t, int32(1), d.RefCount())

	d.Retain()
	assert.Equal(t, int32(2), d.RefCount())

	assert.False(t, d.Release())
	assert.True(t, d.Release())
}

func TestInstanceRetainsDataAndReleases(t *testing.T) {
	d := NewStatic(testFormat(), []int16{0, 0})
	inst := NewInstance(1, d)
	require.Equal(t, int32(2), d.RefCount())

	assert.False(t, inst.Release())
	assert.True(t, d.Release())
}

func TestRegisterLoopStopsAtLoopCount(t *testing.T) {
	d := NewStatic(testFormat(), []int16{0, 0})
	inst := NewInstance(1, d)
	inst.LoopCount = 3

	// shouldContinue answers "should the cursor wrap back to Start", not
	// "did a loop boundary just fire" — the mixer's onLooped callback
	// fires on every one of these three crossings, including the third,
	// which is also the one where RegisterLoop says to stop.
	assert.True(t, inst.RegisterLoop())
	assert.True(t, inst.RegisterLoop())
	assert.False(t, inst.RegisterLoop())
	assert.Equal(t, 3, inst.CurrentLoopCount)
}

func TestRegisterLoopForeverWhenZero(t *testing.T) {
	d := NewStatic(testFormat(), []int16{0, 0})
	inst := NewInstance(1, d)
	inst.LoopCount = 0

	for i := 0; i < 100; i++ {
		assert.True(t, inst.RegisterLoop())
	}
}

func TestNewInstanceDefaultsToPlayOnce(t *testing.T) {
	d := NewStatic(testFormat(), []int16{0, 0})
	inst := NewInstance(1, d)

	assert.False(t, inst.RegisterLoop(), "a freshly constructed instance should not loop by default")
}
