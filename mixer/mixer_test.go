package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundkit/amplimix/chunk"
	"github.com/soundkit/amplimix/codec"
	"github.com/soundkit/amplimix/device"
	"github.com/soundkit/amplimix/filter"
	"github.com/soundkit/amplimix/layer"
	"github.com/soundkit/amplimix/sound"
)

func testDevice() device.Description {
	return device.Description{SampleRate: 44100, Layout: device.LayoutStereo, Format: device.FormatI16, BufferFrames: 256}
}

func newTestMixer(t *testing.T, layers int) *Amplimix {
	t.Helper()
	return New(Config{
		LayerCount:      layers,
		Device:          testDevice(),
		Pool:            chunk.NewPool(layers*2, 4096, 2, nil),
		Codecs:          codec.NewRegistry(),
		Filters:         filter.NewRegistry(),
		CommandCapacity: layers * 4,
	})
}

func toneInstance(frames int) *sound.Instance {
	samples := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(10000)
		samples[i*2] = v
		samples[i*2+1] = v
	}
	data := sound.NewStatic(codec.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, samples)
	return sound.NewInstance(1, data)
}

func TestPlayReservesAFreeLayer(t *testing.T) {
	m := newTestMixer(t, 2)
	inst := toneInstance(1000)

	id, ok := m.Play(inst, PlayParams{Gain: 1, End: 1000})
	require.True(t, ok)
	assert.NotZero(t, id)

	flag, ok := m.GetPlayState(id)
	require.True(t, ok)
	assert.Equal(t, "play", flag.String())
}

func TestPlayFailsWhenAllLayersBusy(t *testing.T) {
	m := newTestMixer(t, 1)
	inst := toneInstance(1000)

	_, ok := m.Play(inst, PlayParams{Gain: 1, End: 1000})
	require.True(t, ok)

	_, ok = m.Play(inst, PlayParams{Gain: 1, End: 1000})
	assert.False(t, ok, "a fully busy mixer must report failure rather than grow")
}

func TestMixProducesSilenceWithNoActiveLayers(t *testing.T) {
	m := newTestMixer(t, 4)
	out := make([]int16, 256*2)
	n := m.Mix(out, 256)

	assert.Equal(t, 256, n)
	for _, s := range out {
		assert.Equal(t, int16(0), s)
	}
}

func TestMixProducesNonSilentOutputForPlayingLayer(t *testing.T) {
	m := newTestMixer(t, 4)
	inst := toneInstance(4096)
	_, ok := m.Play(inst, PlayParams{Gain: 1, End: 4096})
	require.True(t, ok)

	out := make([]int16, 128*2)
	m.Mix(out, 128)

	nonZero := false
	for _, s := range out {
		if s != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero)
}

func TestMixHonorsMasterGain(t *testing.T) {
	m := newTestMixer(t, 4)
	inst := toneInstance(4096)
	m.Play(inst, PlayParams{Gain: 1, End: 4096})

	m.SetMasterGain(0)
	out := make([]int16, 128*2)
	m.Mix(out, 128)

	for _, s := range out {
		assert.Equal(t, int16(0), s)
	}
}

func TestSetPlayStateTransitionsAndRejectsInvalidFrom(t *testing.T) {
	m := newTestMixer(t, 2)
	inst := toneInstance(4096)
	id, _ := m.Play(inst, PlayParams{Gain: 1, End: 4096})

	assert.True(t, m.SetPlayState(id, layer.FlagHalt))
	flag, _ := m.GetPlayState(id)
	assert.Equal(t, "halt", flag.String())

	free := m.layers[1]
	assert.False(t, m.SetPlayState(free.ID, layer.FlagPlay), "a free layer must not accept a transition")
}

func TestStopAllFreesEveryActiveLayer(t *testing.T) {
	m := newTestMixer(t, 3)
	for i := 0; i < 3; i++ {
		m.Play(toneInstance(4096), PlayParams{Gain: 1, End: 4096})
	}

	m.StopAll()

	for _, l := range m.layers {
		assert.Equal(t, "min", l.Flag().String())
	}
}

func TestOneShotSoundEndsWithoutLooping(t *testing.T) {
	m := newTestMixer(t, 2)
	inst := toneInstance(64)
	id, _ := m.Play(inst, PlayParams{Gain: 1, End: 64})

	out := make([]int16, 256*2)
	m.Mix(out, 256)

	flag, ok := m.GetPlayState(id)
	require.True(t, ok)
	assert.Equal(t, "min", flag.String(), "a one-shot sound shorter than the mix cycle should end, not hang")
}

func TestLoopFlagReplaysInsteadOfEnding(t *testing.T) {
	m := newTestMixer(t, 2)
	inst := toneInstance(64)
	inst.LoopCount = 0
	id, _ := m.Play(inst, PlayParams{Gain: 1, End: 64, Flag: layer.FlagLoop})

	flag, ok := m.GetPlayState(id)
	require.True(t, ok)
	assert.Equal(t, "loop", flag.String())

	out := make([]int16, 256*2)
	m.Mix(out, 256)

	flag, _ = m.GetPlayState(id)
	assert.Equal(t, "loop", flag.String(), "a forever-looping sound must not fall back to min on underrun")

	l := m.findLayer(id)
	require.NotNil(t, l)
	assert.Equal(t, int64(0), l.Cursor(), "RegisterLoop should have wrapped the cursor back to Start")
}

func TestFiniteLoopFiresOnLoopedOnEveryCrossingThenOnEnded(t *testing.T) {
	var loopedCount int
	var ended bool

	m := New(Config{
		LayerCount:      2,
		Device:          testDevice(),
		Pool:            chunk.NewPool(4, 4096, 2, nil),
		Codecs:          codec.NewRegistry(),
		Filters:         filter.NewRegistry(),
		CommandCapacity: 16,
		Callbacks: LifecycleCallbacks{
			OnLooped: func(layerID uint64, inst *sound.Instance) { loopedCount++ },
			OnEnded:  func(layerID uint64, inst *sound.Instance) { ended = true },
		},
	})

	inst := toneInstance(100)
	inst.LoopCount = 3
	id, _ := m.Play(inst, PlayParams{Gain: 1, End: 100, Flag: layer.FlagLoop})

	out := make([]int16, 100*2)
	for i := 0; i < 4; i++ {
		m.Mix(out, 100)
	}

	assert.Equal(t, 3, loopedCount, "onLooped must fire on every loop-boundary crossing, including the one that stops looping")
	assert.True(t, ended, "onEnded must fire once the loop count is exhausted")

	flag, ok := m.GetPlayState(id)
	require.True(t, ok)
	assert.Equal(t, "min", flag.String())
}

func TestDestroyFreesLayerAndDispatchesCallback(t *testing.T) {
	var destroyed bool
	m := New(Config{
		LayerCount:      1,
		Device:          testDevice(),
		Pool:            chunk.NewPool(4, 4096, 2, nil),
		Codecs:          codec.NewRegistry(),
		Filters:         filter.NewRegistry(),
		CommandCapacity: 4,
		Callbacks: LifecycleCallbacks{
			OnDestroyed: func(layerID uint64, inst *sound.Instance) { destroyed = true },
		},
	})

	id, _ := m.Play(toneInstance(4096), PlayParams{Gain: 1, End: 4096})
	assert.True(t, m.Destroy(id))
	assert.True(t, destroyed)

	flag, _ := m.GetPlayState(id)
	assert.Equal(t, "min", flag.String())
}
