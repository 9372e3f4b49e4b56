package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundkit/amplimix/filter"
)

type gainStage struct{ mul int32 }

func (g gainStage) Process(buffer []int16, frames, channels, sampleRate int) {
	for i := range buffer {
		buffer[i] = int16(int32(buffer[i]) * g.mul)
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	p := New(gainStage{mul: 2}, gainStage{mul: 3})
	buf := []int16{1, 2, 3}
	p.Process(buf, 1, 3, 44100)
	assert.Equal(t, []int16{6, 12, 18}, buf)
}

func TestProcessorMixerPassthroughWhenUnset(t *testing.T) {
	m := NewProcessorMixer()
	buf := []int16{100, -200, 300}
	orig := append([]int16(nil), buf...)
	m.Process(buf, 1, 3, 44100)
	assert.Equal(t, orig, buf)
}

func TestProcessorMixerPassthroughWhenOnlyWetSet(t *testing.T) {
	m := NewProcessorMixer()
	m.SetWetProcessor(gainStage{mul: 5}, 1)

	buf := []int16{100, -200, 300}
	orig := append([]int16(nil), buf...)
	m.Process(buf, 1, 3, 44100)
	assert.Equal(t, orig, buf, "an unconfigured dry side must force passthrough, not run the wet side alone")
}

func TestProcessorMixerPassthroughWhenOnlyDrySet(t *testing.T) {
	m := NewProcessorMixer()
	m.SetDryProcessor(gainStage{mul: 5}, 1)

	buf := []int16{100, -200, 300}
	orig := append([]int16(nil), buf...)
	m.Process(buf, 1, 3, 44100)
	assert.Equal(t, orig, buf, "an unconfigured wet side must force passthrough, not run the dry side alone")
}

func TestProcessorMixerBlendsDryAndWet(t *testing.T) {
	m := NewProcessorMixer()
	m.SetDryProcessor(gainStage{mul: 1}, 1)
	m.SetWetProcessor(gainStage{mul: 2}, 1)

	buf := []int16{1000}
	m.Process(buf, 1, 1, 44100)
	require.Len(t, buf, 1)
	assert.Equal(t, int16(2000), buf[0])
}

func TestEnvironmentProcessorPicksHighestWeight(t *testing.T) {
	e := &EnvironmentProcessor{}
	buf := []int16{1000}

	entries := []EnvironmentEntry{
		{ID: 1, Weight: 0.2, Stage: gainStage{mul: 5}},
		{ID: 2, Weight: 0.9, Stage: gainStage{mul: 0}},
	}
	e.Process(buf, 1, 1, 44100, entries)

	assert.Less(t, int(buf[0]), 1000)
}

func TestOcclusionNoopWhenZero(t *testing.T) {
	o := NewOcclusion()
	buf := []int16{1234, -1234}
	orig := append([]int16(nil), buf...)
	o.Process(buf, 1, 2, 44100)
	assert.Equal(t, orig, buf)
}

func TestOcclusionAttenuatesOnFullOcclusion(t *testing.T) {
	o := NewOcclusion()
	o.SetOcclusion(1)
	buf := make([]int16, 64)
	for i := range buf {
		buf[i] = 20000
	}
	o.Process(buf, 64, 1, 44100)

	for _, s := range buf {
		assert.Less(t, int(s), 20000)
	}
}

func TestOcclusionLPFCurveSpansNyquistToSampleRateOver2000(t *testing.T) {
	assert.InDelta(t, 0.5, defaultLPFCurve(0), 1e-9, "no occlusion should leave the cutoff at Nyquist")
	assert.InDelta(t, 1.0/2000, defaultLPFCurve(1), 1e-9, "full occlusion should pull the cutoff down to sampleRate/2000")
}

func TestOcclusionUsesInstalledCurvesOverDefaults(t *testing.T) {
	o := NewOcclusion()
	var calledWith float64
	o.SetGainCurve(func(occlusion float64) float64 {
		calledWith = occlusion
		return 0
	})
	o.SetOcclusion(0.4)

	buf := []int16{20000, 20000}
	o.Process(buf, 2, 1, 44100)

	assert.Equal(t, 0.4, calledWith, "the installed gain curve should see the raw occlusion value")
	for _, s := range buf {
		assert.Equal(t, int16(0), s, "a gain curve returning 0 should silence the signal")
	}
}

func TestPipelineAcceptsFilterInstancesAsStages(t *testing.T) {
	p := New(filter.NewBiquad(filter.BiquadLowPass, 0, 1000, 1))
	buf := []int16{500, -500}
	assert.NotPanics(t, func() { p.Process(buf, 1, 2, 44100) })
}
