package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundkit/amplimix/filter"
)

func TestBuildPipelineAppendsPlainStageWithZeroWet(t *testing.T) {
	registry := filter.NewRegistry()
	cfg := PipelineConfig{Stages: []StageConfig{
		{Kind: "dc_removal"},
	}}

	p := BuildPipeline(cfg, registry, nil)
	require.Equal(t, 1, p.Len())
}

func TestBuildPipelineWrapsWetStageInProcessorMixer(t *testing.T) {
	registry := filter.NewRegistry()
	cfg := PipelineConfig{Stages: []StageConfig{
		{Kind: "freeverb", Wet: 0.4, Params: map[string]float64{"room_size": 0.8}},
	}}

	p := BuildPipeline(cfg, registry, nil)
	require.Equal(t, 1, p.Len())

	buffer := make([]int16, 16*2)
	buffer[0] = 10000
	p.Process(buffer, 16, 2, 44100)
}

func TestBuildPipelineSkipsUnknownKind(t *testing.T) {
	registry := filter.NewRegistry()
	var warnings []string
	cfg := PipelineConfig{Stages: []StageConfig{
		{Kind: "not_a_real_filter"},
	}}

	p := BuildPipeline(cfg, registry, func(msg string, kv ...any) {
		warnings = append(warnings, msg)
	})

	assert.Equal(t, 0, p.Len())
	assert.Len(t, warnings, 1)
}
