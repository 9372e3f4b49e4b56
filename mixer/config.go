package mixer

import (
	"fmt"

	"github.com/soundkit/amplimix/filter"
	"github.com/soundkit/amplimix/pipeline"
)

// PipelineConfig is the declarative, YAML-decoded description of a mix
// pipeline, grounded on original_source/src/Mixer/Mixer.cpp's Init
// building AudioProcessorMixer/AudioSoundProcessor items from config, each
// looked up by name with a warn-and-skip on an unknown processor — here
// Registry.New returning nil plays that role.
type PipelineConfig struct {
	Stages []StageConfig `yaml:"stages"`
}

// StageConfig names one pipeline stage and its parameters. A Wet of 0
// (the zero value) appends the filter directly, matching spec.md's plain
// AudioSoundProcessor stage; any other Wet wraps it in a
// pipeline.ProcessorMixer blending dry input against the filter's wet
// output, matching AudioSoundProcessor's AudioProcessorMixer variant.
type StageConfig struct {
	Kind   string             `yaml:"kind"`
	Wet    float64            `yaml:"wet"`
	Params map[string]float64 `yaml:"params"`
}

// BuildPipeline constructs a pipeline.Pipeline from cfg, skipping (and
// logging, via the caller-supplied warn func) any stage whose kind the
// registry doesn't recognize rather than failing the whole pipeline.
func BuildPipeline(cfg PipelineConfig, registry *filter.Registry, warn func(string, ...any)) *pipeline.Pipeline {
	p := pipeline.New()

	for _, stage := range cfg.Stages {
		kind, ok := parseKind(stage.Kind)
		if !ok {
			if warn != nil {
				warn("unknown pipeline stage kind, skipping", "kind", stage.Kind)
			}
			continue
		}

		inst := registry.New(kind)
		if inst == nil {
			if warn != nil {
				warn("no factory registered for filter kind, skipping", "kind", stage.Kind)
			}
			continue
		}

		applyParams(inst, stage.Params)

		if stage.Wet <= 0 {
			p.Append(inst)
			continue
		}

		node := pipeline.NewProcessorMixer()
		node.SetDryProcessor(pipeline.Identity, 1-stage.Wet)
		node.SetWetProcessor(inst, stage.Wet)
		p.Append(node)
	}

	return p
}

func parseKind(name string) (filter.Kind, bool) {
	switch name {
	case "biquad":
		return filter.KindBiquad, true
	case "dc_removal":
		return filter.KindDCRemoval, true
	case "equalizer":
		return filter.KindEqualizer, true
	case "flanger":
		return filter.KindFlanger, true
	case "freeverb":
		return filter.KindFreeverb, true
	default:
		return 0, false
	}
}

// applyParams pushes a stage's YAML-decoded parameters into whichever
// concrete setter the constructed instance exposes, ignoring parameters a
// given filter type doesn't recognize.
func applyParams(inst filter.Instance, params map[string]float64) {
	switch f := inst.(type) {
	case *filter.Biquad:
		freq := params["frequency"]
		if freq == 0 {
			freq = 2000
		}
		resonance := params["resonance"]
		if resonance == 0 {
			resonance = 1
		}
		f.SetParams(filter.BiquadLowPass, params["gain"], freq, resonance, orDefault(params["wet"], 1))
	case *filter.DCRemoval:
		f.SetWet(orDefault(params["wet"], 1))
	case *filter.Flanger:
		f.SetParams(orDefault(params["delay_ms"], 3), orDefault(params["rate_hz"], 0.2), orDefault(params["wet"], 0.5))
	case *filter.Freeverb:
		f.SetParams(orDefault(params["room_size"], 0.5), orDefault(params["damp"], 0.5), orDefault(params["width"], 1), orDefault(params["wet"], 0.3), params["freeze"] != 0)
	case *filter.Equalizer:
		for i := 0; i < 8; i++ {
			key := fmt.Sprintf("band_%d", i)
			if v, ok := params[key]; ok {
				f.SetBandGain(i, v)
			}
		}
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
