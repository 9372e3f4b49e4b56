// Package pipeline assembles per-sound-instance processing stages (dry/wet
// filter mixers, environment selection, occlusion) into the ordered chain
// the mixer runs every instance's output through, grounded on
// original_source/src/Mixer/SoundProcessor.cpp's registry-and-config-driven
// pipeline construction in Mixer::Init.
package pipeline

import "github.com/soundkit/amplimix/filter"

// Stage is one link in a pipeline; filter.Instance already satisfies this
// shape structurally, so every filter doubles as a Stage with no adapter.
type Stage interface {
	Process(buffer []int16, frames, channels, sampleRate int)
}

var _ Stage = filter.Instance(nil)

// Pipeline runs an ordered list of stages over a buffer in place.
type Pipeline struct {
	stages []Stage
}

// New builds a pipeline from stages, in the order given.
func New(stages ...Stage) *Pipeline {
	cp := make([]Stage, len(stages))
	copy(cp, stages)
	return &Pipeline{stages: cp}
}

// Process runs every stage over buffer in order.
func (p *Pipeline) Process(buffer []int16, frames, channels, sampleRate int) {
	for _, s := range p.stages {
		s.Process(buffer, frames, channels, sampleRate)
	}
}

// Append adds a stage to the end of the pipeline.
func (p *Pipeline) Append(s Stage) {
	p.stages = append(p.stages, s)
}

// Len reports the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }
