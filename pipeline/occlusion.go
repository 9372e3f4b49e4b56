package pipeline

import (
	"math"

	"github.com/soundkit/amplimix/filter"
)

// Curve maps an occlusion amount in [0,1] to a multiplier, matching
// spec.md §4.5's "engine-provided curves" (lpfCurve, gainCurve) that the
// occlusion processor reads rather than computing from a hard-coded
// formula. A caller installs its own via SetLPFCurve/SetGainCurve to
// match whatever curve-authoring tool the engine exposes; the defaults
// below are used until then.
type Curve func(occlusion float64) float64

// defaultLPFCurve exponentially interpolates the lowpass cutoff, as a
// ratio of sampleRate, between 0.5 (Nyquist, no occlusion) and 1/2000
// (full occlusion) — spec.md §4.5's "tuned between sampleRate/2 and
// sampleRate/2000 via an exponential curve."
func defaultLPFCurve(occlusion float64) float64 {
	const minRatio = 1.0 / 2000
	const maxRatio = 1.0 / 2
	return maxRatio * math.Exp(occlusion*math.Log(minRatio/maxRatio))
}

// defaultGainCurve linearly attenuates toward silence as occlusion
// approaches full, the simplest curve matching SetOcclusion(1)'s
// "entirely behind a solid barrier" framing.
func defaultGainCurve(occlusion float64) float64 {
	return 1 - occlusion
}

// Occlusion applies the original's ChannelInternalState::SetOcclusion
// treatment: a lowpass cutoff swept exponentially down from Nyquist as
// occlusion increases (muffling a sound, not just quieting it), then a
// gain multiply. Obstruction is a distinct, separate concept (spec.md
// §4.6's SoundInstance.Obstruction field, owned by whatever out-of-scope
// attenuation logic the higher-level engine runs) and is not read here.
type Occlusion struct {
	occlusion float64
	lpfCurve  Curve
	gainCurve Curve
	lpf       *filter.Biquad
}

// NewOcclusion constructs an occlusion stage at zero occlusion (fully
// audible, unfiltered), using the default exponential/linear curves
// until SetLPFCurve/SetGainCurve install engine-provided ones.
func NewOcclusion() *Occlusion {
	return &Occlusion{
		lpfCurve:  defaultLPFCurve,
		gainCurve: defaultGainCurve,
		lpf:       filter.NewBiquad(filter.BiquadLowPass, 0, 22000, 0.707),
	}
}

// SetOcclusion sets the occlusion amount in [0,1]; higher values pull the
// lowpass cutoff down and attenuate gain further, per the installed curves.
func (o *Occlusion) SetOcclusion(amount float64) {
	o.occlusion = clamp01(amount)
}

// SetLPFCurve installs the engine-provided cutoff-ratio curve, replacing
// the exponential default. c is expected to return a value in [0,1],
// interpreted as a fraction of sampleRate.
func (o *Occlusion) SetLPFCurve(c Curve) {
	if c != nil {
		o.lpfCurve = c
	}
}

// SetGainCurve installs the engine-provided gain curve, replacing the
// linear default. c is expected to return a linear gain in [0,1].
func (o *Occlusion) SetGainCurve(c Curve) {
	if c != nil {
		o.gainCurve = c
	}
}

func (o *Occlusion) Process(buffer []int16, frames, channels, sampleRate int) {
	if o.occlusion <= 0 {
		return
	}

	ratio := clamp01(o.lpfCurve(o.occlusion))
	cutoff := float64(sampleRate) * ratio
	o.lpf.SetParams(filter.BiquadLowPass, 0, cutoff, 0.707, 1)
	o.lpf.Process(buffer, frames, channels, sampleRate)

	gain := clamp01(o.gainCurve(o.occlusion))
	gainFixed := toFixed(gain)
	n := frames * channels
	for i := 0; i < n; i++ {
		buffer[i] = clampInt16((int32(buffer[i]) * gainFixed) >> fixedPointBits)
	}
}
