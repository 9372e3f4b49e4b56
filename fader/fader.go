// Package fader implements the time-based value curves used to smooth gain,
// pan, pitch, and filter parameter changes, ported from the original engine's
// Fader/FaderInstance split (src/Sound/Fader.cpp) into a single Go type per
// algorithm plus a small closed enum of kinds.
package fader

import "math"

// State mirrors the original engine's three-state fader lifecycle.
type State int

const (
	StateDisabled State = iota
	StateActive
	StateStopped
)

// Algorithm selects the easing curve a Fader applies between From and To.
type Algorithm int

const (
	Linear Algorithm = iota
	Constant
	SCurve
	Exponential
	Ease
)

// Fader interpolates a scalar value over a fixed duration. It is not safe
// for concurrent use; callers own one Fader per parameter being smoothed.
type Fader struct {
	algorithm Algorithm
	from, to  float64
	start, end int64 // time, in the same units the caller passes to Start/GetFromTime
	state     State
}

// New constructs a Fader using the named algorithm.
func New(algorithm Algorithm) *Fader {
	return &Fader{algorithm: algorithm, state: StateDisabled}
}

// Set configures the value range and duration (in the caller's time units,
// typically milliseconds) a subsequent Start will fade across.
func (f *Fader) Set(from, to float64, duration int64) {
	f.from = from
	f.to = to
	f.SetDuration(duration)
}

// SetDuration adjusts the duration without disturbing from/to, matching
// the original's separate SetDuration entry point used by looping faders.
func (f *Fader) SetDuration(duration int64) {
	if duration < 0 {
		duration = 0
	}
	f.end = duration
}

// Start begins the fade at the given start time.
func (f *Fader) Start(startTime int64) {
	f.start = startTime
	f.end += startTime
	f.state = StateActive
}

// State reports the fader's current lifecycle state.
func (f *Fader) State() State { return f.state }

// SetState forces the lifecycle state, used to stop a fade early.
func (f *Fader) SetState(s State) { f.state = s }

// GetFromTime evaluates the fader at the given absolute time, clamping
// before the start and after the end the same way the original does.
func (f *Fader) GetFromTime(t int64) float64 {
	if t < f.start {
		return f.from
	}
	if t >= f.end {
		return f.to
	}
	span := f.end - f.start
	if span <= 0 {
		return f.to
	}
	return f.GetFromPercentage(float64(t-f.start) / float64(span))
}

// GetFromPercentage evaluates the easing curve at p in [0,1].
func (f *Fader) GetFromPercentage(p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	eased := p
	switch f.algorithm {
	case Constant:
		eased = 0
	case SCurve:
		eased = p * p * (3 - 2*p)
	case Exponential:
		eased = p * p
	case Ease:
		eased = cubicBezier(easeFaderControlPoints, p)
	case Linear:
		fallthrough
	default:
		eased = p
	}

	return f.from + (f.to-f.from)*eased
}

// easeFaderControlPoints are the bezier control points the original engine
// hard-codes for its "Ease" fader, applied as a cubic bezier over the unit
// interval with endpoints pinned to (0,0) and (1,1).
var easeFaderControlPoints = [4]float64{0.25, 0.1, 0.25, 1.0}

// cubicBezier evaluates the y-coordinate of a unit cubic bezier whose
// control points' x/y pairs are taken from cp (x1,y1,x2,y2) at parameter t,
// approximating the x(t)=p inversion with a fixed iteration count since the
// fader only needs visually-smooth easing, not exact timing.
func cubicBezier(cp [4]float64, p float64) float64 {
	x1, y1, x2, y2 := cp[0], cp[1], cp[2], cp[3]

	t := p
	for i := 0; i < 6; i++ {
		x := bezierComponent(x1, x2, t)
		dx := bezierDerivative(x1, x2, t)
		if math.Abs(dx) < 1e-6 {
			break
		}
		t -= (x - p) / dx
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
	}

	return bezierComponent(y1, y2, t)
}

func bezierComponent(c1, c2, t float64) float64 {
	mt := 1 - t
	return 3*mt*mt*t*c1 + 3*mt*t*t*c2 + t*t*t
}

func bezierDerivative(c1, c2, t float64) float64 {
	mt := 1 - t
	return 3*mt*mt*c1 + 6*mt*t*(c2-c1) + 3*t*t*(1-c2)
}

// Create mirrors the original Fader::Create factory, constructing the
// default Linear fader for unrecognized algorithm values.
func Create(algorithm Algorithm) *Fader {
	switch algorithm {
	case Constant, SCurve, Exponential, Ease:
		return New(algorithm)
	default:
		return New(Linear)
	}
}
