// Package layer implements the mixer's per-voice state machine: the
// atomic play-state flag, cursor, gain/pan/pitch, and the non-atomic
// fields written only while the layer is not being mixed, grounded on original_source/src/Mixer/Mixer.cpp's
// AMPLIMIX_STORE/LOAD/CSWAP macros and MixerLayer struct.
package layer

import (
	"math"
	"sync/atomic"

	"github.com/soundkit/amplimix/pipeline"
	"github.com/soundkit/amplimix/sound"
)

// Flag is the closed set of play states a layer can be in. Go's
// sync/atomic already gives sequentially consistent loads/stores/CAS, a
// stronger guarantee than the C++ original's explicit acquire/release
// orderings, so no equivalent of AMPLIMIX_STORE's memory_order parameter
// is needed here — see SPEC_FULL.md §5.
type Flag uint32

const (
	// FlagMin marks a layer slot as free; never mixed, never resumed.
	FlagMin Flag = iota
	FlagStop
	FlagHalt
	FlagPlay
	FlagLoop
	flagMax
)

func (f Flag) String() string {
	switch f {
	case FlagMin:
		return "min"
	case FlagStop:
		return "stop"
	case FlagHalt:
		return "halt"
	case FlagPlay:
		return "play"
	case FlagLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// IsValid reports whether f is one of the five defined states.
func (f Flag) IsValid() bool { return f < flagMax }

// Layer is one mixable voice slot. The atomic fields are safe to touch
// from any goroutine (API calls arriving on a caller thread while the
// audio callback mixes concurrently); Snd/Start/End/Effects are plain
// fields that the mixer's Play writes after reserving the slot at
// FlagHalt (which Mix skips) and before publishing the start flag, and
// that Destroy clears after storing FlagMin.
type Layer struct {
	ID uint64

	flag   atomic.Uint32
	cursor atomic.Int64

	gainL atomic.Uint64 // float64 bits
	gainR atomic.Uint64

	pitch         atomic.Uint64 // float64 bits
	userPlaySpeed atomic.Uint64

	playSpeed  atomic.Uint64 // effective pitch*speed, float64 bits
	sampleRate atomic.Uint32 // effective sample rate after pitch/speed

	Snd        *sound.Instance
	Start, End int64
	Effects    *pipeline.Pipeline
}

// New constructs a free layer slot.
func New(id uint64) *Layer {
	l := &Layer{ID: id}
	l.flag.Store(uint32(FlagMin))
	l.pitch.Store(math.Float64bits(1))
	l.userPlaySpeed.Store(math.Float64bits(1))
	l.playSpeed.Store(math.Float64bits(1))
	storeFloat(&l.gainL, 1)
	storeFloat(&l.gainR, 1)
	return l
}

func storeFloat(a *atomic.Uint64, v float64) { a.Store(math.Float64bits(v)) }
func loadFloat(a *atomic.Uint64) float64     { return math.Float64frombits(a.Load()) }

// Flag returns the layer's current play state.
func (l *Layer) Flag() Flag { return Flag(l.flag.Load()) }

// CompareAndSwapFlag performs the CAS-guarded transition the original's
// SetPlayState uses, returning false (a no-op) if the layer was not in
// from. Callers are expected to dispatch lifecycle callbacks based on the
// (from, to) pair on success, exactly as Mixer::SetPlayState does.
func (l *Layer) CompareAndSwapFlag(from, to Flag) bool {
	return l.flag.CompareAndSwap(uint32(from), uint32(to))
}

// ForceFlag stores to unconditionally — used for bulk StopAll/HaltAll/
// PlayAll transitions and for natural end-of-sound resets, which the
// original performs as plain stores rather than CAS.
func (l *Layer) ForceFlag(to Flag) { l.flag.Store(uint32(to)) }

// ShouldMix reports whether this layer should be advanced this cycle,
// matching the original's `flag > PLAY_STATE_FLAG_HALT`.
func (l *Layer) ShouldMix() bool { return l.Flag() > FlagHalt }

// Cursor returns the current playback position, in frames.
func (l *Layer) Cursor() int64 { return l.cursor.Load() }

// SetCursor stores a new playback position.
func (l *Layer) SetCursor(frame int64) { l.cursor.Store(frame) }

// CompareAndSwapCursor is used by the mix loop to publish the advanced
// cursor only if no concurrent SetCursor call raced it, matching the
// original's AMPLIMIX_CSWAP usage around the cursor field.
func (l *Layer) CompareAndSwapCursor(old, new int64) bool {
	return l.cursor.CompareAndSwap(old, new)
}

// SetGainPan stores the per-channel linear gains derived from an overall
// gain and a pan in [-1,1], using the same constant-power pan law as the
// original's LRGain: L = cos(p)*gain, R = sin(p)*gain where
// p = pi*(pan+1)/4.
func (l *Layer) SetGainPan(gain, pan float64) {
	p := math.Pi * (pan + 1) / 4
	storeFloat(&l.gainL, math.Cos(p)*gain)
	storeFloat(&l.gainR, math.Sin(p)*gain)
}

// GainLR returns the current per-channel linear gains.
func (l *Layer) GainLR() (float64, float64) {
	return loadFloat(&l.gainL), loadFloat(&l.gainR)
}

// SetPitch stores the user-requested pitch multiplier.
func (l *Layer) SetPitch(pitch float64) { storeFloat(&l.pitch, pitch) }

// SetPlaySpeed stores the user-requested speed multiplier, independent of
// pitch; the two combine in UpdatePitch.
func (l *Layer) SetPlaySpeed(speed float64) { storeFloat(&l.userPlaySpeed, speed) }

// UpdatePitch recomputes the effective play speed and sample rate from
// the stored pitch and speed, clamping to a minimum of 0.001 the way the
// original does to avoid a zero or negative playback rate, and returns
// the new effective sample rate for the caller's resampler.
func (l *Layer) UpdatePitch(deviceSampleRate int) int {
	pitch := loadFloat(&l.pitch)
	speed := loadFloat(&l.userPlaySpeed)

	playSpeed := pitch * speed
	if playSpeed < 0.001 {
		playSpeed = 0.001
	}

	storeFloat(&l.playSpeed, playSpeed)
	sr := int(playSpeed * float64(deviceSampleRate))
	l.sampleRate.Store(uint32(sr))
	return sr
}

// PlaySpeed returns the last value UpdatePitch computed.
func (l *Layer) PlaySpeed() float64 { return loadFloat(&l.playSpeed) }

// SampleRate returns the last effective sample rate UpdatePitch computed.
func (l *Layer) SampleRate() int { return int(l.sampleRate.Load()) }
