package layer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNewLayerStartsAtMin(t *testing.T) {
	l := New(1)
	assert.Equal(t, FlagMin, l.Flag())
	assert.False(t, l.ShouldMix())
}

func TestShouldMixOnlyForPlayAndLoop(t *testing.T) {
	l := New(1)
	for _, f := range []Flag{FlagMin, FlagStop, FlagHalt} {
		l.ForceFlag(f)
		assert.False(t, l.ShouldMix(), "flag %s should not mix", f)
	}
	for _, f := range []Flag{FlagPlay, FlagLoop} {
		l.ForceFlag(f)
		assert.True(t, l.ShouldMix(), "flag %s should mix", f)
	}
}

func TestCompareAndSwapFlagOnlySucceedsFromExpectedState(t *testing.T) {
	l := New(1)
	l.ForceFlag(FlagHalt)

	assert.False(t, l.CompareAndSwapFlag(FlagPlay, FlagLoop), "CAS must fail when current state doesn't match from")
	assert.Equal(t, FlagHalt, l.Flag())

	assert.True(t, l.CompareAndSwapFlag(FlagHalt, FlagPlay))
	assert.Equal(t, FlagPlay, l.Flag())
}

func TestSetGainPanCenterPanSplitsEqually(t *testing.T) {
	l := New(1)
	l.SetGainPan(1, 0)
	lGain, rGain := l.GainLR()
	assert.InDelta(t, lGain, rGain, 1e-9)
}

func TestSetGainPanHardLeftSilencesRight(t *testing.T) {
	l := New(1)
	l.SetGainPan(1, -1)
	lGain, rGain := l.GainLR()
	assert.InDelta(t, 0, rGain, 1e-9)
	assert.Greater(t, lGain, 0.0)
}

func TestUpdatePitchClampsNonPositiveSpeed(t *testing.T) {
	l := New(1)
	l.SetPitch(0)
	l.SetPlaySpeed(1)
	sr := l.UpdatePitch(44100)
	assert.Greater(t, sr, 0)
	assert.Greater(t, l.PlaySpeed(), 0.0)
}

func TestCursorCompareAndSwapPreventsLostUpdates(t *testing.T) {
	l := New(1)
	l.SetCursor(100)
	assert.True(t, l.CompareAndSwapCursor(100, 150))
	assert.False(t, l.CompareAndSwapCursor(100, 200), "stale CAS must fail once cursor has moved")
	assert.Equal(t, int64(150), l.Cursor())
}

// TestGainPanIsAlwaysConstantPower checks the constant-power pan law holds
// for any gain/pan combination: L^2+R^2 stays proportional to gain^2
// within floating point tolerance.
func TestGainPanIsAlwaysConstantPower(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gain := rapid.Float64Range(0, 4).Draw(rt, "gain")
		pan := rapid.Float64Range(-1, 1).Draw(rt, "pan")

		l := New(1)
		l.SetGainPan(gain, pan)
		lGain, rGain := l.GainLR()

		power := lGain*lGain + rGain*rGain
		assert.InDelta(rt, gain*gain, power, 1e-6)
	})
}

func TestUpdatePitchNeverProducesNonPositiveSampleRateForPositivePitch(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		pitch := rapid.Float64Range(0.01, 4).Draw(rt, "pitch")
		speed := rapid.Float64Range(0.01, 4).Draw(rt, "speed")

		l := New(1)
		l.SetPitch(pitch)
		l.SetPlaySpeed(speed)
		sr := l.UpdatePitch(48000)

		assert.Greater(rt, sr, 0)
	})
}
