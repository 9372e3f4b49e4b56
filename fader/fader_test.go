package fader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearFaderInterpolatesAcrossDuration(t *testing.T) {
	f := Create(Linear)
	f.Set(0, 10, 100)
	f.Start(0)

	assert.InDelta(t, 0.0, f.GetFromTime(0), 1e-9)
	assert.InDelta(t, 5.0, f.GetFromTime(50), 1e-9)
	assert.InDelta(t, 10.0, f.GetFromTime(100), 1e-9)
}

func TestFaderClampsOutsideRange(t *testing.T) {
	f := Create(Linear)
	f.Set(1, 2, 10)
	f.Start(100)

	assert.Equal(t, 1.0, f.GetFromTime(0))
	assert.Equal(t, 2.0, f.GetFromTime(1000))
}

func TestConstantFaderHoldsFromValue(t *testing.T) {
	f := Create(Constant)
	f.Set(3, 9, 50)
	f.Start(0)

	assert.InDelta(t, 3.0, f.GetFromTime(25), 1e-9)
}

func TestSCurveFaderIsMonotonicAndBounded(t *testing.T) {
	f := Create(SCurve)
	f.Set(0, 1, 100)
	f.Start(0)

	prev := -1.0
	for ti := int64(0); ti <= 100; ti += 5 {
		v := f.GetFromTime(ti)
		assert.GreaterOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		prev = v
	}
}

func TestEaseFaderEndpointsMatchFromAndTo(t *testing.T) {
	f := Create(Ease)
	f.Set(-5, 5, 200)
	f.Start(0)

	assert.InDelta(t, -5.0, f.GetFromTime(0), 1e-6)
	assert.InDelta(t, 5.0, f.GetFromTime(200), 1e-6)
}

func TestCreateFallsBackToLinearForUnknownAlgorithm(t *testing.T) {
	f := Create(Algorithm(99))
	f.Set(0, 100, 10)
	f.Start(0)

	assert.InDelta(t, 50.0, f.GetFromTime(5), 1e-9)
}
