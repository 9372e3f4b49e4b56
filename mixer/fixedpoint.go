package mixer

import "github.com/klauspost/cpuid/v2"

// fixedPointBits matches filter and pipeline's Q14 convention so gain
// scaling composes cleanly across packages without repeated conversions.
const fixedPointBits = 14
const fixedPointOne = 1 << fixedPointBits

func toFixed(v float64) int32 {
	return int32(v * fixedPointOne)
}

func fromFixed(v int32) float64 {
	return float64(v) / fixedPointOne
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// simdLaneWidth reports how many int16 samples mixLayer's no-resample
// accumulate path (accumulateLanes) should batch per iteration, detected
// via klauspost/cpuid/v2 the way the teacher's fastSin/fastTanh LUT
// helpers are tuned for the host CPU's vector width rather than assuming
// a fixed SSE2 baseline. The loop itself stays scalar Go — there is no
// cgo/asm intrinsic in this module — but it is structured in lane-sized
// groups so a future SIMD build can batch it without restructuring.
func simdLaneWidth() int {
	switch cpuid.CPU.X64Level() {
	case 4:
		return 32
	case 3:
		return 16
	case 2:
		return 8
	default:
		return 1
	}
}
