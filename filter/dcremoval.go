package filter

// DCRemoval subtracts a per-channel moving average from the signal,
// removing the DC offset that accumulates after repeated biquad or pitch
// processing, the way original_source/src/Sound/Filters/DCRemovalFilter.h
// uses a boxcar average rather than a one-pole leaky integrator.
type DCRemoval struct {
	wet float64

	length  int
	buffers map[int][]int32
	sums    map[int]int32
	pos     map[int]int
}

// NewDCRemoval constructs a DC-removal filter with the given wet mix; the
// averaging window is fixed at a length long enough to track sub-audio-rate
// drift without attenuating low bass content.
func NewDCRemoval(wet float64) *DCRemoval {
	const defaultLength = 1024
	return &DCRemoval{
		wet:     clampFloat(wet, 0, 1),
		length:  defaultLength,
		buffers: map[int][]int32{},
		sums:    map[int]int32{},
		pos:     map[int]int{},
	}
}

func (f *DCRemoval) SetWet(wet float64) { f.wet = clampFloat(wet, 0, 1) }

func (f *DCRemoval) Process(buffer []int16, frames, channels, sampleRate int) {
	wetFixed := toFixed(f.wet)
	dryFixed := fixedPointOne - wetFixed

	for ch := 0; ch < channels; ch++ {
		buf := f.bufferFor(ch)
		sum := f.sums[ch]
		pos := f.pos[ch]

		for i := 0; i < frames; i++ {
			idx := i*channels + ch
			x := int32(buffer[idx])

			sum -= buf[pos]
			buf[pos] = x
			sum += x
			pos = (pos + 1) % f.length

			avg := sum / int32(f.length)
			wetOut := x - avg

			var out int32
			if wetFixed > 0 {
				out = (x*dryFixed + wetOut*wetFixed) >> fixedPointBits
			} else {
				out = x
			}
			buffer[idx] = clampInt16(out)
		}

		f.sums[ch] = sum
		f.pos[ch] = pos
	}
}

func (f *DCRemoval) bufferFor(ch int) []int32 {
	b, ok := f.buffers[ch]
	if !ok {
		b = make([]int32, f.length)
		f.buffers[ch] = b
	}
	return b
}

func (f *DCRemoval) Reset() {
	f.buffers = map[int][]int32{}
	f.sums = map[int]int32{}
	f.pos = map[int]int{}
}
