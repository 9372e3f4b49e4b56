package filter

import "math"

// Flanger delays the signal by a small, LFO-modulated amount and mixes it
// back with the dry signal, grounded on
// original_source/src/Sound/Filters/FlangerFilter.h's delay+frequency
// attribute pair and circular-buffer-with-fractional-index implementation.
type Flanger struct {
	delayMs float64
	freqHz  float64
	wet     float64

	sampleRate int
	bufLen     int
	buffers    map[int][]float64
	writePos   map[int]int
	phase      float64
}

// NewFlanger constructs a flanger with delayMs of maximum sweep depth and
// an LFO rate of freqHz.
func NewFlanger(delayMs, freqHz float64) *Flanger {
	if delayMs <= 0 {
		delayMs = 3
	}
	if freqHz <= 0 {
		freqHz = 0.2
	}
	return &Flanger{
		delayMs: delayMs,
		freqHz:  freqHz,
		wet:     0.5,
		buffers: map[int][]float64{},
		writePos: map[int]int{},
	}
}

func (f *Flanger) SetParams(delayMs, freqHz, wet float64) {
	f.delayMs = delayMs
	f.freqHz = freqHz
	f.wet = clampFloat(wet, 0, 1)
}

func (f *Flanger) Process(buffer []int16, frames, channels, sampleRate int) {
	if sampleRate != f.sampleRate {
		f.sampleRate = sampleRate
		f.bufLen = int(f.delayMs/1000*float64(sampleRate)) + 2
		f.buffers = map[int][]float64{}
		f.writePos = map[int]int{}
	}

	wetFixed := toFixed(f.wet)
	dryFixed := fixedPointOne - wetFixed
	phaseStep := 2 * math.Pi * f.freqHz / float64(sampleRate)

	phase := f.phase
	for i := 0; i < frames; i++ {
		lfo := (math.Sin(phase) + 1) / 2 // 0..1
		delaySamples := lfo * float64(f.bufLen-2)
		phase += phaseStep

		for ch := 0; ch < channels; ch++ {
			buf := f.bufferFor(ch)
			pos := f.writePos[ch]

			idx := i*channels + ch
			x := float64(buffer[idx])

			buf[pos] = x

			readPos := float64(pos) - delaySamples
			for readPos < 0 {
				readPos += float64(f.bufLen)
			}
			i0 := int(readPos)
			frac := readPos - float64(i0)
			i1 := (i0 + 1) % f.bufLen
			delayed := buf[i0%f.bufLen]*(1-frac) + buf[i1]*frac

			f.writePos[ch] = (pos + 1) % f.bufLen

			var out int32
			if wetFixed > 0 {
				out = (int32(x)*dryFixed + int32(delayed)*wetFixed) >> fixedPointBits
			} else {
				out = int32(x)
			}
			buffer[idx] = clampInt16(out)
		}
	}
	for phase > 2*math.Pi {
		phase -= 2 * math.Pi
	}
	f.phase = phase
}

func (f *Flanger) bufferFor(ch int) []float64 {
	b, ok := f.buffers[ch]
	if !ok {
		b = make([]float64, f.bufLen)
		f.buffers[ch] = b
	}
	return b
}

func (f *Flanger) Reset() {
	f.buffers = map[int][]float64{}
	f.writePos = map[int]int{}
	f.phase = 0
}
