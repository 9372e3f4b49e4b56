package filter

// Freeverb is a Schroeder/Moorer reverb: eight parallel comb filters feeding
// four series allpass filters per channel, with a stereo width matrix,
// grounded on the teacher's applyReverb (comb bank + series allpass
// diffusion) and original_source/src/Sound/Filters/FreeverbFilter.h's
// roomSize/damp/width/mode attribute set.
type Freeverb struct {
	roomSize, damp, width float64
	freeze                bool
	wet                   float64

	sampleRate int
	channels   []freeverbChannel
	tank       []int32
}

type freeverbChannel struct {
	combs    [numCombs]comb
	allpasss [numAllpasses]allpass
}

type comb struct {
	buf     []int32
	pos     int
	filterstore int32
	feedback, damp1, damp2 int32
}

type allpass struct {
	buf      []int32
	pos      int
	feedback int32
}

const (
	numCombs     = 8
	numAllpasses = 4
)

// Tuning lengths in samples at the reference 44100Hz rate, matching the
// classic Freeverb constants; scaled to the actual sample rate at Init.
var combTuningRef = [numCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
var allpassTuningRef = [numAllpasses]int{556, 441, 341, 225}

const stereoSpreadRef = 23

// NewFreeverb constructs a reverb with roomSize and damp in [0,1], width in
// [0,1] controlling the stereo spread of the wet (reverb) signal, and freeze mode holding the
// reverb tail indefinitely (feedback pinned near 1, damp disabled).
func NewFreeverb(roomSize, damp, width float64, freeze bool) *Freeverb {
	return &Freeverb{
		roomSize: clampFloat(roomSize, 0, 1),
		damp:     clampFloat(damp, 0, 1),
		width:    clampFloat(width, 0, 1),
		freeze:   freeze,
		wet:      0.3,
	}
}

func (f *Freeverb) SetParams(roomSize, damp, width, wet float64, freeze bool) {
	f.roomSize = clampFloat(roomSize, 0, 1)
	f.damp = clampFloat(damp, 0, 1)
	f.width = clampFloat(width, 0, 1)
	f.freeze = freeze
	f.wet = clampFloat(wet, 0, 1)
	for i := range f.channels {
		f.channels[i].updateFeedback(f.roomSize, f.damp, f.freeze)
	}
}

func (f *Freeverb) init(sampleRate, channels int) {
	f.sampleRate = sampleRate
	f.channels = make([]freeverbChannel, channels)
	scale := float64(sampleRate) / 44100

	for ch := 0; ch < channels; ch++ {
		spread := int(float64(ch) * stereoSpreadRef * scale)
		var c freeverbChannel
		for i := 0; i < numCombs; i++ {
			length := int(float64(combTuningRef[i])*scale) + spread
			if length < 1 {
				length = 1
			}
			c.combs[i] = comb{buf: make([]int32, length)}
		}
		for i := 0; i < numAllpasses; i++ {
			length := int(float64(allpassTuningRef[i])*scale) + spread
			if length < 1 {
				length = 1
			}
			c.allpasss[i] = allpass{buf: make([]int32, length), feedback: toFixed(0.5)}
		}
		c.updateFeedback(f.roomSize, f.damp, f.freeze)
		f.channels[ch] = c
	}
}

const (
	scaleRoom  = 0.28
	offsetRoom = 0.7
	dampScale  = 0.4
)

func (c *freeverbChannel) updateFeedback(roomSize, damp float64, freeze bool) {
	feedback := roomSize*scaleRoom + offsetRoom
	damp1 := damp * dampScale
	if freeze {
		feedback = 1.0
		damp1 = 0
	}
	damp2 := 1 - damp1

	feedbackFixed := toFixed(feedback)
	damp1Fixed := toFixed(damp1)
	damp2Fixed := toFixed(damp2)

	for i := range c.combs {
		c.combs[i].feedback = feedbackFixed
		c.combs[i].damp1 = damp1Fixed
		c.combs[i].damp2 = damp2Fixed
	}
}

// Process runs each channel's comb/allpass tank independently (the classic
// Freeverb arrangement tunes one tank per channel via stereoSpreadRef), then
// recombines the tank outputs into L/R through the standard wet1/wet2 width
// matrix from original_source/src/Sound/Filters/FreeverbFilter.h's width
// attribute: wet1 = wet*(width/2+0.5) keeps a channel's own tank dominant,
// wet2 = wet*(1-width)/2 bleeds in the other channel's tank, so width=1
// gives full stereo separation and width=0 collapses to mono reverb.
func (f *Freeverb) Process(buffer []int16, frames, channels, sampleRate int) {
	if sampleRate != f.sampleRate || len(f.channels) != channels {
		f.init(sampleRate, channels)
	}

	wetFixed := toFixed(f.wet)
	dryFixed := fixedPointOne - wetFixed
	wet1Fixed := toFixed(f.wet * (f.width/2 + 0.5))
	wet2Fixed := toFixed(f.wet * (1 - f.width) / 2)

	tank := f.tankScratch(channels)

	for i := 0; i < frames; i++ {
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			x := int32(buffer[base+ch])
			c := &f.channels[ch]

			var out int32
			for ci := range c.combs {
				out += c.combs[ci].process(x)
			}
			for ai := range c.allpasss {
				out = c.allpasss[ai].process(out)
			}
			tank[ch] = out
		}

		for ch := 0; ch < channels; ch++ {
			x := int32(buffer[base+ch])

			var mixed int32
			switch {
			case wetFixed <= 0:
				mixed = x
			case channels == 2:
				// ch^1 is the other of the stereo pair.
				other := tank[ch^1]
				mixed = (x*dryFixed + tank[ch]*wet1Fixed + other*wet2Fixed) >> fixedPointBits
			default:
				mixed = (x*dryFixed + tank[ch]*wet1Fixed) >> fixedPointBits
			}
			buffer[base+ch] = clampInt16(mixed)
		}
	}
}

// tankScratch returns f's reusable per-frame tank-output buffer, sized to
// channels.
func (f *Freeverb) tankScratch(channels int) []int32 {
	if cap(f.tank) < channels {
		f.tank = make([]int32, channels)
	}
	return f.tank[:channels]
}

func (c *comb) process(x int32) int32 {
	out := c.buf[c.pos]
	c.filterstore = (out*c.damp2 + c.filterstore*c.damp1) >> fixedPointBits
	c.buf[c.pos] = x + ((c.filterstore * c.feedback) >> fixedPointBits)
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(x int32) int32 {
	bufOut := a.buf[a.pos]
	out := -x + bufOut
	a.buf[a.pos] = x + ((bufOut * a.feedback) >> fixedPointBits)
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func (f *Freeverb) Reset() {
	for chIdx := range f.channels {
		c := &f.channels[chIdx]
		for i := range c.combs {
			for j := range c.combs[i].buf {
				c.combs[i].buf[j] = 0
			}
			c.combs[i].filterstore = 0
		}
		for i := range c.allpasss {
			for j := range c.allpasss[i].buf {
				c.allpasss[i].buf[j] = 0
			}
		}
	}
}
