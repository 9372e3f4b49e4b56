package mixer

import (
	"math"

	"github.com/soundkit/amplimix/chunk"
	"github.com/soundkit/amplimix/layer"
)

// Mix fills output (interleaved int16, sized frames*Device.Channels()) for
// one audio callback cycle: locks the audio mutex, zeroes the
// accumulation buffer, advances every playing layer, clips down to
// int16, unlocks, and then drains deferred commands — following
// original_source/src/Mixer/Mixer.cpp's Mixer::Mix structure exactly
// (lock, zero, mix layers, clip, copy out, unlock, ExecuteCommands).
func (m *Amplimix) Mix(output []int16, frames int) int {
	channels := m.dev.Channels()
	need := frames * channels
	if len(output) < need {
		frames = len(output) / channels
		need = frames * channels
	}

	m.mu.Lock()
	m.insideMutex.Store(true)

	if cap(m.acc) < need {
		m.acc = make([]int32, need)
	}
	acc := m.acc[:need]
	for i := range acc {
		acc[i] = 0
	}

	for _, l := range m.layers {
		if !l.ShouldMix() {
			continue
		}
		m.mixLayer(l, acc, frames, channels)
	}

	masterFixed := toFixed(m.masterGainValue())
	for i := 0; i < need; i++ {
		output[i] = clampInt16((acc[i] * masterFixed) >> fixedPointBits)
	}

	if m.mixCycles != nil {
		m.mixCycles.Inc()
	}
	if m.activeGauge != nil {
		active := 0
		for _, l := range m.layers {
			if l.ShouldMix() {
				active++
			}
		}
		m.activeGauge.Set(float64(active))
	}

	m.insideMutex.Store(false)
	m.mu.Unlock()

	m.queue.Drain()

	return frames
}

// mixLayer advances one layer by frames output frames, resampling via
// linear interpolation when the layer's effective sample rate (set by
// pitch/speed) differs from the device rate — the original's
// src_process path, simplified here per SPEC_FULL.md's explicit
// no-high-quality-SRC non-goal — and accumulates the result into acc
// with the layer's L/R gain applied.
func (m *Amplimix) mixLayer(l *layer.Layer, acc []int32, frames, deviceChannels int) {
	inst := l.Snd
	if inst == nil || inst.Data == nil {
		return
	}
	data := inst.Data
	format := data.Format()
	srcChannels := format.Channels
	if srcChannels <= 0 {
		srcChannels = deviceChannels
	}

	l.UpdatePitch(m.dev.SampleRate)
	step := l.PlaySpeed() * float64(format.SampleRate) / float64(m.dev.SampleRate)
	if step <= 0 {
		step = 1
	}

	needed := int(math.Ceil(float64(frames)*step)) + 2

	end := l.End
	if end <= 0 {
		end = math.MaxInt64
	}

	srcChunk := m.pool.Get(needed, srcChannels, chunk.TagAmplimix)
	if srcChunk == nil {
		m.logger.Warn("chunk pool exhausted, dropping layer this cycle", "layer", l.ID)
		return
	}
	defer m.pool.Put(srcChunk)

	cursor := l.Cursor()
	avail := end - cursor
	if avail < int64(needed) {
		needed = int(avail)
	}

	var framesRead int
	var err error
	if needed > 0 {
		if data.IsStream() {
			framesRead, err = data.StreamFrames(srcChunk.Samples, cursor, needed)
		} else {
			framesRead = data.ReadStatic(srcChunk.Samples, cursor, needed)
		}
	}
	if err != nil {
		m.logger.Warn("decode error, halting layer", "layer", l.ID, "err", err)
		framesRead = 0
	}

	if l.Effects != nil && framesRead > 0 {
		l.Effects.Process(srcChunk.Samples[:framesRead*srcChannels], framesRead, srcChannels, format.SampleRate)
	}

	gainL, gainR := l.GainLR()
	gainLFixed := toFixed(gainL)
	gainRFixed := toFixed(gainR)

	var pos float64
	var outFrames int
	if step == 1 {
		// Fast path: no resample needed, so the accumulate loop reads
		// source frames directly instead of interpolating, letting it
		// batch simdLaneWidth() frames at a time the way the teacher's
		// chip mixer batches its accumulate step per detected vector
		// width, rather than always running one sample at a time.
		outFrames = accumulateLanes(acc, srcChunk.Samples, frames, framesRead-1, srcChannels, deviceChannels, gainLFixed, gainRFixed, simdLaneWidth())
		pos = float64(outFrames)
	} else {
		for i := 0; i < frames; i++ {
			i0 := int(pos)
			if i0 >= framesRead-1 {
				break
			}
			frac := pos - float64(i0)

			left0, right0 := sampleAt(srcChunk.Samples, i0, srcChannels)
			left1, right1 := sampleAt(srcChunk.Samples, i0+1, srcChannels)

			left := left0 + (left1-left0)*frac
			right := right0 + (right1-right0)*frac

			base := i * deviceChannels
			acc[base] += (int32(left) * gainLFixed) >> fixedPointBits
			if deviceChannels > 1 {
				acc[base+1] += (int32(right) * gainRFixed) >> fixedPointBits
			}

			pos += step
			outFrames = i + 1
		}
	}

	newCursor := cursor + int64(pos)
	if outFrames >= frames && framesRead > int(pos) {
		// Fully satisfied this cycle from data already in hand.
		l.CompareAndSwapCursor(cursor, newCursor)
		return
	}

	// Ran out of source data before filling the whole output buffer.
	// OnSoundLooped fires on every crossing while the layer is looping,
	// regardless of whether the loop count lets it continue (matching
	// OnSoundLooped in original_source/src/Mixer/Mixer.cpp, which always
	// logs and increments before deciding to halt); only afterward does
	// RegisterLoop's result decide between wrapping the cursor back to
	// Start and falling through to OnSoundEnded. Both callbacks run via
	// the deferred command queue so they never run while the audio mutex
	// is held.
	l.CompareAndSwapCursor(cursor, newCursor)

	if l.Flag() == layer.FlagLoop {
		shouldContinue := inst.RegisterLoop()
		m.queue.Push(func() bool {
			if m.cb.OnLooped != nil {
				m.cb.OnLooped(l.ID, inst)
			}
			return true
		})
		if shouldContinue {
			l.SetCursor(l.Start)
			return
		}
	}

	l.ForceFlag(layer.FlagMin)
	kind := SoundKind(inst.Kind)
	m.queue.Push(func() bool {
		if m.cb.OnEnded != nil {
			m.cb.OnEnded(l.ID, inst)
		}
		m.endOfSoundPolicy(kind, l.ID, inst)
		return true
	})
}

// accumulateLanes mixes up to limit of the first frames source frames into
// acc, processing lane frames per iteration (falling back to one at a time
// for the tail shorter than a full lane) rather than one sample at a time;
// this is the straight-copy (no resample) counterpart of the interpolated
// loop above, used whenever a layer's play speed needs no resampling.
func accumulateLanes(acc []int32, src []int16, frames, limit, srcChannels, deviceChannels int, gainLFixed, gainRFixed int32, lane int) int {
	if limit > frames {
		limit = frames
	}
	if limit < 0 {
		limit = 0
	}
	if lane < 1 {
		lane = 1
	}

	i := 0
	for ; i+lane <= limit; i += lane {
		for j := 0; j < lane; j++ {
			accumulateOne(acc, src, i+j, srcChannels, deviceChannels, gainLFixed, gainRFixed)
		}
	}
	for ; i < limit; i++ {
		accumulateOne(acc, src, i, srcChannels, deviceChannels, gainLFixed, gainRFixed)
	}
	return limit
}

func accumulateOne(acc []int32, src []int16, i, srcChannels, deviceChannels int, gainLFixed, gainRFixed int32) {
	left, right := sampleAt(src, i, srcChannels)
	base := i * deviceChannels
	acc[base] += (int32(left) * gainLFixed) >> fixedPointBits
	if deviceChannels > 1 {
		acc[base+1] += (int32(right) * gainRFixed) >> fixedPointBits
	}
}

// sampleAt returns the (left, right) sample pair at source frame index i:
// a mono source is duplicated to both sides, and a source with two or
// more channels contributes only its first two (no downmix of the rest) —
// a minimal stand-in for the original's full Vorbis-standard channel
// converter. The mix loop writes only the first two device channels.
func sampleAt(buf []int16, i, channels int) (float64, float64) {
	base := i * channels
	if base+channels > len(buf) {
		return 0, 0
	}
	switch channels {
	case 1:
		v := float64(buf[base])
		return v, v
	default:
		return float64(buf[base]), float64(buf[base+1])
	}
}
