package pipeline

// EnvironmentEntry is one zone a sound instance currently overlaps, with a
// weight in [0,1] describing how strongly that zone applies (e.g. based on
// distance to the zone's boundary), matching the per-sound environment
// membership the original engine's ChannelInternalState tracks.
type EnvironmentEntry struct {
	ID     uint64
	Weight float64
	Stage  Stage
}

// EnvironmentProcessor applies the highest-weighted environment's stage to
// the signal, scaled by that weight. It constructs and caches no stages
// itself; only its scratch buffer is reused across calls.
//
// Unlike the codec registry, environment stages are supplied per-call by
// the caller (the mixer already knows which zones a sound overlaps from
// spatial queries out of this core's scope), so there is no factory lookup
// here — only selection and blending.
type EnvironmentProcessor struct {
	scratch []int16
}

// Process selects the entry with the greatest Weight (ties broken by
// first-seen order) and blends its processed output into buffer
// proportional to that weight; an empty entries list is a no-op.
func (e *EnvironmentProcessor) Process(buffer []int16, frames, channels, sampleRate int, entries []EnvironmentEntry) {
	if len(entries) == 0 {
		return
	}

	best := entries[0]
	for _, entry := range entries[1:] {
		if entry.Weight > best.Weight {
			best = entry
		}
	}
	if best.Stage == nil || best.Weight <= 0 {
		return
	}

	n := frames * channels
	if cap(e.scratch) < n {
		e.scratch = make([]int16, n)
	}
	wet := e.scratch[:n]
	copy(wet, buffer[:n])
	best.Stage.Process(wet, frames, channels, sampleRate)

	weightFixed := toFixed(clamp01(best.Weight))
	dryFixed := fixedPointOne - weightFixed
	for i := 0; i < n; i++ {
		out := (int32(buffer[i])*dryFixed + int32(wet[i])*weightFixed) >> fixedPointBits
		buffer[i] = clampInt16(out)
	}
}
