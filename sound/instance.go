package sound

import "github.com/soundkit/amplimix/fader"

// Instance is one playback of a Data asset: the mutable, per-play state a
// caller (asset loading / high-level engine orchestration, both out of
// this core's scope) configures before handing the instance to a layer.
type Instance struct {
	ID   uint64
	Data *Data

	Gain    float64
	Pan     float64
	Pitch   float64
	Speed   float64

	LoopCount        int // 1 (the NewInstance default) means play once; 0 means loop forever
	CurrentLoopCount int // incremented by RegisterLoop, mirroring IncrementSoundLoopCount

	// Kind selects which of the three end-of-sound lifecycle paths the
	// mixer runs once this instance's playback naturally ends; see
	// mixer.SoundKind. Zero value is Standalone.
	Kind int

	Obstruction float64
	Occlusion   float64

	GainFader  *fader.Fader
	PanFader   *fader.Fader
	PitchFader *fader.Fader

	UserData any
}

// NewInstance constructs an instance over data with neutral defaults
// (unity gain/pitch/speed, centered pan, no fades active).
func NewInstance(id uint64, data *Data) *Instance {
	data.Retain()
	return &Instance{
		ID:        id,
		Data:      data,
		Gain:      1,
		Pitch:     1,
		Speed:     1,
		LoopCount: 1,
	}
}

// RegisterLoop increments the completed-loop counter and reports whether
// playback should continue looping, matching the original's OnSoundLooped
// incrementing a counter and halting once it reaches LoopCount.
func (i *Instance) RegisterLoop() (shouldContinue bool) {
	i.CurrentLoopCount++
	if i.LoopCount == 0 {
		return true
	}
	return i.CurrentLoopCount < i.LoopCount
}

// Release drops this instance's reference to its Data, returning true if
// that was the last reference (the caller should then destroy the Data).
func (i *Instance) Release() bool {
	return i.Data.Release()
}
