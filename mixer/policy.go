package mixer

import "github.com/soundkit/amplimix/sound"

// SoundKind distinguishes the three end-of-sound lifecycles the original
// engine's OnSoundEnded dispatches on a goto-based three-path switch:
// a standalone one-off sound, a sound that was swapped out mid-play by a
// switch container, and a sound drawn from a collection the higher
// engine manages. Only Standalone and Switched are fully resolved here;
// Contained defers to CollectionExhausted since collection iteration
// itself is out of this core's scope.
type SoundKind int

const (
	KindStandalone SoundKind = iota
	KindSwitched
	KindContained
)

// endOfSoundPolicy runs the lifecycle callback sequence appropriate to
// kind when a layer's sound reaches its natural end without looping,
// resolving the ambiguity spec.md leaves open around the original's
// three end-of-sound paths:
//   - Standalone: OnStopped fires after OnEnded, once the layer has
//     already been freed, so the sound gets the same callback a
//     manually-stopped sound would.
//   - Switched: the layer is freed silently, no OnStopped — the switch
//     container (out of scope) already knows it replaced this sound.
//   - Contained: neither callback fires here; CollectionExhausted is
//     invoked instead so the owning collection (out of scope) decides
//     whether to advance to the next member or stop the channel.
func (m *Amplimix) endOfSoundPolicy(kind SoundKind, layerID uint64, inst *sound.Instance) {
	switch kind {
	case KindStandalone:
		if m.cb.OnStopped != nil {
			m.cb.OnStopped(layerID, inst)
		}
	case KindSwitched:
		// Deliberately silent: no OnStopped dispatch.
	case KindContained:
		if m.cb.CollectionExhausted != nil {
			m.cb.CollectionExhausted(layerID, inst)
		}
	}
}
