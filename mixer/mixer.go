// Package mixer implements the Amplimix facade: layer allocation and
// lifecycle, gain/pan/pitch/cursor control, and the audio-callback mix
// loop itself, grounded throughout on
// original_source/src/Mixer/Mixer.cpp.
package mixer

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundkit/amplimix/chunk"
	"github.com/soundkit/amplimix/cmdqueue"
	"github.com/soundkit/amplimix/codec"
	"github.com/soundkit/amplimix/device"
	"github.com/soundkit/amplimix/filter"
	"github.com/soundkit/amplimix/layer"
	"github.com/soundkit/amplimix/pipeline"
	"github.com/soundkit/amplimix/sound"
)

// LifecycleCallbacks mirrors the original's OnSoundStarted/Paused/Resumed/
// Stopped/Looped/Ended/Destroyed dispatch out of Mixer::SetPlayState and
// MixLayer's end-of-stream handling. Any field left nil is simply not
// invoked; asset/engine-level orchestration (out of this core's scope)
// typically hooks OnEnded and OnLooped.
type LifecycleCallbacks struct {
	OnStarted  func(layerID uint64, inst *sound.Instance)
	OnPaused   func(layerID uint64, inst *sound.Instance)
	OnResumed  func(layerID uint64, inst *sound.Instance)
	OnStopped  func(layerID uint64, inst *sound.Instance)
	OnLooped   func(layerID uint64, inst *sound.Instance)
	OnEnded    func(layerID uint64, inst *sound.Instance)
	OnDestroyed func(layerID uint64, inst *sound.Instance)

	// CollectionExhausted is invoked after OnEnded, in place of OnStopped,
	// when a Contained sound (see endOfSoundPolicy) reaches its natural
	// end; the higher-level collection owner decides what happens next.
	CollectionExhausted func(layerID uint64, inst *sound.Instance)
}

// Config bundles everything Amplimix needs at construction time.
type Config struct {
	LayerCount      int
	Device          device.Description
	Pool            *chunk.Pool
	Codecs          *codec.Registry
	Filters         *filter.Registry
	CommandCapacity int
	Logger          *log.Logger
	Registerer      prometheus.Registerer
	Callbacks       LifecycleCallbacks
}

// Amplimix is the real-time mixing core: N fixed voice layers, a deferred
// command queue, and the Mix entry point an audio backend calls once per
// buffer.
type Amplimix struct {
	layers  []*layer.Layer
	pool    *chunk.Pool
	codecs  *codec.Registry
	filters *filter.Registry
	queue   *cmdqueue.Queue
	dev     device.Description
	logger  *log.Logger
	cb      LifecycleCallbacks

	masterGain atomic.Uint64 // float64 bits

	mu            sync.Mutex
	insideMutex   atomic.Bool
	nextLayerID   atomic.Uint64

	acc []int32 // reused accumulation buffer, frames*channels, in sample units before master gain and clipping

	mixCycles   prometheus.Counter
	activeGauge prometheus.Gauge
}

// New constructs an Amplimix with cfg.LayerCount free voice slots.
func New(cfg Config) *Amplimix {
	m := &Amplimix{
		layers:  make([]*layer.Layer, cfg.LayerCount),
		pool:    cfg.Pool,
		codecs:  cfg.Codecs,
		filters: cfg.Filters,
		dev:     cfg.Device,
		logger:  cfg.Logger,
		cb:      cfg.Callbacks,
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	m.queue = cmdqueue.New(cfg.CommandCapacity, m.logger)
	m.masterGain.Store(math.Float64bits(1))

	for i := range m.layers {
		id := m.nextLayerID.Add(1)
		m.layers[i] = layer.New(id)
	}

	if cfg.Registerer != nil {
		m.mixCycles = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amplimix", Name: "mix_cycles_total", Help: "Audio callback invocations.",
		})
		m.activeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "amplimix", Name: "active_layers", Help: "Layers currently playing or looping.",
		})
		cfg.Registerer.MustRegister(m.mixCycles, m.activeGauge)
	}

	return m
}

// SetMasterGain sets the overall linear output gain.
func (m *Amplimix) SetMasterGain(gain float64) {
	m.masterGain.Store(math.Float64bits(gain))
}

func (m *Amplimix) masterGainValue() float64 {
	return math.Float64frombits(m.masterGain.Load())
}

func (m *Amplimix) findLayer(id uint64) *layer.Layer {
	for _, l := range m.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// PlayParams configures a newly reserved layer; Start/End are frame
// offsets into inst.Data bounding the playable range (End==0 means "to
// the end of the decoded data").
type PlayParams struct {
	Gain, Pan, Pitch, Speed float64
	Start, End              int64
	Effects                 *pipeline.Pipeline

	// Flag selects the play state the layer starts in once reserved —
	// FlagPlay (the default, zero value) or FlagLoop, matching the
	// original's PlayAdvanced taking an explicit PlayStateFlag rather than
	// always starting in Play and requiring a separate SetPlayState call.
	Flag layer.Flag
}

// Play reserves a free layer and begins playback of inst, returning the
// reserved layer's ID and true, or (0, false) if every layer is busy —
// the mixing core never grows its layer pool at runtime — or if the
// deferred start could not be queued because the command queue is full.
func (m *Amplimix) Play(inst *sound.Instance, p PlayParams) (uint64, bool) {
	for _, l := range m.layers {
		if !l.CompareAndSwapFlag(layer.FlagMin, layer.FlagHalt) {
			continue
		}

		if p.Speed == 0 {
			p.Speed = 1
		}
		if p.Pitch == 0 {
			p.Pitch = 1
		}
		startFlag := p.Flag
		if startFlag == layer.FlagMin {
			startFlag = layer.FlagPlay
		}

		l.Snd = inst
		l.Start = p.Start
		l.End = p.End
		l.Effects = p.Effects
		l.SetCursor(p.Start)
		l.SetGainPan(p.Gain, p.Pan)
		l.SetPitch(p.Pitch)
		l.SetPlaySpeed(p.Speed)

		apply := func() bool {
			l.ForceFlag(startFlag)
			if m.cb.OnStarted != nil {
				m.cb.OnStarted(l.ID, inst)
			}
			return true
		}

		if m.insideMutex.Load() {
			if !m.queue.Push(apply) {
				l.Snd = nil
				l.Effects = nil
				l.ForceFlag(layer.FlagMin)
				return 0, false
			}
		} else {
			apply()
		}

		return l.ID, true
	}

	return 0, false
}

// SetGainPan, SetPitch, SetPlaySpeed, and SetCursor below write straight
// into the layer's atomic fields instead of going through the
// insideMutex-gated deferred-command path Play uses. That is safe here:
// each writes a single independent atomic value that Mix only ever reads
// (GainLR/PlaySpeed/UpdatePitch/Cursor), so there is no multi-field
// invariant to preserve and no risk of Mix observing a torn update. Play
// defers instead because starting a layer writes several non-atomic
// fields (Snd, Start, End, Effects) that must all land before ForceFlag
// publishes the layer as mixable.

// SetGainPan updates a playing layer's gain and pan.
func (m *Amplimix) SetGainPan(id uint64, gain, pan float64) bool {
	l := m.findLayer(id)
	if l == nil || l.Flag() == layer.FlagMin {
		return false
	}
	l.SetGainPan(gain, pan)
	return true
}

// SetPitch updates a playing layer's pitch multiplier.
func (m *Amplimix) SetPitch(id uint64, pitch float64) bool {
	l := m.findLayer(id)
	if l == nil || l.Flag() == layer.FlagMin {
		return false
	}
	l.SetPitch(pitch)
	return true
}

// SetPlaySpeed updates a playing layer's speed multiplier.
func (m *Amplimix) SetPlaySpeed(id uint64, speed float64) bool {
	l := m.findLayer(id)
	if l == nil || l.Flag() == layer.FlagMin {
		return false
	}
	l.SetPlaySpeed(speed)
	return true
}

// SetCursor repositions a playing layer's read cursor, in frames relative
// to the underlying sound.Data.
func (m *Amplimix) SetCursor(id uint64, frame int64) bool {
	l := m.findLayer(id)
	if l == nil || l.Flag() == layer.FlagMin {
		return false
	}
	l.SetCursor(frame)
	return true
}

// GetPlayState reports a layer's current state.
func (m *Amplimix) GetPlayState(id uint64) (layer.Flag, bool) {
	l := m.findLayer(id)
	if l == nil {
		return layer.FlagMin, false
	}
	return l.Flag(), true
}

// SetPlayState requests a lifecycle transition, dispatching the matching
// callback on success; a transition to the layer's current state is a
// no-op that still reports success, matching the original.
func (m *Amplimix) SetPlayState(id uint64, to layer.Flag) bool {
	l := m.findLayer(id)
	if l == nil {
		return false
	}

	from := l.Flag()
	if from == to {
		return true
	}
	if from == layer.FlagMin {
		return false
	}

	if !l.CompareAndSwapFlag(from, to) {
		return false
	}

	m.dispatchTransition(l, from, to)
	return true
}

func (m *Amplimix) dispatchTransition(l *layer.Layer, from, to layer.Flag) {
	switch {
	case to == layer.FlagHalt && from == layer.FlagPlay:
		if m.cb.OnPaused != nil {
			m.cb.OnPaused(l.ID, l.Snd)
		}
	case to == layer.FlagPlay && from == layer.FlagHalt:
		if m.cb.OnResumed != nil {
			m.cb.OnResumed(l.ID, l.Snd)
		}
	case to == layer.FlagStop || to == layer.FlagMin:
		if m.cb.OnStopped != nil {
			m.cb.OnStopped(l.ID, l.Snd)
		}
	}
}

// bulkTransition forces every non-free layer into to, used by
// StopAll/HaltAll/PlayAll.
func (m *Amplimix) bulkTransition(to layer.Flag) {
	for _, l := range m.layers {
		if l.Flag() == layer.FlagMin {
			continue
		}
		from := l.Flag()
		l.ForceFlag(to)
		m.dispatchTransition(l, from, to)
	}
}

// StopAll halts and releases every active layer.
func (m *Amplimix) StopAll() { m.bulkTransition(layer.FlagMin) }

// HaltAll pauses every active layer without releasing it.
func (m *Amplimix) HaltAll() { m.bulkTransition(layer.FlagHalt) }

// Destroy force-stops the layer playing id, if any, and dispatches
// OnDestroyed — the terminal lifecycle event the original fires once a
// sound's channel is fully torn down rather than merely stopped.
func (m *Amplimix) Destroy(id uint64) bool {
	l := m.findLayer(id)
	if l == nil || l.Flag() == layer.FlagMin {
		return false
	}

	inst := l.Snd
	l.ForceFlag(layer.FlagMin)
	l.Snd = nil

	if m.cb.OnDestroyed != nil {
		m.cb.OnDestroyed(id, inst)
	}
	return true
}

// PlayAll resumes every halted layer.
func (m *Amplimix) PlayAll() {
	for _, l := range m.layers {
		if l.Flag() == layer.FlagHalt {
			l.ForceFlag(layer.FlagPlay)
			if m.cb.OnResumed != nil {
				m.cb.OnResumed(l.ID, l.Snd)
			}
		}
	}
}
