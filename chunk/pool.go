// Package chunk provides aligned PCM sample buffers backed by a fixed-size
// pool, safe to allocate from and free on the real-time audio thread.
package chunk

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
)

// Alignment is the required byte alignment of every Chunk's backing
// storage, matching the SIMD lane width the mix loop processes samples in.
const Alignment = 16

// Tag identifies the purpose a Chunk was allocated for, so allocation
// counts can be broken down by subsystem the way the original engine's
// MemoryPoolKind did.
type Tag int

const (
	TagAmplimix Tag = iota
	TagCodec
	TagSoundData
	TagFiltering
	TagEngine
	TagDefault
	tagCount
)

func (t Tag) String() string {
	switch t {
	case TagAmplimix:
		return "amplimix"
	case TagCodec:
		return "codec"
	case TagSoundData:
		return "sound_data"
	case TagFiltering:
		return "filtering"
	case TagEngine:
		return "engine"
	default:
		return "default"
	}
}

// Chunk is an aligned PCM buffer. Samples holds Frames*Channels int16
// samples, interleaved. Invariant: len(Samples) == Frames*Channels.
type Chunk struct {
	Frames   int
	Channels int
	Samples  []int16

	raw []int16 // over-allocated backing array; Samples is an aligned slice of raw
	tag Tag
}

// Pool is a fixed-capacity slab allocator keyed by Tag. It never grows once
// constructed, so Get/Put are safe to call from the audio callback: either
// a free slot exists or Get returns nil and the caller must treat it as an
// allocation failure per the hot-path contract.
type Pool struct {
	mu    sync.Mutex
	free  [tagCount][]*Chunk
	stats [tagCount]poolStats

	allocTotal *prometheus.CounterVec
	freeTotal  *prometheus.CounterVec
	peakBytes  *prometheus.GaugeVec
}

type poolStats struct {
	allocs    atomic.Uint64
	frees     atomic.Uint64
	peakBytes atomic.Uint64
	liveBytes atomic.Int64
}

// NewPool constructs a pool with capacity free chunks pre-reserved per tag,
// each sized to hold up to maxFrames*maxChannels samples. capacity should be
// sized generously relative to layer count since the pool never grows.
func NewPool(capacity, maxFrames, maxChannels int, registerer prometheus.Registerer) *Pool {
	p := &Pool{
		allocTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amplimix",
			Subsystem: "chunk_pool",
			Name:      "allocations_total",
			Help:      "Chunks handed out by the sample buffer pool, by tag.",
		}, []string{"tag"}),
		freeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amplimix",
			Subsystem: "chunk_pool",
			Name:      "frees_total",
			Help:      "Chunks returned to the sample buffer pool, by tag.",
		}, []string{"tag"}),
		peakBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "amplimix",
			Subsystem: "chunk_pool",
			Name:      "peak_bytes",
			Help:      "Peak bytes simultaneously checked out of the pool, by tag.",
		}, []string{"tag"}),
	}

	if registerer != nil {
		registerer.MustRegister(p.allocTotal, p.freeTotal, p.peakBytes)
	}

	for t := Tag(0); t < tagCount; t++ {
		slots := make([]*Chunk, 0, capacity)
		for i := 0; i < capacity; i++ {
			slots = append(slots, newAlignedChunk(maxFrames, maxChannels, t))
		}
		p.free[t] = slots
	}

	return p
}

func newAlignedChunk(frames, channels int, tag Tag) *Chunk {
	n := frames * channels
	// Over-allocate so we can hand back a 16-byte-aligned sub-slice
	// regardless of where the Go runtime places the backing array.
	pad := Alignment / 2 // int16 is 2 bytes; pad in elements
	raw := make([]int16, n+pad)

	off := alignedOffset(raw)
	return &Chunk{
		Frames:   frames,
		Channels: channels,
		Samples:  raw[off : off+n],
		raw:      raw,
		tag:      tag,
	}
}

func alignedOffset(s []int16) int {
	if len(s) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&s[0]))
	rem := addr % Alignment
	if rem == 0 {
		return 0
	}
	return int((Alignment - rem) / 2)
}

// Get returns a chunk able to hold frames*channels samples, or nil if the
// pool for tag is exhausted. The returned chunk's Samples slice is resliced
// to exactly frames*channels and zeroed.
func (p *Pool) Get(frames, channels int, tag Tag) *Chunk {
	need := frames * channels

	p.mu.Lock()
	slots := p.free[tag]
	var c *Chunk
	for i, cand := range slots {
		if len(cand.raw) >= need+Alignment/2 {
			c = cand
			p.free[tag] = append(slots[:i], slots[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	if c == nil {
		return nil
	}

	off := alignedOffset(c.raw)
	c.Samples = c.raw[off : off+need]
	for i := range c.Samples {
		c.Samples[i] = 0
	}
	c.Frames = frames
	c.Channels = channels

	st := &p.stats[tag]
	st.allocs.Add(1)
	live := st.liveBytes.Add(int64(need) * 2)
	for {
		peak := st.peakBytes.Load()
		if uint64(live) <= peak {
			break
		}
		if st.peakBytes.CompareAndSwap(peak, uint64(live)) {
			break
		}
	}

	if p.allocTotal != nil {
		p.allocTotal.WithLabelValues(tag.String()).Inc()
		p.peakBytes.WithLabelValues(tag.String()).Set(float64(st.peakBytes.Load()))
	}

	return c
}

// Put returns a chunk to its pool. Safe to call from the audio thread.
func (p *Pool) Put(c *Chunk) {
	if c == nil {
		return
	}

	st := &p.stats[c.tag]
	st.frees.Add(1)
	st.liveBytes.Add(-int64(len(c.Samples)) * 2)

	p.mu.Lock()
	p.free[c.tag] = append(p.free[c.tag], c)
	p.mu.Unlock()

	if p.freeTotal != nil {
		p.freeTotal.WithLabelValues(c.tag.String()).Inc()
	}
}

// Stats reports the allocation/free counters and peak bytes for tag.
func (p *Pool) Stats(tag Tag) (allocs, frees, peakBytes uint64) {
	st := &p.stats[tag]
	return st.allocs.Load(), st.frees.Load(), st.peakBytes.Load()
}
