// Package sound models shared, reference-counted sound data and the
// per-playback instance state layered on top of it, grounded on
// original_source/src/Mixer/SoundData.h's SoundData/SoundChunk split
// between fully-decoded ("music"/static) and streamed sound data.
package sound

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/soundkit/amplimix/codec"
)

// Kind distinguishes fully-decoded data from data pulled incrementally
// from a codec.Decoder during playback.
type Kind int

const (
	KindStatic Kind = iota
	KindStream
)

// Data is a single decoded asset, shared by every Instance that plays it.
// It is reference-counted because the same asset is frequently played by
// several concurrent instances (footsteps, gunshots, UI blips).
type Data struct {
	mu       sync.Mutex
	kind     Kind
	format   codec.Format
	refCount atomic.Int32

	// KindStatic: the full decode, owned here.
	samples []int16

	// KindStream: pulls frames from decoder on demand.
	decoder codec.Decoder
	reader  io.ReadSeeker

	userData any
}

// NewStatic wraps a fully-decoded sample buffer with a single reference.
func NewStatic(format codec.Format, samples []int16) *Data {
	d := &Data{kind: KindStatic, format: format, samples: samples}
	d.refCount.Store(1)
	return d
}

// NewStream wraps a decoder for on-demand streaming with a single
// reference; decoder must already have had Open called on it.
func NewStream(format codec.Format, decoder codec.Decoder, reader io.ReadSeeker) *Data {
	d := &Data{
		kind:    KindStream,
		format:  format,
		decoder: decoder,
		reader:  reader,
	}
	d.refCount.Store(1)
	return d
}

// Format reports the decoded stream's format.
func (d *Data) Format() codec.Format { return d.format }

// IsStream reports whether this data is pulled incrementally.
func (d *Data) IsStream() bool { return d.kind == KindStream }

// SetUserData attaches caller-defined metadata (asset path, tags) to the
// shared data, mirroring the original's opaque userData field.
func (d *Data) SetUserData(v any) { d.userData = v }

// UserData returns whatever was last passed to SetUserData.
func (d *Data) UserData() any { return d.userData }

// Retain increments the reference count; callers must pair every Retain
// with a Release.
func (d *Data) Retain() { d.refCount.Add(1) }

// Release decrements the reference count and reports whether it reached
// zero, at which point the caller is responsible for destroying any
// chunk-pool buffers backing samples and closing the decoder.
func (d *Data) Release() bool {
	return d.refCount.Add(-1) == 0
}

// RefCount reports the current reference count, for diagnostics.
func (d *Data) RefCount() int32 { return d.refCount.Load() }

// ReadStatic copies up to frames frames from offset frameOffset in the
// fully-decoded buffer into out (bounded by the data and by len(out)),
// returning the number of frames available to copy. Safe to
// call concurrently from multiple layers mixing the same asset.
func (d *Data) ReadStatic(out []int16, frameOffset int64, frames int) int {
	channels := d.format.Channels
	total := int64(len(d.samples)) / int64(channels)

	if frameOffset >= total {
		return 0
	}

	avail := total - frameOffset
	if int64(frames) > avail {
		frames = int(avail)
	}

	start := frameOffset * int64(channels)
	end := start + int64(frames)*int64(channels)
	copy(out, d.samples[start:end])
	return frames
}

// StreamFrames decodes up to frames frames starting at frameOffset into
// out via the underlying decoder's Stream method, serialized against
// concurrent calls from other layers sharing this asset.
func (d *Data) StreamFrames(out []int16, frameOffset int64, frames int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoder.Stream(out, frameOffset, frames)
}

// Close releases the decoder, if any. Safe to call once refcount hits 0.
func (d *Data) Close() error {
	if d.decoder != nil {
		return d.decoder.Close()
	}
	return nil
}
