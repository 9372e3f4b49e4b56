// Package codec defines the decoder abstraction the mixing core pulls PCM
// frames through, and the explicit registry used to pick a codec for a
// given file without any package-scope global state.
package codec

import "io"

// SampleKind is the decoded sample representation a Decoder produces.
type SampleKind int

const (
	SampleI16 SampleKind = iota
	SampleF32
)

// Interleave describes how multi-channel samples are laid out in memory.
type Interleave int

const (
	Interleaved Interleave = iota
	Planar
)

// Format is an immutable descriptor of a decoded PCM stream.
type Format struct {
	SampleRate int
	Channels   int
	BitsPerSample int
	TotalFrames   int64
	SampleType    SampleKind
	Interleave    Interleave
}

// FrameSize is the size in bytes of one interleaved frame (all channels).
func (f Format) FrameSize() int {
	bytesPerSample := 2
	if f.SampleType == SampleF32 {
		bytesPerSample = 4
	}
	return bytesPerSample * f.Channels
}

// Decoder is a pull-based PCM source. Open is called exactly once per
// instance. Load is used for fully-cached (non-streamed) sounds and must
// return exactly Format().TotalFrames frames, or 0 on failure. Stream is
// called on every mix cycle for streamed sounds.
type Decoder interface {
	// Open prepares the decoder to read from r, returning the stream's
	// format once headers have been parsed.
	Open(r io.ReadSeeker) (Format, error)

	// Load decodes the entire stream into out, which must be sized for
	// Format().TotalFrames*Format().Channels samples. Returns the number
	// of frames actually decoded; 0 signals failure.
	Load(out []int16) (framesDecoded int, err error)

	// Stream decodes up to frames frames starting at frameOffset into out,
	// returning the number of frames actually produced. A short read below
	// frames (including 0) means end of stream; the caller decides whether
	// to Seek(0) and retry when the owning layer loops.
	Stream(out []int16, frameOffset int64, frames int) (framesProduced int, err error)

	// Seek repositions the read cursor to frameOffset, in whole frames.
	Seek(frameOffset int64) error

	// Close releases any resources Open acquired.
	Close() error
}

// Codec identifies and constructs decoders for one file format.
type Codec interface {
	// Name is the codec's registry key, e.g. "wav", "mp3", "ogg", "flac".
	Name() string

	// CanHandle peeks at the first bytes of a file (as read from its
	// header) and reports whether this codec recognizes the format.
	CanHandle(peek []byte) bool

	// NewDecoder constructs an unopened Decoder for this codec.
	NewDecoder() Decoder
}

// Registry is an explicit, immutable view over a fixed set of codecs,
// built once by the caller and handed to mixer.New, never mutated afterward —
// the redesign called for in SPEC_FULL.md §9 in place of a package-scope
// global registry populated by static-initializer side effects.
type Registry struct {
	codecs []Codec
}

// NewRegistry builds an immutable registry from codecs, in priority order:
// the first codec whose CanHandle matches a given peek wins.
func NewRegistry(codecs ...Codec) *Registry {
	cp := make([]Codec, len(codecs))
	copy(cp, codecs)
	return &Registry{codecs: cp}
}

// Find returns the codec matching peek, or nil if none recognize it.
func (r *Registry) Find(peek []byte) Codec {
	for _, c := range r.codecs {
		if c.CanHandle(peek) {
			return c
		}
	}
	return nil
}

// ByName looks up a codec by its registered name.
func (r *Registry) ByName(name string) Codec {
	for _, c := range r.codecs {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// PeekSize is the number of header bytes decoders need to make a CanHandle
// determination; callers should read this many bytes (or fewer, at EOF)
// before calling Find.
const PeekSize = 12
