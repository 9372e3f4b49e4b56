// Package flac implements codec.Codec for FLAC streams.
package flac

import (
	"bytes"
	"io"

	"github.com/tphakala/flac"
	"github.com/tphakala/flac/frame"

	"github.com/soundkit/amplimix/codec"
)

// Codec recognizes the "fLaC" stream marker.
type Codec struct{}

func (Codec) Name() string { return "flac" }

func (Codec) CanHandle(peek []byte) bool {
	return len(peek) >= 4 && bytes.Equal(peek[0:4], []byte("fLaC"))
}

func (Codec) NewDecoder() codec.Decoder { return &Decoder{} }

// Decoder pulls frames from tphakala/flac and flattens their per-channel
// planar subframes into the interleaved int16 layout the core expects.
type Decoder struct {
	stream *flac.Stream
	format codec.Format

	pending    *frame.Frame
	pendingOff int
	cursor     int64
}

func (d *Decoder) Open(r io.ReadSeeker) (codec.Format, error) {
	stream, err := flac.NewSeek(r)
	if err != nil {
		return codec.Format{}, err
	}

	d.stream = stream
	d.format = codec.Format{
		SampleRate:    int(stream.Info.SampleRate),
		Channels:      int(stream.Info.NChannels),
		BitsPerSample: int(stream.Info.BitsPerSample),
		TotalFrames:   int64(stream.Info.NSamples),
		SampleType:    codec.SampleI16,
		Interleave:    codec.Interleaved,
	}
	return d.format, nil
}

func (d *Decoder) Load(out []int16) (int, error) {
	return d.readFrames(out, len(out)/d.format.Channels)
}

func (d *Decoder) Stream(out []int16, frameOffset int64, frames int) (int, error) {
	if frameOffset != d.cursor {
		if err := d.Seek(frameOffset); err != nil {
			return 0, err
		}
	}
	return d.readFrames(out, frames)
}

func (d *Decoder) readFrames(out []int16, frames int) (int, error) {
	channels := d.format.Channels
	shift := uint(32 - d.format.BitsPerSample)

	produced := 0
	for produced < frames {
		if d.pending == nil {
			f, err := d.stream.ParseNext()
			if err != nil {
				if err == io.EOF {
					break
				}
				return produced, err
			}
			d.pending = f
			d.pendingOff = 0
		}

		blockSize := len(d.pending.Subframes[0].Samples)
		for d.pendingOff < blockSize && produced < frames {
			base := produced * channels
			for ch := 0; ch < channels; ch++ {
				sample := d.pending.Subframes[ch].Samples[d.pendingOff]
				out[base+ch] = int16(sample << shift >> 16)
			}
			d.pendingOff++
			produced++
		}

		if d.pendingOff >= blockSize {
			d.pending = nil
		}
	}

	d.cursor += int64(produced)
	return produced, nil
}

func (d *Decoder) Seek(frameOffset int64) error {
	if _, err := d.stream.Seek(uint64(frameOffset)); err != nil {
		return err
	}
	d.pending = nil
	d.pendingOff = 0
	d.cursor = frameOffset
	return nil
}

func (d *Decoder) Close() error { return d.stream.Close() }
