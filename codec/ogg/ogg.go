// Package ogg implements codec.Codec for Ogg Vorbis streams.
package ogg

import (
	"bytes"
	"io"
	"math"

	"github.com/jfreymuth/oggvorbis"

	"github.com/soundkit/amplimix/codec"
)

// Codec recognizes the "OggS" capture pattern at the start of a stream.
type Codec struct{}

func (Codec) Name() string { return "ogg" }

func (Codec) CanHandle(peek []byte) bool {
	return len(peek) >= 4 && bytes.Equal(peek[0:4], []byte("OggS"))
}

func (Codec) NewDecoder() codec.Decoder { return &Decoder{} }

// Decoder wraps jfreymuth/oggvorbis, converting its float32 output into the
// int16 samples the mixing core operates on.
type Decoder struct {
	rd     *oggvorbis.Reader
	format codec.Format
}

// readerAtSeeker adapts an io.ReadSeeker to io.ReaderAt so oggvorbis can
// support SetPosition-based seeking without buffering the whole stream.
type readerAtSeeker struct {
	r io.ReadSeeker
}

func (a readerAtSeeker) ReadAt(p []byte, off int64) (int, error) {
	if _, err := a.r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(a.r, p)
}

func (d *Decoder) Open(r io.ReadSeeker) (codec.Format, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return codec.Format{}, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return codec.Format{}, err
	}

	rd, err := oggvorbis.NewReaderAt(readerAtSeeker{r}, size)
	if err != nil {
		return codec.Format{}, err
	}

	d.rd = rd
	d.format = codec.Format{
		SampleRate:    rd.SampleRate(),
		Channels:      rd.Channels(),
		BitsPerSample: 16,
		TotalFrames:   rd.Length(),
		SampleType:    codec.SampleI16,
		Interleave:    codec.Interleaved,
	}
	return d.format, nil
}

func (d *Decoder) Load(out []int16) (int, error) {
	return d.readFrames(out, len(out)/d.format.Channels)
}

func (d *Decoder) Stream(out []int16, frameOffset int64, frames int) (int, error) {
	if err := d.Seek(frameOffset); err != nil {
		return 0, err
	}
	return d.readFrames(out, frames)
}

func (d *Decoder) readFrames(out []int16, frames int) (int, error) {
	need := frames * d.format.Channels
	fbuf := make([]float32, need)

	total := 0
	for total < len(fbuf) {
		n, err := d.rd.Read(fbuf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		if n == 0 {
			break
		}
	}

	for i := 0; i < total; i++ {
		out[i] = floatToInt16(fbuf[i])
	}

	return total / d.format.Channels, nil
}

func (d *Decoder) Seek(frameOffset int64) error {
	return d.rd.SetPosition(frameOffset)
}

func (d *Decoder) Close() error { return nil }

func floatToInt16(f float32) int16 {
	v := float64(f) * 32768
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(math.Round(v))
}
