// Package wav implements codec.Codec for RIFF/WAVE PCM16 and float streams,
// grounded on tphakala-birdnet-go's use of go-audio/wav for ingesting bird
// call recordings.
package wav

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/soundkit/amplimix/codec"
)

// Codec recognizes and decodes WAV files.
type Codec struct{}

func (Codec) Name() string { return "wav" }

func (Codec) CanHandle(peek []byte) bool {
	return len(peek) >= 12 && bytes.Equal(peek[0:4], []byte("RIFF")) && bytes.Equal(peek[8:12], []byte("WAVE"))
}

func (Codec) NewDecoder() codec.Decoder { return &Decoder{} }

// Decoder drives go-audio/wav's pull-based PCMBuffer API.
type Decoder struct {
	dec    *wav.Decoder
	r      io.ReadSeeker
	format codec.Format
}

func (d *Decoder) Open(r io.ReadSeeker) (codec.Format, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return codec.Format{}, errors.New("wav: not a valid RIFF/WAVE file")
	}

	d.dec = dec
	d.r = r
	d.format = codec.Format{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
		TotalFrames:   dec.NumSamples(),
		SampleType:    codec.SampleI16,
		Interleave:    codec.Interleaved,
	}
	return d.format, nil
}

func (d *Decoder) Load(out []int16) (int, error) {
	return d.readInto(out)
}

func (d *Decoder) Stream(out []int16, frameOffset int64, frames int) (int, error) {
	if err := d.Seek(frameOffset); err != nil {
		return 0, err
	}
	return d.readInto(out[:frames*d.format.Channels])
}

func (d *Decoder) readInto(out []int16) (int, error) {
	divisor := divisorForBitDepth(d.format.BitsPerSample)
	if divisor == 0 {
		return 0, errors.New("wav: unsupported bit depth")
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, len(out)),
		Format: &audio.Format{SampleRate: d.format.SampleRate, NumChannels: d.format.Channels},
	}

	n, err := d.dec.PCMBuffer(buf)
	if err != nil && err != io.EOF {
		return 0, err
	}

	for i := 0; i < n; i++ {
		out[i] = int16(clampSample(buf.Data[i], divisor))
	}

	return n / d.format.Channels, nil
}

func (d *Decoder) Seek(frameOffset int64) error {
	byteOffset := int64(d.format.Channels*d.format.BitsPerSample/8) * frameOffset
	_, err := d.dec.Seek(byteOffset, io.SeekStart)
	return err
}

func (d *Decoder) Close() error { return nil }

func divisorForBitDepth(bits int) int {
	switch bits {
	case 16:
		return 1 << 15
	case 24:
		return 1 << 23
	case 32:
		return 1 << 31
	default:
		return 0
	}
}

// clampSample rescales a decoded integer sample of arbitrary bit depth into
// the int16 range the mixing core operates on.
func clampSample(sample, divisor int) int32 {
	scaled := int32(float64(sample) / float64(divisor) * float64(1<<15))
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return scaled
}
