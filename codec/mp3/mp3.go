// Package mp3 implements codec.Codec for MPEG-1/2 Layer III streams using a
// pure-Go decoder, avoiding any cgo dependency on the audio thread.
package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/soundkit/amplimix/codec"
)

// Codec recognizes MP3 streams by their frame sync or ID3 header.
type Codec struct{}

func (Codec) Name() string { return "mp3" }

func (Codec) CanHandle(peek []byte) bool {
	if len(peek) >= 3 && bytes.Equal(peek[0:3], []byte("ID3")) {
		return true
	}
	return len(peek) >= 2 && peek[0] == 0xFF && peek[1]&0xE0 == 0xE0
}

func (Codec) NewDecoder() codec.Decoder { return &Decoder{} }

// Decoder wraps go-mp3, which always produces interleaved stereo 16-bit PCM
// regardless of the source stream's original channel count.
type Decoder struct {
	dec    *gomp3.Decoder
	format codec.Format
	cursor int64
}

func (d *Decoder) Open(r io.ReadSeeker) (codec.Format, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return codec.Format{}, err
	}

	const channels = 2
	const bytesPerFrame = channels * 2
	totalFrames := dec.Length() / bytesPerFrame

	d.dec = dec
	d.format = codec.Format{
		SampleRate:    dec.SampleRate(),
		Channels:      channels,
		BitsPerSample: 16,
		TotalFrames:   totalFrames,
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
	raw := make([]byte, need*2)

	total := 0
	for total < len(raw) {
		n, err := d.dec.Read(raw[total:])
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

	produced := total / 2
	for i := 0; i < produced; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
	}

	d.cursor += int64(produced / d.format.Channels)
	return produced / d.format.Channels, nil
}

func (d *Decoder) Seek(frameOffset int64) error {
	byteOffset := frameOffset * int64(d.format.Channels) * 2
	n, err := d.dec.Seek(byteOffset, io.SeekStart)
	if err != nil {
		return err
	}
	if n != byteOffset {
		return errors.New("mp3: short seek")
	}
	d.cursor = frameOffset
	return nil
}

func (d *Decoder) Close() error { return nil }
