// Package device describes the audio device surface the mixing core
// targets without itself opening any device — device I/O is external
// collaborator territory (see SPEC_FULL.md §1); this package only carries
// the negotiated description a concrete backend (cmd/amplimixdemo's oto
// or portaudio wiring) fills in.
package device

// ChannelLayout names the speaker configuration the core mixes for.
type ChannelLayout int

const (
	LayoutMono ChannelLayout = iota
	LayoutStereo
	LayoutQuad
	Layout5Point1
	Layout7Point1
)

func (c ChannelLayout) Channels() int {
	switch c {
	case LayoutMono:
		return 1
	case LayoutStereo:
		return 2
	case LayoutQuad:
		return 4
	case Layout5Point1:
		return 6
	case Layout7Point1:
		return 8
	default:
		return 2
	}
}

// SampleFormat is the PCM representation the device callback expects.
type SampleFormat int

const (
	FormatI16 SampleFormat = iota
	FormatF32
)

// Description is the negotiated device configuration the mixer's Mix
// method is called against: the sample rate, channel layout, format, and
// buffer size actually granted by the backend, which may differ from what
// was requested.
type Description struct {
	ID   string
	Name string

	RequestedSampleRate int
	SampleRate          int

	Layout ChannelLayout
	Format SampleFormat

	BufferFrames int
}

// Channels is a convenience accessor over Layout.Channels().
func (d Description) Channels() int { return d.Layout.Channels() }
