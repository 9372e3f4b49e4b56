// Command amplimixdemo plays a single audio file through the Amplimix
// mixing core end to end: decode, reserve a layer, run the Mix loop once
// per device buffer, and push the result out through oto or portaudio.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/gordonklaus/portaudio"
	"gopkg.in/yaml.v3"

	"github.com/soundkit/amplimix/chunk"
	"github.com/soundkit/amplimix/codec"
	"github.com/soundkit/amplimix/codec/flac"
	"github.com/soundkit/amplimix/codec/mp3"
	"github.com/soundkit/amplimix/codec/ogg"
	"github.com/soundkit/amplimix/codec/wav"
	"github.com/soundkit/amplimix/device"
	"github.com/soundkit/amplimix/filter"
	"github.com/soundkit/amplimix/layer"
	"github.com/soundkit/amplimix/mixer"
	"github.com/soundkit/amplimix/sound"
)

// CLI is the amplimixdemo command line, in the jivetalking/kong style:
// a flat struct of flags plus a single positional argument.
type CLI struct {
	File string `arg:"" name:"file" help:"Audio file to play (wav, mp3, ogg, or flac)." type:"existingfile"`

	Backend    string  `help:"Output backend." default:"oto" enum:"oto,portaudio"`
	Config     string  `help:"YAML effects pipeline config (see mixer.PipelineConfig)." type:"existingfile" optional:""`
	Gain       float64 `help:"Linear playback gain." default:"1"`
	Pan        float64 `help:"Stereo pan, -1 (left) to 1 (right)." default:"0"`
	Pitch      float64 `help:"Pitch multiplier." default:"1"`
	Loop       bool    `help:"Loop the file forever instead of playing once."`
	SampleRate int     `help:"Output device sample rate." default:"44100"`
	Layers     int     `help:"Mixer voice layers to reserve." default:"8"`
	Debug      bool    `short:"d" help:"Enable debug logging."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("amplimixdemo"),
		kong.Description("Play a file through the Amplimix mixing core."),
		kong.UsageOnError(),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if cli.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(cli, logger); err != nil {
		logger.Fatal("amplimixdemo", "err", err)
	}
}

func run(cli CLI, logger *log.Logger) error {
	registry := codec.NewRegistry(wav.Codec{}, mp3.Codec{}, ogg.Codec{}, flac.Codec{})

	inst, format, err := loadInstance(cli.File, registry)
	if err != nil {
		return fmt.Errorf("loading %s: %w", cli.File, err)
	}
	if cli.Loop {
		inst.LoopCount = 0
	}

	filters := filter.NewRegistry()

	var effects *mixer.PipelineConfig
	if cli.Config != "" {
		effects, err = loadPipelineConfig(cli.Config)
		if err != nil {
			return fmt.Errorf("loading effects config: %w", err)
		}
	}

	dev := device.Description{
		Name:                "amplimixdemo",
		RequestedSampleRate: cli.SampleRate,
		SampleRate:          cli.SampleRate,
		Layout:              device.LayoutStereo,
		Format:              device.FormatI16,
		BufferFrames:        1024,
	}

	pool := chunk.NewPool(cli.Layers*3, 8192, 2, nil)

	done := make(chan struct{})
	var closeOnce bool

	m := mixer.New(mixer.Config{
		LayerCount:      cli.Layers,
		Device:          dev,
		Pool:            pool,
		Codecs:          registry,
		Filters:         filters,
		CommandCapacity: cli.Layers * 8,
		Logger:          logger,
		Callbacks: mixer.LifecycleCallbacks{
			OnEnded: func(layerID uint64, inst *sound.Instance) {
				logger.Debug("sound ended", "layer", layerID)
				if !closeOnce {
					closeOnce = true
					close(done)
				}
			},
		},
	})

	params := mixer.PlayParams{
		Gain:  cli.Gain,
		Pan:   cli.Pan,
		Pitch: cli.Pitch,
		Speed: 1,
		End:   format.TotalFrames,
	}
	if cli.Loop {
		params.Flag = layer.FlagLoop
	}
	if effects != nil {
		params.Effects = mixer.BuildPipeline(*effects, filters, func(msg string, kv ...any) {
			logger.Warn(msg, kv...)
		})
	}

	if _, ok := m.Play(inst, params); !ok {
		return errors.New("no free mixer layer to play on")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cli.Backend {
	case "portaudio":
		return runPortaudio(ctx, m, dev, done, logger)
	default:
		return runOto(ctx, m, dev, done, logger)
	}
}

// loadInstance opens path, identifies its codec from the registry, fully
// decodes it, and wraps the result as a sound.Instance ready to Play —
// the demo always decodes eagerly rather than streaming, since a short
// one-shot file is the common case and Data.StreamFrames exists for the
// cases that aren't.
func loadInstance(path string, registry *codec.Registry) (*sound.Instance, codec.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, codec.Format{}, err
	}
	defer f.Close()

	peek := make([]byte, codec.PeekSize)
	n, err := io.ReadFull(f, peek)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, codec.Format{}, err
	}
	peek = peek[:n]
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, codec.Format{}, err
	}

	c := registry.Find(peek)
	if c == nil {
		return nil, codec.Format{}, fmt.Errorf("%s: unrecognized audio format", path)
	}

	dec := c.NewDecoder()
	format, err := dec.Open(f)
	if err != nil {
		return nil, codec.Format{}, err
	}
	defer dec.Close()

	samples := make([]int16, format.TotalFrames*int64(format.Channels))
	framesDecoded, err := dec.Load(samples)
	if err != nil {
		return nil, codec.Format{}, err
	}
	samples = samples[:int64(framesDecoded)*int64(format.Channels)]
	format.TotalFrames = int64(framesDecoded)

	data := sound.NewStatic(format, samples)
	inst := sound.NewInstance(1, data)
	return inst, format, nil
}

func loadPipelineConfig(path string) (*mixer.PipelineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg mixer.PipelineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// otoReader adapts Amplimix.Mix to the io.Reader oto's player pulls
// interleaved int16 bytes from, following the teacher's OtoPlayer.Read
// pattern of filling from a fixed-size pre-allocated sample buffer rather
// than allocating per callback.
type otoReader struct {
	m       *mixer.Amplimix
	channels int
	scratch []int16
}

func (r *otoReader) Read(p []byte) (int, error) {
	frames := len(p) / 2 / r.channels
	if frames == 0 {
		return 0, nil
	}
	need := frames * r.channels
	if len(r.scratch) < need {
		r.scratch = make([]int16, need)
	}
	buf := r.scratch[:need]

	produced := r.m.Mix(buf, frames)
	n := produced * r.channels
	for i := 0; i < n; i++ {
		p[i*2] = byte(buf[i])
		p[i*2+1] = byte(buf[i] >> 8)
	}
	return n * 2, nil
}

func runOto(ctx context.Context, m *mixer.Amplimix, dev device.Description, done chan struct{}, logger *log.Logger) error {
	opts := &oto.NewContextOptions{
		SampleRate:   dev.SampleRate,
		ChannelCount: dev.Channels(),
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(dev.BufferFrames) * time.Second / time.Duration(dev.SampleRate),
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return fmt.Errorf("oto: %w", err)
	}
	<-ready

	reader := &otoReader{m: m, channels: dev.Channels()}
	player := otoCtx.NewPlayer(reader)
	player.Play()
	defer player.Close()

	logger.Info("playing", "backend", "oto", "sample_rate", dev.SampleRate)

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func runPortaudio(ctx context.Context, m *mixer.Amplimix, dev device.Description, done chan struct{}, logger *log.Logger) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: %w", err)
	}
	defer portaudio.Terminate()

	channels := dev.Channels()
	scratch := make([]int16, dev.BufferFrames*channels)

	// gordonklaus/portaudio hands multi-channel output as one slice per
	// channel rather than interleaved, so Mix fills an interleaved scratch
	// buffer and the callback splits it out — matching the
	// SeaOfWolf-hephaestus-forge processAudio copy-out shape.
	callback := func(out [][]int16) {
		frames := len(out[0])
		if cap(scratch) < frames*channels {
			scratch = make([]int16, frames*channels)
		}
		buf := scratch[:frames*channels]
		produced := m.Mix(buf, frames)
		for ch := 0; ch < channels; ch++ {
			for i := 0; i < frames; i++ {
				if i < produced {
					out[ch][i] = buf[i*channels+ch]
				} else {
					out[ch][i] = 0
				}
			}
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(dev.SampleRate), dev.BufferFrames, callback)
	if err != nil {
		return fmt.Errorf("portaudio: open stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w", err)
	}
	defer stream.Stop()

	logger.Info("playing", "backend", "portaudio", "sample_rate", dev.SampleRate)

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}
