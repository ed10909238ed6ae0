//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/afero"

	"voice-mic/internal/application"
	"voice-mic/internal/domain"
)

const playbackFrames = 1024

// PortAudio captures from the default input device and plays WAV files on
// the default output device.
type PortAudio struct {
	fs     afero.Fs
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
}

func NewPortAudio(fs afero.Fs, logger *slog.Logger) *PortAudio {
	return &PortAudio{fs: fs, logger: logger}
}

func (p *PortAudio) Name() string {
	return "microphone"
}

func (p *PortAudio) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	p.initialized = true
	return nil
}

func (p *PortAudio) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

func (p *PortAudio) OpenCapture(format application.AudioFormat, frameSize int) (application.CaptureStream, error) {
	if err := p.Init(); err != nil {
		return nil, err
	}

	buffer := make([]int16, frameSize*format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		format.Channels,
		0,
		float64(format.SampleRate),
		frameSize,
		buffer,
	)
	if err != nil {
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	p.logger.Debug("capture stream opened", "sampleRate", format.SampleRate, "frameSize", frameSize)
	return &micStream{stream: stream, buffer: buffer}, nil
}

type micStream struct {
	stream *portaudio.Stream
	buffer []int16
}

func (s *micStream) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}
	return domain.Frame(s.buffer).Clone(), nil
}

func (s *micStream) Close() error {
	return errors.Join(s.stream.Stop(), s.stream.Close())
}

func (p *PortAudio) PlayFile(ctx context.Context, path string) error {
	if err := p.Init(); err != nil {
		return err
	}

	format, samples, err := ReadWaveform(p.fs, path)
	if err != nil {
		return err
	}

	out := make([]int16, playbackFrames*format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		0,
		format.Channels,
		float64(format.SampleRate),
		playbackFrames,
		out,
	)
	if err != nil {
		return fmt.Errorf("opening output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, samples[pos:])
		clear(out[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("writing to output stream: %w", err)
		}
	}

	return nil
}
