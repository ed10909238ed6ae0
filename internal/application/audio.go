package application

import (
	"context"

	"voice-mic/internal/domain"
)

type AudioFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1,
		BitDepth:   16,
	}
}

// CaptureStream is an open input stream. ReadFrame blocks until one full
// frame is available, which under normal device conditions takes about
// frameSize/sampleRate.
type CaptureStream interface {
	ReadFrame(ctx context.Context) (domain.Frame, error)
	Close() error
}

type AudioInput interface {
	Name() string
	OpenCapture(format AudioFormat, frameSize int) (CaptureStream, error)
}

type AudioOutput interface {
	PlayFile(ctx context.Context, path string) error
}

// WaveformSink persists a finished recording. Each call replaces whatever
// was previously stored at path.
type WaveformSink interface {
	WriteWaveform(path string, format AudioFormat, samples []int16) error
}
