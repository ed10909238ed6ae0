package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"voice-mic/internal/application"
	"voice-mic/internal/domain"
)

// FileInput replays a WAV file as if it were the microphone. Once the file is
// exhausted it keeps producing silent frames, the way a quiet room would.
type FileInput struct {
	fs       afero.Fs
	path     string
	realtime bool
	logger   *slog.Logger
}

func NewFileInput(fs afero.Fs, path string, realtime bool, logger *slog.Logger) *FileInput {
	return &FileInput{
		fs:       fs,
		path:     path,
		realtime: realtime,
		logger:   logger,
	}
}

func (f *FileInput) Name() string {
	return "file"
}

func (f *FileInput) OpenCapture(format application.AudioFormat, frameSize int) (application.CaptureStream, error) {
	got, samples, err := ReadWaveform(f.fs, f.path)
	if err != nil {
		return nil, err
	}

	if got.SampleRate != format.SampleRate || got.Channels != format.Channels {
		return nil, fmt.Errorf("%s is %d Hz/%d ch, capture wants %d Hz/%d ch",
			f.path, got.SampleRate, got.Channels, format.SampleRate, format.Channels)
	}

	var pace time.Duration
	if f.realtime {
		pace = time.Duration(frameSize) * time.Second / time.Duration(format.SampleRate)
	}

	f.logger.Info("replaying audio file", "path", f.path, "samples", len(samples))

	return &fileStream{
		samples:   samples,
		frameSize: frameSize,
		pace:      pace,
	}, nil
}

type fileStream struct {
	samples   []int16
	pos       int
	frameSize int
	pace      time.Duration
}

func (s *fileStream) ReadFrame(ctx context.Context) (domain.Frame, error) {
	if s.pace > 0 {
		timer := time.NewTimer(s.pace)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := make(domain.Frame, s.frameSize)
	if s.pos < len(s.samples) {
		s.pos += copy(frame, s.samples[s.pos:])
	}
	return frame, nil
}

func (s *fileStream) Close() error {
	return nil
}
