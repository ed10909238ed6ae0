//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"voice-mic/internal/application"
)

var errNoPortAudio = errors.New("microphone not available: rebuild with -tags portaudio")

// PortAudio stub when portaudio is not available
type PortAudio struct {
	logger *slog.Logger
}

func NewPortAudio(_ afero.Fs, logger *slog.Logger) *PortAudio {
	return &PortAudio{logger: logger}
}

func (p *PortAudio) Name() string {
	return "microphone"
}

func (p *PortAudio) Init() error {
	return errNoPortAudio
}

func (p *PortAudio) Terminate() error {
	return nil
}

func (p *PortAudio) OpenCapture(_ application.AudioFormat, _ int) (application.CaptureStream, error) {
	return nil, errNoPortAudio
}

func (p *PortAudio) PlayFile(_ context.Context, _ string) error {
	return errNoPortAudio
}
