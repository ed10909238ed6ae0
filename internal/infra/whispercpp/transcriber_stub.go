//go:build !whisper

package whispercpp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/afero"
)

var errNoWhisper = errors.New("local transcription not available: rebuild with -tags whisper")

// Transcriber stub when whisper.cpp is not linked
type Transcriber struct{}

func New(_ afero.Fs, _, _ string, _ *slog.Logger) (*Transcriber, error) {
	return nil, errNoWhisper
}

func (t *Transcriber) Transcribe(_ context.Context, _ string) (string, error) {
	return "", errNoWhisper
}

func (t *Transcriber) Close() error {
	return nil
}
