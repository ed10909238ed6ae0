//go:build whisper

package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/spf13/afero"

	"voice-mic/internal/infra/audio"
)

const sampleRate = 16000

// Transcriber runs whisper.cpp over a recorded WAV file. The model is loaded
// once; each call gets its own context.
type Transcriber struct {
	fs       afero.Fs
	language string
	logger   *slog.Logger

	mu    sync.Mutex
	model whisperlib.Model
}

func New(fs afero.Fs, modelPath, language string, logger *slog.Logger) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading whisper model %q: %w", modelPath, err)
	}
	return &Transcriber{fs: fs, language: language, logger: logger, model: model}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, waveformPath string) (string, error) {
	format, samples, err := audio.ReadWaveform(t.fs, waveformPath)
	if err != nil {
		return "", err
	}
	if format.SampleRate != sampleRate {
		return "", fmt.Errorf("whisper needs %d Hz audio, got %d Hz", sampleRate, format.SampleRate)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return "", errors.New("whisper model closed")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("creating whisper context: %w", err)
	}
	if t.language != "" {
		if err := wctx.SetLanguage(t.language); err != nil {
			t.logger.Warn("whisper language not supported, using default", "language", t.language, "error", err)
		}
	}

	if err := wctx.Process(toFloat32Mono(samples, format.Channels), nil, nil, nil); err != nil {
		return "", fmt.Errorf("processing audio: %w", err)
	}

	var segments []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading segment: %w", err)
		}
		segments = append(segments, segment.Text)
	}

	return joinSegments(segments), nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}
