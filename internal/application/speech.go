package application

import (
	"context"
	"fmt"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, waveformPath string) (string, error)
}

// TextToSpeech resolves a phrase to a playable audio file. cached is false
// when no audio is available for the phrase; the caller then falls back to
// printing it.
type TextToSpeech interface {
	Synthesize(ctx context.Context, phrase string) (cached bool, path string, err error)
}

// NoopSTT is used when no speech-to-text backend is configured.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ string) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set asr.provider to enable transcription")
}

// NoopTTS never has audio, so every phrase goes to the console.
type NoopTTS struct{}

func (n *NoopTTS) Synthesize(_ context.Context, _ string) (bool, string, error) {
	return false, "", nil
}
