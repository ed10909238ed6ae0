package application

import (
	"context"
	"log/slog"
)

// Playback plays cues and synthesized speech. Failures are logged and never
// returned: callers continue their state transition regardless.
type Playback struct {
	logger *slog.Logger
}

func NewPlayback(logger *slog.Logger) *Playback {
	return &Playback{logger: logger}
}

// Play blocks until the file has finished playing. An empty path is skipped.
func (p *Playback) Play(ctx context.Context, lease *DeviceLease, path string) {
	if path == "" {
		return
	}
	if err := lease.Play(ctx, path); err != nil {
		p.logger.Warn("playback failed", "path", path, "error", err)
	}
}
