package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-mic/internal/domain"
	"voice-mic/internal/observe"
	"voice-mic/internal/vad"
)

type SessionConfig struct {
	Format    AudioFormat
	FrameSize int
	MaxRecord time.Duration
	// OutputPath is overwritten by every session.
	OutputPath string
	// EndCue is played once capture stops, before the stream is released.
	EndCue string
	VAD    vad.Config
}

type Recording struct {
	Path     string
	Format   AudioFormat
	Samples  []int16
	Frames   int
	Reason   domain.StopReason
	Duration time.Duration
}

// RecordingSession captures one spoken command: it reads frames until the
// voice activity detector stops it, then writes the whole capture to the
// waveform sink. Detector state is created fresh for every Record call.
type RecordingSession struct {
	cfg      SessionConfig
	sink     WaveformSink
	playback *Playback
	logger   *slog.Logger
	metrics  *observe.Metrics
}

func NewRecordingSession(
	cfg SessionConfig,
	sink WaveformSink,
	playback *Playback,
	logger *slog.Logger,
	metrics *observe.Metrics,
) *RecordingSession {
	return &RecordingSession{
		cfg:      cfg,
		sink:     sink,
		playback: playback,
		logger:   logger,
		metrics:  metrics,
	}
}

// MaxFrames is the hard frame budget of one session, never less than one
// frame so the cap cannot be switched off.
func (s *RecordingSession) MaxFrames() int {
	return max(1, vad.FrameBudget(s.cfg.Format.SampleRate, s.cfg.FrameSize, s.cfg.MaxRecord))
}

// Record runs one session on the given lease. The capture stream is closed on
// every return path. A cancelled ctx aborts the session without writing
// anything and returns ctx.Err().
func (s *RecordingSession) Record(ctx context.Context, lease *DeviceLease) (*Recording, error) {
	stream, err := lease.OpenCapture(s.cfg.Format, s.cfg.FrameSize)
	if err != nil {
		s.metrics.RecordSession(ctx, "error", 0, 0)
		return nil, fmt.Errorf("%w: opening stream: %w", ErrCapture, err)
	}
	defer stream.Close()

	vadCfg := s.cfg.VAD
	vadCfg.MaxFrames = s.MaxFrames()
	detector := vad.New(vadCfg)

	samples := make([]int16, 0, vadCfg.MaxFrames*s.cfg.FrameSize)
	start := time.Now()

	s.logger.Info("active listen recording", "max_frames", vadCfg.MaxFrames, "frame_size", s.cfg.FrameSize)

	var res vad.Result
	for !res.Stop {
		if err := ctx.Err(); err != nil {
			s.metrics.RecordSession(ctx, "canceled", 0, 0)
			return nil, err
		}

		frame, err := stream.ReadFrame(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.metrics.RecordSession(ctx, "canceled", 0, 0)
				return nil, ctxErr
			}
			s.metrics.RecordSession(ctx, "error", 0, 0)
			return nil, fmt.Errorf("%w: reading frame %d: %w", ErrCapture, res.Frames+1, err)
		}

		samples = append(samples, frame...)
		res = detector.Process(frame)

		s.logger.Debug("vad frame",
			"frame", res.Frames,
			"average", res.Average,
			"threshold", res.Threshold,
			"quiet_run", res.QuietRun,
		)
	}
	elapsed := time.Since(start)

	s.playback.Play(ctx, lease, s.cfg.EndCue)
	s.logger.Info("active listen done recording",
		"frames", res.Frames,
		"reason", res.Reason,
		"elapsed", elapsed,
	)

	if err := stream.Close(); err != nil {
		s.logger.Warn("closing capture stream", "error", err)
	}

	if err := s.sink.WriteWaveform(s.cfg.OutputPath, s.cfg.Format, samples); err != nil {
		s.metrics.RecordSession(ctx, "error", res.Frames, elapsed)
		return nil, fmt.Errorf("%w: writing waveform: %w", ErrCapture, err)
	}

	s.metrics.RecordSession(ctx, string(res.Reason), res.Frames, elapsed)

	return &Recording{
		Path:     s.cfg.OutputPath,
		Format:   s.cfg.Format,
		Samples:  samples,
		Frames:   res.Frames,
		Reason:   res.Reason,
		Duration: elapsed,
	}, nil
}
