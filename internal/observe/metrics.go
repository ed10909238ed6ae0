// Package observe holds the OpenTelemetry instruments recorded by the mic and
// the provider setup that exposes them to Prometheus.
//
// Tests should build a [Metrics] with [NewMetrics] over a meter provider backed
// by a manual reader. A nil *Metrics is valid and records nothing.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "voice-mic"

// Metrics holds every instrument the mic records. All fields are safe for
// concurrent use.
type Metrics struct {
	// Sessions counts finished recording sessions by attribute "reason"
	// (silence, timeout, canceled, error).
	Sessions metric.Int64Counter

	// SessionFrames records how many frames each completed session captured.
	SessionFrames metric.Int64Histogram

	CaptureDuration metric.Float64Histogram
	ASRDuration     metric.Float64Histogram
	TTSDuration     metric.Float64Histogram

	// StateTransitions counts entries into each mic state (attribute "state").
	StateTransitions metric.Int64Counter

	// CollaboratorErrors counts failures by attribute "collaborator".
	CollaboratorErrors metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds sized for speech capture
// and cloud speech round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("voicemic.sessions",
		metric.WithDescription("Finished active-listening sessions by stop reason."),
	); err != nil {
		return nil, err
	}
	if met.SessionFrames, err = m.Int64Histogram("voicemic.session.frames",
		metric.WithDescription("Frames captured per active-listening session."),
	); err != nil {
		return nil, err
	}
	if met.CaptureDuration, err = m.Float64Histogram("voicemic.capture.duration",
		metric.WithDescription("Wall time spent capturing one command."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ASRDuration, err = m.Float64Histogram("voicemic.asr.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voicemic.tts.duration",
		metric.WithDescription("Latency of speech cache lookup and synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("voicemic.state.transitions",
		metric.WithDescription("Mic state entries by target state."),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorErrors, err = m.Int64Counter("voicemic.collaborator.errors",
		metric.WithDescription("Collaborator failures by collaborator name."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

func (m *Metrics) RecordSession(ctx context.Context, reason string, frames int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("reason", reason))
	m.Sessions.Add(ctx, 1, attrs)
	if frames > 0 {
		m.SessionFrames.Record(ctx, int64(frames), attrs)
		m.CaptureDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func (m *Metrics) RecordState(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

func (m *Metrics) RecordCollaboratorError(ctx context.Context, collaborator string) {
	if m == nil {
		return
	}
	m.CollaboratorErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("collaborator", collaborator)))
}

func (m *Metrics) ObserveASR(ctx context.Context, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ASRDuration.Record(ctx, elapsed.Seconds())
}

func (m *Metrics) ObserveTTS(ctx context.Context, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TTSDuration.Record(ctx, elapsed.Seconds())
}
