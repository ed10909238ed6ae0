// Package conversation records what was heard and said.
package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"voice-mic/internal/application"
	"voice-mic/internal/domain"
)

// LogSink writes conversation turns to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, speaker domain.Speaker, text string) {
	s.logger.InfoContext(ctx, "conversation", "speaker", string(speaker), "text", text)
}

const webhookQueueSize = 32

// WebhookSink posts each turn as JSON to a webhook from a background worker.
// Delivery is best effort: failures are logged, and turns arriving while the
// queue is full are dropped.
type WebhookSink struct {
	url        string
	device     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	closed bool
	queue  chan turn
	done   chan struct{}
}

func NewWebhookSink(url, device string, logger *slog.Logger) *WebhookSink {
	s := &WebhookSink{
		url:        url,
		device:     device,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
		now:        time.Now,
		queue:      make(chan turn, webhookQueueSize),
		done:       make(chan struct{}),
	}
	go s.deliver()
	return s
}

type turn struct {
	Device  string    `json:"device"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
}

// Record queues the turn and returns immediately.
func (s *WebhookSink) Record(_ context.Context, speaker domain.Speaker, text string) {
	if s.url == "" {
		return
	}

	t := turn{
		Device:  s.device,
		Speaker: string(speaker),
		Text:    text,
		Time:    s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- t:
	default:
		s.logger.Warn("conversation webhook queue full, turn dropped", "speaker", t.Speaker)
	}
}

// Close stops accepting turns and waits for queued ones to be delivered.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

func (s *WebhookSink) deliver() {
	defer close(s.done)
	for t := range s.queue {
		if err := s.post(context.Background(), t); err != nil {
			s.logger.Warn("conversation webhook failed", "error", err)
		}
	}
}

func (s *WebhookSink) post(ctx context.Context, t turn) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}
	return nil
}

// Multi fans a turn out to several logs in order.
type Multi []application.ConversationLog

func (m Multi) Record(ctx context.Context, speaker domain.Speaker, text string) {
	for _, l := range m {
		l.Record(ctx, speaker, text)
	}
}
