package application

import (
	"context"

	"voice-mic/internal/domain"
)

type ConversationLog interface {
	Record(ctx context.Context, speaker domain.Speaker, text string)
}

type NoopConversationLog struct{}

func (NoopConversationLog) Record(_ context.Context, _ domain.Speaker, _ string) {}
