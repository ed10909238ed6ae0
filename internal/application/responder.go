package application

import (
	"context"
	"fmt"
)

// Responder turns a user transcript into the phrase the device speaks back.
type Responder interface {
	Respond(ctx context.Context, transcript string) (string, error)
}

// EchoResponder repeats the transcript.
type EchoResponder struct{}

func (EchoResponder) Respond(_ context.Context, transcript string) (string, error) {
	return transcript, nil
}

// ReplyInstructions is the system prompt for model-backed responders.
func ReplyInstructions(name string) string {
	return fmt.Sprintf(`You are %s, a voice assistant running on a small speaker.
Your answer is converted to speech and played aloud.

- Reply in one or two short sentences.
- Plain text only: no markdown, lists, code or emoji.
- Answer in the language the user spoke.
- If you did not understand, say so briefly and ask the user to repeat.`, name)
}
