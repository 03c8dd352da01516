package agent

import "context"

// Item is one "conversation item added" event from the room transport.
// The room emits items for both sides: user speech after transcription, and
// agent speech after synthesis.
type Item struct {
	Role string // "user" or "assistant"
	Text string
}

// Transport is the minimal interface to the realtime room. Speak must
// serialize utterances: a new call may not overlap a previous one unless
// allowInterruption permitted cutting it off.
type Transport interface {
	Connect(ctx context.Context) error
	Items() <-chan Item
	Speak(ctx context.Context, text string, allowInterruption bool) error
	Close() error
}

// VoiceSelector is implemented by transports whose synthesis voice can be
// switched once the session language locks.
type VoiceSelector interface {
	SetVoice(voice string)
}

// Generator produces one interviewer reply from the rendered instructions and
// the labeled conversation history.
type Generator interface {
	Generate(ctx context.Context, instructions, conversation string) (string, error)
}

// Archiver stores the rendered end-of-call transcript artifact.
type Archiver interface {
	Upload(objectKey string, contentType string, body []byte) error
}

type nopArchiver struct{}

func (nopArchiver) Upload(string, string, []byte) error { return nil }
