package adapter

import (
	"context"
	"iter"
)

// Message is one conversation turn as sent to a model backend.
type Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ReplyStreamer is the port for streamed LLM replies.
//
// StreamReply returns a lazy, finite sequence of text fragments that
// concatenate into the full reply. The sequence ends when the backend
// signals end of turn or when the consumer stops pulling. A sequence is
// not restartable; each turn issues a fresh call. Errors are yielded as
// ("", err) and end the sequence.
type ReplyStreamer interface {
	Name() string
	StreamReply(ctx context.Context, prefix []Message, instructions string) iter.Seq2[string, error]
}
