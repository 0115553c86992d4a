package ai

import "qualitative-interview/internal/domain/ports/adapter"

// withLeadingUser prepends a placeholder user turn for backends that require
// the conversation to open with the user. The placeholder only ever exists in
// the outgoing request.
func withLeadingUser(prefix []adapter.Message, greeting string) []adapter.Message {
	if len(prefix) > 0 && prefix[0].Role == adapter.RoleUser {
		return prefix
	}
	if greeting == "" {
		greeting = "Hi"
	}
	out := make([]adapter.Message, 0, len(prefix)+1)
	out = append(out, adapter.Message{Role: adapter.RoleUser, Content: greeting})
	return append(out, prefix...)
}
