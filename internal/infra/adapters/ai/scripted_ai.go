package ai

import (
	"context"
	"iter"
	"strings"
	"sync"
	"time"

	"qualitative-interview/internal/domain/ports/adapter"
)

var _ adapter.ReplyStreamer = (*ScriptedAdapter)(nil)

// ScriptedAdapter plays back canned replies for local/dev runs. Each call
// consumes the next reply; once the script runs out the last reply repeats.
// Replies are streamed word by word with an optional delay.
type ScriptedAdapter struct {
	mu      sync.Mutex
	replies []string
	next    int
	delay   time.Duration
}

func NewScriptedAdapter(delay time.Duration, replies ...string) *ScriptedAdapter {
	if len(replies) == 0 {
		replies = DefaultScript()
	}
	return &ScriptedAdapter{replies: replies, delay: delay}
}

// DefaultScript walks through a short interview and ends with the
// completion code.
func DefaultScript() []string {
	return []string{
		"Hello! I'm glad to have the opportunity to speak about your educational journey today. Could you share the reasons that made you choose your field of study at the highest level of your education?",
		"Thank you. Could you offer an example of a moment that confirmed this choice for you?",
		"Lastly, I would like to shift the focus from education to occupation. Could you share the reasons for choosing your job and professional field following your studies?",
		"x7y8",
	}
}

func (s *ScriptedAdapter) Name() string { return "scripted" }

func (s *ScriptedAdapter) StreamReply(ctx context.Context, _ []adapter.Message, _ string) iter.Seq2[string, error] {
	s.mu.Lock()
	reply := s.replies[min(s.next, len(s.replies)-1)]
	s.next++
	s.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, frag := range splitFragments(reply) {
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				}
			} else if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}

// splitFragments cuts text after each space so the fragments concatenate
// back to the original.
func splitFragments(text string) []string {
	var out []string
	for text != "" {
		i := strings.IndexByte(text, ' ')
		if i < 0 {
			out = append(out, text)
			break
		}
		out = append(out, text[:i+1])
		text = text[i+1:]
	}
	return out
}
