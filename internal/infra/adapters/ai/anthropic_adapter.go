package ai

import (
	"context"
	"errors"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"qualitative-interview/internal/domain/ports/adapter"
)

var _ adapter.ReplyStreamer = (*AnthropicAdapter)(nil)

// AnthropicAdapter streams replies from the Messages API. The API requires
// strict user/assistant alternation starting with the user, so the opening
// turn is sent behind a placeholder greeting.
type AnthropicAdapter struct {
	client      anthropic.Client
	model       string
	maxOut      int64
	temperature *float64
	greeting    string
}

func NewAnthropicAdapter(apiKey, model string, maxOut int, temperature *float64, greeting string) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic api key empty")
	}
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	if maxOut <= 0 {
		maxOut = 2048
	}
	return &AnthropicAdapter{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxOut:      int64(maxOut),
		temperature: temperature,
		greeting:    greeting,
	}, nil
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: a.maxOut,
			Messages:  toAnthropicMessages(withLeadingUser(prefix, a.greeting)),
		}
		if instructions != "" {
			params.System = []anthropic.TextBlockParam{{Text: instructions}}
		}
		if a.temperature != nil {
			params.Temperature = anthropic.Float(*a.temperature)
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			if !yield(delta.Text, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

func toAnthropicMessages(msgs []adapter.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == adapter.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
