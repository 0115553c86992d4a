package ai

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"qualitative-interview/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ReplyStreamer = (*OpenAIAdapter)(nil)

// OpenAIAdapter streams replies from the Chat Completions API. With a base
// URL it also serves OpenAI-compatible gateways.
type OpenAIAdapter struct {
	client      openai.Client
	model       string
	maxOut      int64
	temperature *float64
}

func NewOpenAIAdapter(apiKey, model, baseURL string, maxOut int, temperature *float64) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-2024-05-13"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(opts...),
		model:       model,
		maxOut:      int64(maxOut),
		temperature: temperature,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(o.model),
			Messages: toOpenAIMessages(prefix, instructions),
		}
		if o.maxOut > 0 {
			params.MaxCompletionTokens = openai.Int(o.maxOut)
		}
		if o.temperature != nil {
			params.Temperature = openai.Float(*o.temperature)
		}

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield("", err)
		}
	}
}

// The system message carries the interview script, so the opening turn needs
// no user message at all.
func toOpenAIMessages(prefix []adapter.Message, instructions string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(prefix)+1)
	if instructions != "" {
		out = append(out, openai.SystemMessage(instructions))
	}
	for _, m := range prefix {
		switch m.Role {
		case adapter.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
