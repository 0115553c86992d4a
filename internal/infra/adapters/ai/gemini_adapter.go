// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"iter"

	"google.golang.org/genai"

	"qualitative-interview/internal/domain/ports/adapter"
)

var _ adapter.ReplyStreamer = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client      *genai.Client
	model       string
	maxOut      int
	temperature *float64
	greeting    string
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
// greeting is the placeholder user turn sent when the history would
// otherwise be empty or start with the model.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string, maxOut int, temperature *float64, greeting string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiAdapter{client: c, model: model, maxOut: maxOut, temperature: temperature, greeting: greeting}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cfg := &genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		}
		if instructions != "" {
			cfg.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
		}
		if g.temperature != nil {
			t := float32(*g.temperature)
			cfg.Temperature = &t
		}

		contents := toGenAIHistory(withLeadingUser(prefix, g.greeting))
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if m.Role == adapter.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
