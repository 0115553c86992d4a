// File: internal/infra/adapters/ai/multi_adapter.go
package ai

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"qualitative-interview/internal/domain/ports/adapter"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderScripted  = "scripted"
)

// ResolveProvider maps a model name to its backend. Unknown names fall back
// to defaultProvider.
func ResolveProvider(model, defaultProvider string) string {
	l := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(l, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(l, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(l, "gpt"), strings.HasPrefix(l, "o1"), strings.HasPrefix(l, "o3"), strings.HasPrefix(l, "o4"):
		return ProviderOpenAI
	default:
		return strings.ToLower(defaultProvider)
	}
}

// Select picks the streamer serving model from the configured providers.
// The state machine only ever sees the returned ReplyStreamer.
func Select(model, defaultProvider string, byProvider map[string]adapter.ReplyStreamer) (adapter.ReplyStreamer, error) {
	prov := ResolveProvider(model, defaultProvider)
	if s := byProvider[prov]; s != nil {
		return s, nil
	}
	if s := byProvider[strings.ToLower(defaultProvider)]; s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("no %s backend configured for model %q", prov, model)
}

var _ adapter.ReplyStreamer = (*MultiAIAdapter)(nil)

// MultiAIAdapter routes each call by model name. It lets one process serve
// several configured backends while the caller keeps a single streamer.
type MultiAIAdapter struct {
	model           string
	defaultProvider string
	byProvider      map[string]adapter.ReplyStreamer
}

func NewMultiAIAdapter(model, defaultProvider string, byProvider map[string]adapter.ReplyStreamer) *MultiAIAdapter {
	return &MultiAIAdapter{
		model:           model,
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
	}
}

func (m *MultiAIAdapter) Name() string {
	if s, err := Select(m.model, m.defaultProvider, m.byProvider); err == nil {
		return s.Name()
	}
	return "unconfigured"
}

func (m *MultiAIAdapter) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	s, err := Select(m.model, m.defaultProvider, m.byProvider)
	if err != nil {
		return func(yield func(string, error) bool) { yield("", err) }
	}
	return s.StreamReply(ctx, prefix, instructions)
}
