package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"qualitative-interview/internal/config"
	"qualitative-interview/internal/domain/ports/adapter"
)

// NewFromConfig builds every backend that has credentials and returns a
// routed, concurrency-limited and instrumented streamer. The scripted
// backend is only available in dev mode or when explicitly selected.
func NewFromConfig(ctx context.Context, cfg config.AIConfig, greeting string, dev bool) (adapter.ReplyStreamer, error) {
	byProvider := map[string]adapter.ReplyStreamer{}

	if cfg.OpenAIKey != "" {
		oa, err := NewOpenAIAdapter(cfg.OpenAIKey, cfg.Model, cfg.OpenAIBaseURL, cfg.MaxOutputTokens, cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("openai adapter: %w", err)
		}
		byProvider[ProviderOpenAI] = oa
	}
	if cfg.GeminiKey != "" {
		ga, err := NewGeminiAdapter(ctx, cfg.GeminiKey, cfg.GeminiURL, cfg.Model, cfg.MaxOutputTokens, cfg.Temperature, greeting)
		if err != nil {
			return nil, fmt.Errorf("gemini adapter: %w", err)
		}
		byProvider[ProviderGemini] = ga
	}
	if cfg.AnthropicKey != "" {
		aa, err := NewAnthropicAdapter(cfg.AnthropicKey, cfg.Model, cfg.MaxOutputTokens, cfg.Temperature, greeting)
		if err != nil {
			return nil, fmt.Errorf("anthropic adapter: %w", err)
		}
		byProvider[ProviderAnthropic] = aa
	}

	defaultProvider := strings.ToLower(cfg.DefaultProvider)
	if dev || defaultProvider == ProviderScripted {
		byProvider[ProviderScripted] = NewScriptedAdapter(30 * time.Millisecond)
		if len(byProvider) == 1 {
			defaultProvider = ProviderScripted
		}
	}

	model := cfg.Model
	if defaultProvider == ProviderScripted {
		model = ""
	}
	multi := NewMultiAIAdapter(model, defaultProvider, byProvider)
	if _, err := Select(model, defaultProvider, byProvider); err != nil {
		return nil, err
	}
	return NewInstrumentedAI(NewLimitedAI(multi, cfg.ConcurrentLimit)), nil
}
