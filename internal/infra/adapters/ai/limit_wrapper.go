package ai

import (
	"context"
	"iter"
	"time"

	"qualitative-interview/internal/domain/ports/adapter"
	"qualitative-interview/internal/infra/metrics"
)

// Compile-time check
var _ adapter.ReplyStreamer = (*limitedAI)(nil)

type limitedAI struct {
	inner adapter.ReplyStreamer
	sem   chan struct{}
}

// NewLimitedAI bounds the number of concurrently open reply streams. A slot
// is held from the first pull until the sequence ends.
func NewLimitedAI(inner adapter.ReplyStreamer, maxConcurrent int) adapter.ReplyStreamer {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		select {
		case l.sem <- struct{}{}:
		case <-ctx.Done():
			yield("", ctx.Err())
			return
		}
		defer func() { <-l.sem }()

		for frag, err := range l.inner.StreamReply(ctx, prefix, instructions) {
			if !yield(frag, err) {
				return
			}
		}
	}
}

var _ adapter.ReplyStreamer = (*instrumentedAI)(nil)

type instrumentedAI struct {
	inner adapter.ReplyStreamer
}

// NewInstrumentedAI records stream latency and fragment counts.
func NewInstrumentedAI(inner adapter.ReplyStreamer) adapter.ReplyStreamer {
	return &instrumentedAI{inner: inner}
}

func (i *instrumentedAI) Name() string { return i.inner.Name() }

func (i *instrumentedAI) StreamReply(ctx context.Context, prefix []adapter.Message, instructions string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		fragments := 0
		success := true
		defer func() {
			metrics.ObserveStream(i.inner.Name(), fragments, time.Since(start).Milliseconds(), success)
		}()

		for frag, err := range i.inner.StreamReply(ctx, prefix, instructions) {
			if err != nil {
				success = false
			} else {
				fragments++
			}
			if !yield(frag, err) {
				return
			}
		}
	}
}
