package ai

import (
	"strings"
	"testing"

	"qualitative-interview/internal/domain/ports/adapter"
)

func TestWithLeadingUser(t *testing.T) {
	got := withLeadingUser(nil, "Hi")
	if len(got) != 1 || got[0].Role != adapter.RoleUser || got[0].Content != "Hi" {
		t.Fatalf("expected lone greeting, got %+v", got)
	}

	prefix := []adapter.Message{{Role: adapter.RoleAssistant, Content: "Hello! Why did you choose your field?"}}
	got = withLeadingUser(prefix, "")
	if len(got) != 2 || got[0].Content != "Hi" || got[1].Role != adapter.RoleAssistant {
		t.Fatalf("expected greeting before assistant turn, got %+v", got)
	}
	if len(prefix) != 1 {
		t.Fatal("prefix must not be modified")
	}

	userFirst := []adapter.Message{{Role: adapter.RoleUser, Content: "hello"}}
	if got := withLeadingUser(userFirst, "Hi"); len(got) != 1 {
		t.Fatalf("user-first prefix must be left alone, got %+v", got)
	}
}

func TestSplitFragments(t *testing.T) {
	text := "one two  three"
	frags := splitFragments(text)
	if strings.Join(frags, "") != text {
		t.Fatalf("fragments do not reassemble: %q", frags)
	}
	if len(splitFragments("")) != 0 {
		t.Fatal("expected no fragments for empty text")
	}
}

func TestToOpenAIMessages_SystemFirst(t *testing.T) {
	msgs := toOpenAIMessages([]adapter.Message{
		{Role: adapter.RoleAssistant, Content: "q"},
		{Role: adapter.RoleUser, Content: "a"},
	}, "persona")
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].OfSystem == nil || msgs[1].OfAssistant == nil || msgs[2].OfUser == nil {
		t.Fatal("unexpected message ordering")
	}
}
