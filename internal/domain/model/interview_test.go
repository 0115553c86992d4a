//go:build !integration

package model

import (
	"strings"
	"testing"
	"time"
)

// --- Session Model Tests ---

func TestNewSession(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	s := NewSession("sess-1", "alice", now)

	if s.State != SessionActive {
		t.Errorf("expected new session to be active, got %s", s.State)
	}
	if len(s.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(s.Messages))
	}
	if !s.StartTime.Equal(now) {
		t.Errorf("expected start time %v, got %v", now, s.StartTime)
	}
}

func TestSessionAppend(t *testing.T) {
	now := time.Now()
	s := NewSession("sess-1", "alice", now)

	first := s.Append(RoleInterviewer, "Hello!", now)
	second := s.Append(RoleRespondent, "Because I love math", now.Add(time.Second))

	if first.Seq != 0 || second.Seq != 1 {
		t.Fatalf("expected sequence 0,1 got %d,%d", first.Seq, second.Seq)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct non-empty message ids, got %q and %q", first.ID, second.ID)
	}
	last, ok := s.LastMessage()
	if !ok || last.Role != RoleRespondent {
		t.Fatalf("expected last message from respondent, got %+v", last)
	}
}

func TestSessionStateTerminal(t *testing.T) {
	cases := map[SessionState]bool{
		SessionActive:    false,
		SessionQuit:      true,
		SessionCompleted: true,
	}
	for st, want := range cases {
		if got := st.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", st, got, want)
		}
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	s := NewSession("sess-1", "alice", start)
	s.Append(RoleInterviewer, "Hello!", start)

	rec := s.Snapshot(start.Add(90 * time.Second))
	s.Append(RoleRespondent, "late", start)

	if len(rec.Messages) != 1 {
		t.Fatalf("snapshot must not observe later appends, got %d messages", len(rec.Messages))
	}
	if rec.Timing.DurationMinutes != 1.5 {
		t.Errorf("expected duration 1.5, got %v", rec.Timing.DurationMinutes)
	}
}

func TestTranscriptText(t *testing.T) {
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	s := NewSession("sess-1", "alice", start)
	s.Append(RoleInterviewer, "Hello!", start)
	s.Append(RoleRespondent, "Because I love math", start)

	got := s.Snapshot(start).TranscriptText()
	want := "Interviewer: Hello!\nRespondent: Because I love math\n"
	if got != want {
		t.Fatalf("transcript text mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestTimingText(t *testing.T) {
	start := time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC)
	rec := NewTimingRecord(start, start.Add(12*time.Minute+20*time.Second))

	got := rec.TimingText()
	if !strings.HasPrefix(got, "Start time (UTC): 04/03/2025 09:05:07\n") {
		t.Errorf("unexpected start line: %q", got)
	}
	if !strings.Contains(got, "Interview duration (minutes): 12.33") {
		t.Errorf("unexpected duration line: %q", got)
	}
}

func TestValidUsername(t *testing.T) {
	valid := []string{"alice", "testaccount", "bob.smith", "r-42", "a@b.org"}
	invalid := []string{"", "../etc", "a/b", ".hidden", "with space", strings.Repeat("x", 200)}

	for _, n := range valid {
		if !ValidUsername(n) {
			t.Errorf("expected %q to be valid", n)
		}
	}
	for _, n := range invalid {
		if ValidUsername(n) {
			t.Errorf("expected %q to be invalid", n)
		}
	}
}

func TestSessionTransitionIsOneWay(t *testing.T) {
	s := NewSession("sess-1", "alice", time.Now())

	if s.Transition(SessionActive) {
		t.Fatal("transition to active must be rejected")
	}
	if !s.Transition(SessionQuit) {
		t.Fatal("expected first terminal transition to succeed")
	}
	if s.Transition(SessionCompleted) {
		t.Fatal("second terminal transition must be rejected")
	}
	if s.Status() != SessionQuit || s.Active() {
		t.Fatalf("expected quit state, got %s", s.Status())
	}
}

func TestHistoryIsCopy(t *testing.T) {
	s := NewSession("sess-1", "alice", time.Now())
	s.Append(RoleInterviewer, "Hello!", time.Now())

	h := s.History()
	h[0].Content = "changed"
	if m, _ := s.LastMessage(); m.Content != "Hello!" {
		t.Fatalf("history must be detached, got %q", m.Content)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one message, got %d", s.Len())
	}
}
