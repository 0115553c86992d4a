package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimingLayout renders start times as dd/mm/yyyy HH:MM:SS.
const TimingLayout = "02/01/2006 15:04:05"

// TranscriptRecord is the persisted projection of a Session. Sinks always
// store it as a whole, never as a delta.
type TranscriptRecord struct {
	Username string       `json:"username"`
	State    SessionState `json:"state"`
	Messages []Message    `json:"messages"`
	Timing   TimingRecord `json:"timing"`
}

type TimingRecord struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes float64   `json:"duration_minutes"`
}

func NewTimingRecord(start, now time.Time) TimingRecord {
	d := now.Sub(start).Minutes()
	if d < 0 {
		d = 0
	}
	return TimingRecord{
		StartTime:       start.UTC(),
		DurationMinutes: math.Round(d*100) / 100,
	}
}

// TranscriptText renders one "<role>: <content>" line per message.
func (r *TranscriptRecord) TranscriptText() string {
	var b strings.Builder
	for _, m := range r.Messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

// TimingText renders the two-line timing file body.
func (t TimingRecord) TimingText() string {
	return fmt.Sprintf("Start time (UTC): %s\nInterview duration (minutes): %.2f\n",
		t.StartTime.UTC().Format(TimingLayout), t.DurationMinutes)
}
