// File: internal/usecase/control_codes.go
package usecase

import (
	"fmt"
	"strings"

	"qualitative-interview/internal/config"
)

// TypingCursor is appended to in-progress replies by live renderers. It is
// never part of committed content.
const TypingCursor = "▌"

type Outcome string

const (
	OutcomePolicyViolation Outcome = config.OutcomePolicyViolation
	OutcomeCompleted       Outcome = config.OutcomeCompleted
)

// ControlCode is a sentinel the model emits instead of prose to end the
// interview. The closing message replaces whatever reply carried it.
type ControlCode struct {
	Code           string
	Outcome        Outcome
	ClosingMessage string
}

// CodesFromConfig converts configured codes.
func CodesFromConfig(in []config.ControlCodeConfig) []ControlCode {
	out := make([]ControlCode, 0, len(in))
	for _, c := range in {
		out = append(out, ControlCode{Code: c.Code, Outcome: Outcome(c.Outcome), ClosingMessage: c.ClosingMessage})
	}
	return out
}

// Detector finds control codes in accumulated reply text. Matching is plain
// substring containment.
type Detector struct {
	codes []ControlCode
}

func NewDetector(codes []ControlCode) (*Detector, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("detector: no control codes")
	}
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c.Code == "" {
			return nil, fmt.Errorf("detector: empty control code")
		}
		if seen[c.Code] {
			return nil, fmt.Errorf("detector: duplicate control code %q", c.Code)
		}
		seen[c.Code] = true
	}
	cp := make([]ControlCode, len(codes))
	copy(cp, codes)
	return &Detector{codes: cp}, nil
}

// Scan returns the leftmost code contained in text and its byte offset.
// On a tie at the same offset the longer code wins.
func (d *Detector) Scan(text string) (ControlCode, int, bool) {
	best, at := ControlCode{}, -1
	for _, c := range d.codes {
		i := strings.Index(text, c.Code)
		if i < 0 {
			continue
		}
		if at < 0 || i < at || (i == at && len(c.Code) > len(best.Code)) {
			best, at = c, i
		}
	}
	return best, at, at >= 0
}

// Sanitize maps content carrying a code to that code's closing message.
func (d *Detector) Sanitize(content string) string {
	if c, _, ok := d.Scan(content); ok {
		return c.ClosingMessage
	}
	return content
}

// pendingPrefix is the length of the longest suffix of text that is a proper
// prefix of some code, i.e. text that might still turn into a code.
func (d *Detector) pendingPrefix(text string) int {
	longest := 0
	for _, c := range d.codes {
		for n := min(len(c.Code)-1, len(text)); n > longest; n-- {
			if strings.HasSuffix(text, c.Code[:n]) {
				longest = n
				break
			}
		}
	}
	return longest
}

// NewScanner starts scanning one streamed reply.
func (d *Detector) NewScanner() *Scanner {
	return &Scanner{d: d}
}

// Scanner consumes the fragments of one reply. It is not safe for
// concurrent use.
type Scanner struct {
	d       *Detector
	buf     strings.Builder
	shown   int
	match   ControlCode
	matched bool
}

// Feed appends a fragment and returns the text that is now safe to show
// live, plus whether a code has been found. After a match the caller must
// stop pulling fragments; further calls are ignored.
func (s *Scanner) Feed(fragment string) (display string, matched bool) {
	if s.matched {
		return "", true
	}
	s.buf.WriteString(fragment)
	text := s.buf.String()

	if c, at, ok := s.d.Scan(text); ok {
		s.match, s.matched = c, true
		if at > s.shown {
			display = text[s.shown:at]
		}
		s.shown = len(text)
		return display, true
	}

	safe := len(text) - s.d.pendingPrefix(text)
	if safe > s.shown {
		display = text[s.shown:safe]
		s.shown = safe
	}
	return display, false
}

// Flush releases any text held back at the end of an unmatched stream.
func (s *Scanner) Flush() string {
	if s.matched {
		return ""
	}
	text := s.buf.String()
	rest := text[s.shown:]
	s.shown = len(text)
	return rest
}

func (s *Scanner) Match() (ControlCode, bool) { return s.match, s.matched }

// Raw is everything consumed so far.
func (s *Scanner) Raw() string { return s.buf.String() }

// Content is the text to commit: the closing message after a match,
// otherwise the reply with live-display cursors removed and trimmed.
func (s *Scanner) Content() string {
	if s.matched {
		return s.match.ClosingMessage
	}
	return strings.TrimSpace(strings.ReplaceAll(s.buf.String(), TypingCursor, ""))
}
