package usecase

import (
	"strings"
	"testing"
)

func mustDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(testCodes())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

func TestNewDetector_Validation(t *testing.T) {
	if _, err := NewDetector(nil); err == nil {
		t.Error("expected error for no codes")
	}
	if _, err := NewDetector([]ControlCode{{Code: ""}}); err == nil {
		t.Error("expected error for empty code")
	}
	if _, err := NewDetector([]ControlCode{{Code: "ab"}, {Code: "ab"}}); err == nil {
		t.Error("expected error for duplicate code")
	}
}

func TestDetector_ScanLeftmostWins(t *testing.T) {
	d := mustDetector(t)
	c, at, ok := d.Scan("first x7y8 then 5j3k")
	if !ok || c.Code != "x7y8" || at != 6 {
		t.Fatalf("expected x7y8 at 6, got %q at %d ok=%v", c.Code, at, ok)
	}
	if _, _, ok := d.Scan("plain prose without codes"); ok {
		t.Fatal("unexpected match")
	}
}

func TestScanner_StopsAtFirstCode(t *testing.T) {
	d := mustDetector(t)
	sc := d.NewScanner()
	frags := []string{"...thank ", "you 5j", "3k more", " text"}

	var shown strings.Builder
	consumed := 0
	for _, f := range frags {
		consumed++
		disp, matched := sc.Feed(f)
		shown.WriteString(disp)
		if matched {
			break
		}
	}
	if consumed != 3 {
		t.Fatalf("expected to stop after 3 fragments, consumed %d", consumed)
	}
	code, ok := sc.Match()
	if !ok || code.Outcome != OutcomePolicyViolation {
		t.Fatalf("expected policy violation match, got %+v ok=%v", code, ok)
	}
	if got := sc.Content(); got != closingFor("5j3k") {
		t.Fatalf("content must be the closing message, got %q", got)
	}
	if strings.Contains(shown.String(), "5j") || strings.Contains(shown.String(), "more") {
		t.Fatalf("display leaked code or trailing text: %q", shown.String())
	}
	if shown.String() != "...thank you " {
		t.Fatalf("unexpected display %q", shown.String())
	}
}

func TestScanner_HoldsBackPartialCodeThenReleases(t *testing.T) {
	d := mustDetector(t)
	sc := d.NewScanner()

	disp, matched := sc.Feed("I see x7")
	if matched || disp != "I see " {
		t.Fatalf("expected partial code held back, got %q matched=%v", disp, matched)
	}
	disp, matched = sc.Feed("z is fine")
	if matched || disp != "x7z is fine" {
		t.Fatalf("expected held text released, got %q", disp)
	}
	if rest := sc.Flush(); rest != "" {
		t.Fatalf("nothing should remain, got %q", rest)
	}
}

func TestScanner_ContentStripsCursorAndTrims(t *testing.T) {
	d := mustDetector(t)
	sc := d.NewScanner()
	sc.Feed("  Could you say more▌")
	sc.Feed(" about that?▌ \n")
	sc.Flush()
	if got := sc.Content(); got != "Could you say more about that?" {
		t.Fatalf("unexpected content %q", got)
	}
	if _, ok := sc.Match(); ok {
		t.Fatal("unexpected match")
	}
}

func TestScanner_FlushReleasesTrailingPrefix(t *testing.T) {
	d := mustDetector(t)
	sc := d.NewScanner()
	disp, _ := sc.Feed("ending with 5j")
	if disp != "ending with " {
		t.Fatalf("unexpected display %q", disp)
	}
	if rest := sc.Flush(); rest != "5j" {
		t.Fatalf("expected held prefix on flush, got %q", rest)
	}
	if sc.Raw() != "ending with 5j" {
		t.Fatalf("unexpected raw %q", sc.Raw())
	}
}

func TestDetector_Sanitize(t *testing.T) {
	d := mustDetector(t)
	if got := d.Sanitize("x7y8"); got != closingFor("x7y8") {
		t.Fatalf("expected closing message, got %q", got)
	}
	if got := d.Sanitize("Hello!"); got != "Hello!" {
		t.Fatalf("plain text must pass through, got %q", got)
	}
}
