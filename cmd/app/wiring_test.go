package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"qualitative-interview/internal/config"
)

func TestInterviewOptions_FinalizeTimeoutFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "storage:\n  verify:\n    max_attempts: 0\n    timeout: 40s\nai:\n  stream_timeout: 20s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	opts := interviewOptions(cfg)
	if opts.FinalizeTimeout != 40*time.Second {
		t.Fatalf("expected 40s finalize timeout, got %v", opts.FinalizeTimeout)
	}
	if opts.StreamTimeout != 20*time.Second {
		t.Fatalf("expected 20s stream timeout, got %v", opts.StreamTimeout)
	}
	if opts.TestIdentity != "testaccount" || opts.QuitMessage != config.DefaultQuitMessage {
		t.Fatalf("unexpected interview options %+v", opts)
	}
}
