package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Canonical != "files" {
		t.Errorf("expected files canonical sink, got %q", cfg.Storage.Canonical)
	}
	if cfg.Interview.TestIdentity != "testaccount" {
		t.Errorf("expected test identity testaccount, got %q", cfg.Interview.TestIdentity)
	}
	if len(cfg.Interview.Codes) != 2 {
		t.Fatalf("expected two default codes, got %d", len(cfg.Interview.Codes))
	}
	if cfg.AI.StreamTimeout != 2*time.Minute {
		t.Errorf("expected 2m stream timeout, got %v", cfg.AI.StreamTimeout)
	}
	if cfg.Interview.QuitMessage != DefaultQuitMessage {
		t.Errorf("unexpected quit message %q", cfg.Interview.QuitMessage)
	}
	if cfg.Storage.Verify.Timeout != 2*time.Minute {
		t.Errorf("expected 2m verify timeout, got %v", cfg.Storage.Verify.Timeout)
	}
	if l := cfg.Auth.Login; l.Attempts != 10 || l.Window != 15*time.Minute || l.KeyPrefix != "interview:login:" {
		t.Errorf("unexpected login limit %+v", l)
	}
}

func TestLoad_FileValuesAndEnvSecrets(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	path := writeConfig(t, `
log:
  level: debug
ai:
  model: claude-3-5-sonnet-20240620
  temperature: 0.4
  stream_timeout: 30s
auth:
  login:
    attempts: 3
    window: 1m
storage:
  transcripts_dir: /tmp/tr
  verify:
    max_attempts: 0
    timeout: 45s
interview:
  test_identity: pilot
`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.AnthropicKey != "sk-ant-from-env" {
		t.Errorf("expected env key, got %q", cfg.AI.AnthropicKey)
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.4 {
		t.Errorf("expected temperature 0.4, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.StreamTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.AI.StreamTimeout)
	}
	if cfg.Storage.TranscriptsDir != "/tmp/tr" {
		t.Errorf("unexpected transcripts dir %q", cfg.Storage.TranscriptsDir)
	}
	if cfg.Storage.Verify.Timeout != 45*time.Second {
		t.Errorf("expected 45s verify timeout, got %v", cfg.Storage.Verify.Timeout)
	}
	if cfg.Auth.Login.Attempts != 3 || cfg.Auth.Login.Window != time.Minute {
		t.Errorf("unexpected login limit %+v", cfg.Auth.Login)
	}
	if cfg.Interview.TestIdentity != "pilot" {
		t.Errorf("unexpected test identity %q", cfg.Interview.TestIdentity)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"postgres without url": `
storage:
  canonical: postgres
`,
		"unknown canonical": `
storage:
  canonical: s3
`,
		"auth without secret": `
auth:
  enabled: true
  users: {alice: pw}
`,
		"duplicate code": `
interview:
  codes:
    - {code: abcd, outcome: completed, closing_message: bye}
    - {code: abcd, outcome: policy_violation, closing_message: stop}
`,
		"bad outcome": `
interview:
  codes:
    - {code: abcd, outcome: maybe, closing_message: bye}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			if _, err := Load(writeConfig(t, body), false); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	iv := InterviewConfig{Outline: "outline", GeneralInstructions: " ", CodeInstructions: "codes"}
	got := iv.SystemPrompt()
	if got != "outline\n\n\ncodes" {
		t.Fatalf("unexpected prompt %q", got)
	}
	if !strings.Contains(DefaultCodeInstructions, "5j3k") || !strings.Contains(DefaultCodeInstructions, "x7y8") {
		t.Fatal("default code instructions must name both codes")
	}
}
