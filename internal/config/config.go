// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	Enabled   bool              `yaml:"enabled"`
	JWTSecret string            `yaml:"jwt_secret"`
	TokenTTL  time.Duration     `yaml:"token_ttl"`
	Users     map[string]string `yaml:"users"` // username -> password
	Login     LoginLimit        `yaml:"login"`
}

// LoginLimit throttles failed and successful login attempts per username.
type LoginLimit struct {
	Attempts  int           `yaml:"attempts"`
	Window    time.Duration `yaml:"window"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	DefaultProvider string        `yaml:"default_provider"` // openai|gemini|anthropic|scripted
	Model           string        `yaml:"model"`
	Temperature     *float64      `yaml:"temperature"` // nil -> provider default
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	StreamTimeout   time.Duration `yaml:"stream_timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent model streams

	OpenAIKey     string `yaml:"openai_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"` // OpenAI-compatible gateways
	GeminiKey     string `yaml:"gemini_key"`
	GeminiURL     string `yaml:"gemini_url"`
	AnthropicKey  string `yaml:"anthropic_key"`
}

type VerifyConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"` // 0 = until Timeout
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// Timeout bounds one terminal write, retries included.
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Canonical      string       `yaml:"canonical"` // files|postgres
	TranscriptsDir string       `yaml:"transcripts_dir"`
	TimesDir       string       `yaml:"times_dir"`
	TablesDir      string       `yaml:"tables_dir"`
	BackupsDir     string       `yaml:"backups_dir"`
	MasterLog      string       `yaml:"master_log"`
	Verify         VerifyConfig `yaml:"verify"`
}

type ControlCodeConfig struct {
	Code           string `yaml:"code"`
	Outcome        string `yaml:"outcome"` // policy_violation|completed
	ClosingMessage string `yaml:"closing_message"`
}

type InterviewConfig struct {
	Outline             string              `yaml:"outline"`
	GeneralInstructions string              `yaml:"general_instructions"`
	CodeInstructions    string              `yaml:"code_instructions"`
	Codes               []ControlCodeConfig `yaml:"codes"`
	QuitMessage         string              `yaml:"quit_message"`
	TestIdentity        string              `yaml:"test_identity"`
	PlaceholderGreeting string              `yaml:"placeholder_greeting"`
}

// SystemPrompt joins the script sections into the persona instructions.
func (c InterviewConfig) SystemPrompt() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Outline, c.GeneralInstructions, c.CodeInstructions} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n\n")
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Storage   StorageConfig   `yaml:"storage"`
	Interview InterviewConfig `yaml:"interview"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads the YAML file at path (a missing file yields defaults), overlays
// secrets from the environment and a local .env, applies defaults and validates.
func Load(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.AI.OpenAIKey, "OPENAI_API_KEY")
	envOverride(&c.AI.GeminiKey, "GEMINI_API_KEY")
	envOverride(&c.AI.AnthropicKey, "ANTHROPIC_API_KEY")
	envOverride(&c.Auth.JWTSecret, "INTERVIEW_JWT_SECRET")
	envOverride(&c.Database.URL, "DATABASE_URL")
	envOverride(&c.Redis.URL, "REDIS_URL")
}

func envOverride(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 12 * time.Hour
	}
	if c.Auth.Login.Attempts <= 0 {
		c.Auth.Login.Attempts = 10
	}
	if c.Auth.Login.Window <= 0 {
		c.Auth.Login.Window = 15 * time.Minute
	}
	if c.Auth.Login.KeyPrefix == "" {
		c.Auth.Login.KeyPrefix = "interview:login:"
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-2024-05-13"
	}
	if c.AI.DefaultProvider == "" {
		c.AI.DefaultProvider = "openai"
	}
	if c.AI.MaxOutputTokens <= 0 {
		c.AI.MaxOutputTokens = 2048
	}
	if c.AI.StreamTimeout <= 0 {
		c.AI.StreamTimeout = 2 * time.Minute
	}
	if c.AI.ConcurrentLimit <= 0 {
		c.AI.ConcurrentLimit = 16
	}

	if c.Storage.Canonical == "" {
		c.Storage.Canonical = "files"
	}
	if c.Storage.TranscriptsDir == "" {
		c.Storage.TranscriptsDir = "data/transcripts"
	}
	if c.Storage.TimesDir == "" {
		c.Storage.TimesDir = "data/times"
	}
	if c.Storage.TablesDir == "" {
		c.Storage.TablesDir = "data/tables"
	}
	if c.Storage.BackupsDir == "" {
		c.Storage.BackupsDir = "data/backups"
	}
	if c.Storage.MasterLog == "" {
		c.Storage.MasterLog = "data/master_log.csv"
	}
	if c.Storage.Verify.InitialBackoff <= 0 {
		c.Storage.Verify.InitialBackoff = 100 * time.Millisecond
	}
	if c.Storage.Verify.MaxBackoff <= 0 {
		c.Storage.Verify.MaxBackoff = 5 * time.Second
	}
	if c.Storage.Verify.Timeout <= 0 {
		c.Storage.Verify.Timeout = 2 * time.Minute
	}

	iv := &c.Interview
	if iv.Outline == "" {
		iv.Outline = DefaultOutline
	}
	if iv.GeneralInstructions == "" {
		iv.GeneralInstructions = DefaultGeneralInstructions
	}
	if iv.CodeInstructions == "" {
		iv.CodeInstructions = DefaultCodeInstructions
	}
	if len(iv.Codes) == 0 {
		iv.Codes = DefaultCodes()
	}
	if iv.QuitMessage == "" {
		iv.QuitMessage = DefaultQuitMessage
	}
	if iv.TestIdentity == "" {
		iv.TestIdentity = "testaccount"
	}
	if iv.PlaceholderGreeting == "" {
		iv.PlaceholderGreeting = "Hi"
	}
}

// Validate checks the settings every entry point depends on.
func (c *Config) Validate() error {
	switch c.Storage.Canonical {
	case "files":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required when storage.canonical is postgres")
		}
	default:
		return fmt.Errorf("storage.canonical must be files or postgres, got %q", c.Storage.Canonical)
	}
	if c.Auth.Enabled {
		if len(c.Auth.JWTSecret) < 16 {
			return errors.New("auth.jwt_secret must be at least 16 bytes when auth is enabled")
		}
		if len(c.Auth.Users) == 0 {
			return errors.New("auth.users must not be empty when auth is enabled")
		}
	}
	seen := map[string]bool{}
	for i, cc := range c.Interview.Codes {
		if strings.TrimSpace(cc.Code) == "" {
			return fmt.Errorf("interview.codes[%d].code is empty", i)
		}
		if seen[cc.Code] {
			return fmt.Errorf("interview.codes[%d].code %q is duplicated", i, cc.Code)
		}
		seen[cc.Code] = true
		if cc.Outcome != OutcomePolicyViolation && cc.Outcome != OutcomeCompleted {
			return fmt.Errorf("interview.codes[%d].outcome must be %s or %s", i, OutcomePolicyViolation, OutcomeCompleted)
		}
		if strings.TrimSpace(cc.ClosingMessage) == "" {
			return fmt.Errorf("interview.codes[%d].closing_message is empty", i)
		}
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 24 * time.Hour
	}
	return d
}
