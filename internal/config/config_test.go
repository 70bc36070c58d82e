package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
server:
  port: "9090"
  allowedOrigins: ["http://localhost:5173"]
redis:
  addr: "localhost:6379"
  ttl: "15m"
questions:
  ttl: "5m"
speech:
  apiKey: "from-file"
  voice: "nova"
  speed: 1.1
session:
  answerWithSound: "12s"
  narrationTimeout: "45s"
  revealMessages: ["Brilliant!"]
rabbit:
  exchange: "quiz.results"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSections(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Speech.APIKey != "from-file" || cfg.Speech.Voice != "nova" || cfg.Speech.Speed != 1.1 {
		t.Fatalf("unexpected speech section %+v", cfg.Speech)
	}
	if got := TTLDuration(cfg.Session.AnswerWithSound, 10*time.Second); got != 12*time.Second {
		t.Fatalf("expected 12s answer countdown, got %s", got)
	}
	if got := TTLDuration(cfg.Session.AnswerSilent, 20*time.Second); got != 20*time.Second {
		t.Fatalf("expected fallback for missing duration, got %s", got)
	}
	if cfg.Session.RevealMessages[0] != "Brilliant!" || cfg.Rabbit.Exchange != "quiz.results" {
		t.Fatalf("unexpected session/rabbit sections")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Speech.APIKey != "from-env" || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("env overrides not applied: %q %q", cfg.Speech.APIKey, cfg.Redis.Addr)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("not-a-duration", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
