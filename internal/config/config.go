package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Questions struct {
		TTL       string `yaml:"ttl"`
		RemoteURL string `yaml:"remoteURL"`
		SeedFile  string `yaml:"seedFile"`
	} `yaml:"questions"`
	Speech struct {
		APIKey   string  `yaml:"apiKey"`
		BaseURL  string  `yaml:"baseURL"`
		Model    string  `yaml:"model"`
		Voice    string  `yaml:"voice"`
		Speed    float64 `yaml:"speed"`
		CacheTTL string  `yaml:"cacheTTL"`
	} `yaml:"speech"`
	Session struct {
		AnswerWithSound  string   `yaml:"answerWithSound"`
		AnswerSilent     string   `yaml:"answerSilent"`
		Advance          string   `yaml:"advance"`
		NarrationTimeout string   `yaml:"narrationTimeout"`
		RevealMessages   []string `yaml:"revealMessages"`
	} `yaml:"session"`
	Rabbit struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbit"`
	Cookies struct {
		Secret string `yaml:"secret"`
		Secure bool   `yaml:"secure"`
	} `yaml:"cookies"`
}

// Load reads YAML config from path. Secrets and connection strings may be overridden from the
// environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Speech.APIKey, "OPENAI_API_KEY")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Postgres.URL, "DATABASE_URL")
	override(&cfg.Rabbit.URL, "RABBITMQ_URL")
	override(&cfg.Cookies.Secret, "COOKIE_SECRET")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
