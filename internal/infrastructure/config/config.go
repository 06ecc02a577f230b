package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Search     SearchConfig
	Fetch      FetchConfig
	Logging    LogConfig
}

// ServerConfig holds HTTP facade configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// CompletionConfig holds text-completion service configuration.
type CompletionConfig struct {
	BaseURL string `envconfig:"COMPLETION_BASE_URL" default:"http://localhost:11434/v1"`
	APIKey  string `envconfig:"COMPLETION_API_KEY" default:""`
	Model   string `envconfig:"COMPLETION_MODEL" default:"gpt-4o-mini"`
}

// SearchConfig holds search engine and executor configuration.
type SearchConfig struct {
	// Engine selects the scraping adapter: "google", "bing" or "baidu".
	Engine string `envconfig:"SEARCH_ENGINE" default:"google"`
	// DirectAPIKey, when set, routes searches through the direct content
	// API instead of the browser executor.
	DirectAPIKey   string        `envconfig:"SEARCH_DIRECT_API_KEY" default:""`
	DirectEndpoint string        `envconfig:"SEARCH_DIRECT_ENDPOINT" default:"https://api.tavily.com/search"`
	SessionTimeout time.Duration `envconfig:"SEARCH_SESSION_TIMEOUT" default:"120s"`
	SettleDelay    time.Duration `envconfig:"SEARCH_SETTLE_DELAY" default:"1s"`
}

// FetchConfig bounds the content fetch engine.
type FetchConfig struct {
	PerURLTimeout     time.Duration `envconfig:"FETCH_PER_URL_TIMEOUT" default:"10s"`
	MaxCharsPerResult int           `envconfig:"FETCH_MAX_CHARS" default:"4000"`
	MaxBodyBytes      int64         `envconfig:"FETCH_MAX_BODY_BYTES" default:"2097152"`
	MaxCandidates     int           `envconfig:"FETCH_MAX_CANDIDATES" default:"8"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8600",
			Host: "0.0.0.0",
		},
		Completion: CompletionConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "gpt-4o-mini",
		},
		Search: SearchConfig{
			Engine:         "google",
			DirectEndpoint: "https://api.tavily.com/search",
			SessionTimeout: 120 * time.Second,
			SettleDelay:    time.Second,
		},
		Fetch: FetchConfig{
			PerURLTimeout:     10 * time.Second,
			MaxCharsPerResult: 4000,
			MaxBodyBytes:      2 << 20,
			MaxCandidates:     8,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
