package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

// AppConfig holds everything the process needs at startup. It is loaded once
// in main and passed by reference into constructors; packages never read
// configuration behind the caller's back.
type AppConfig struct {
	Logging     LoggingConfig    `yaml:"logging"`
	Server      ServerConfig     `yaml:"server"`
	TextSearch  TextSearchConfig `yaml:"text_search"`
	FaceSearch  FaceSearchConfig `yaml:"face_search"`
	Summarizer  SummarizerConfig `yaml:"summarizer"`
	Scorer      ScorerConfig     `yaml:"scorer"`
	Credentials Credentials      `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type TextSearchConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type FaceSearchConfig struct {
	BaseURL             string `yaml:"base_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	MaxPollAttempts     int    `yaml:"max_poll_attempts"`
	// TestingMode runs facecheck.id searches against its demo pool: results
	// are inaccurate and the queue wait is long, but credits are not deducted.
	TestingMode bool `yaml:"testing_mode"`
}

type SummarizerConfig struct {
	GeminiModel         string `yaml:"gemini_model"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	// FetchMode selects how evidence pages are downloaded: "http" issues a
	// plain GET, "rendered" drives a headless browser for pages that only
	// produce content client-side.
	FetchMode       string `yaml:"fetch_mode"`
	MaxExcerptLines int    `yaml:"max_excerpt_lines"`
	Workers         int    `yaml:"workers"`
}

type ScorerConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Credentials are read from the environment (optionally seeded from .env).
// An empty value is not an error at load time; each client reports a
// configuration error at first use instead.
type Credentials struct {
	CustomSearchAPIKey string
	SearchEngineID     string
	GeminiAPIKey       string
	FacecheckAPIToken  string
	AnthropicAPIKey    string
}

// Load reads config.yaml (discovered by walking up from the working
// directory) plus .env, applies defaults, and returns the resulting config.
func Load() (*AppConfig, error) {
	base := basePath()
	godotenv.Load(filepath.Join(base, ENV_FILE))

	var c AppConfig
	data, err := os.ReadFile(filepath.Join(base, CONFIG_FILE))
	if err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", CONFIG_FILE, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", CONFIG_FILE, err)
	}

	c.applyDefaults()
	c.Credentials = Credentials{
		CustomSearchAPIKey: os.Getenv("CUSTOM_SEARCH_API_KEY"),
		SearchEngineID:     os.Getenv("SEARCH_ENGINE_ID"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		FacecheckAPIToken:  os.Getenv("FACECHECK_API_TOKEN"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
	}
	return &c, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.TextSearch.BaseURL == "" {
		c.TextSearch.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if c.TextSearch.TimeoutSeconds <= 0 {
		c.TextSearch.TimeoutSeconds = 30
	}
	if c.FaceSearch.BaseURL == "" {
		c.FaceSearch.BaseURL = "https://facecheck.id"
	}
	if c.FaceSearch.PollIntervalSeconds <= 0 {
		c.FaceSearch.PollIntervalSeconds = 1
	}
	if c.FaceSearch.MaxPollAttempts <= 0 {
		c.FaceSearch.MaxPollAttempts = 60
	}
	if c.Summarizer.GeminiModel == "" {
		c.Summarizer.GeminiModel = "models/gemini-2.0-flash"
	}
	if c.Summarizer.FetchTimeoutSeconds <= 0 {
		c.Summarizer.FetchTimeoutSeconds = 15
	}
	if c.Summarizer.FetchMode == "" {
		c.Summarizer.FetchMode = "http"
	}
	if c.Summarizer.MaxExcerptLines <= 0 {
		c.Summarizer.MaxExcerptLines = 500
	}
	if c.Summarizer.Workers <= 0 {
		c.Summarizer.Workers = 8
	}
	if c.Scorer.BaseURL == "" {
		c.Scorer.BaseURL = "https://api.anthropic.com"
	}
	if c.Scorer.Model == "" {
		c.Scorer.Model = "claude-sonnet-4-20250514"
	}
	if c.Scorer.MaxTokens <= 0 {
		c.Scorer.MaxTokens = 4000
	}
	if c.Scorer.Temperature <= 0 {
		c.Scorer.Temperature = 0.1
	}
}

func (c *FaceSearchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *TextSearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SummarizerConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func basePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return cwd
}
