package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a config or catalog that loaded but failed validation
var ErrInvalid = errors.New("invalid configuration")

// Config is the runtime configuration read from config.yaml
type Config struct {
	LoggingLevel   string `yaml:"logging_level"`
	MaxArticles    int    `yaml:"max_articles"`
	Deduplicate    *bool  `yaml:"deduplicate"`
	MaxAgeDays     int    `yaml:"max_age_days"`
	RawDir         string `yaml:"raw_dir"`
	OutputDir      string `yaml:"output_dir"`
	SourcesFile    string `yaml:"sources_file"`
	TemplateFile   string `yaml:"template_file"`
	LLMProvider    string `yaml:"llm_provider"`
	LLMModel       string `yaml:"llm_model"`
	SummaryLength  int    `yaml:"summary_length"`
	TimeoutSeconds int    `yaml:"openai_timeout"`
}

// Default returns a Config with every field at its default
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the config file at path
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return Parse(data, path)
}

// Parse decodes raw YAML; name is only used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", name, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LoggingLevel == "" {
		c.LoggingLevel = "INFO"
	}
	if c.MaxArticles == 0 {
		c.MaxArticles = DefaultMaxArticles
	}
	if c.Deduplicate == nil {
		on := true
		c.Deduplicate = &on
	}
	if c.RawDir == "" {
		c.RawDir = DefaultRawDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.SourcesFile == "" {
		c.SourcesFile = DefaultSourcesFile
	}
	if c.LLMProvider == "" {
		c.LLMProvider = DefaultLLMProvider
	}
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.LLMModel == "" {
		c.LLMModel = DefaultLLMModel
	}
	if c.SummaryLength == 0 {
		c.SummaryLength = DefaultSummaryLength
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (c *Config) validate() error {
	if c.MaxArticles < 1 {
		return fmt.Errorf("%w: max_articles must be at least 1, got %d", ErrInvalid, c.MaxArticles)
	}
	if c.SummaryLength < 1 {
		return fmt.Errorf("%w: summary_length must be at least 1, got %d", ErrInvalid, c.SummaryLength)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("%w: openai_timeout must be at least 1, got %d", ErrInvalid, c.TimeoutSeconds)
	}
	if c.MaxAgeDays < 0 {
		return fmt.Errorf("%w: max_age_days must not be negative", ErrInvalid)
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderCohere, ProviderNone:
	default:
		return fmt.Errorf("%w: unknown llm_provider %q (valid: openai, cohere, none)", ErrInvalid, c.LLMProvider)
	}
	return nil
}

// DeduplicateEnabled reports the dedup flag, true when unset
func (c *Config) DeduplicateEnabled() bool {
	return c.Deduplicate == nil || *c.Deduplicate
}

// MaxAge returns the recency cut-off, zero when disabled
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// Timeout bounds one text-generation request
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
