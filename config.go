package sift

import (
	"time"
)

// Config consolidates settings for the translation pipeline and its
// collaborators.
type Config struct {
	AI      AIConfig      `json:"ai"`
	Query   QueryConfig   `json:"query"`
	Cache   CacheConfig   `json:"cache"`
	Logging LoggingConfig `json:"logging"`
}

// AIConfig configures the external text-generation service client.
type AIConfig struct {
	BaseURL           string        `json:"baseUrl"`
	APIKey            string        `json:"-"`
	Model             string        `json:"model"`
	Timeout           time.Duration `json:"timeout"`
	MaxAttempts       int           `json:"maxAttempts"`
	RequestsPerSecond float64       `json:"requestsPerSecond"`
	Burst             int           `json:"burst"`
	BreakerThreshold  int           `json:"breakerThreshold"`
	BreakerWindow     time.Duration `json:"breakerWindow"`
	BreakerOpenFor    time.Duration `json:"breakerOpenFor"`
}

// Enabled reports whether an AI tier is configured at all.
func (a AIConfig) Enabled() bool {
	return a.BaseURL != ""
}

// QueryConfig contains translation and evaluation settings.
type QueryConfig struct {
	MaxSamples     int     `json:"maxSamples"`
	FuzzyThreshold float64 `json:"fuzzyThreshold"`
	SoftenOnEmpty  bool    `json:"softenOnEmpty"`
	SynonymsFile   string  `json:"synonymsFile,omitempty"`
}

// CacheConfig bounds the resolved-filter cache.
type CacheConfig struct {
	MaxEntries int `json:"maxEntries"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		AI: AIConfig{
			Model:             "gpt-4o-mini",
			Timeout:           8 * time.Second,
			MaxAttempts:       2,
			RequestsPerSecond: 2,
			Burst:             2,
			BreakerThreshold:  5,
			BreakerWindow:     30 * time.Second,
			BreakerOpenFor:    15 * time.Second,
		},
		Query: QueryConfig{
			MaxSamples:     DefaultMaxSamples,
			FuzzyThreshold: 0.65,
			SoftenOnEmpty:  true,
		},
		Cache: CacheConfig{
			MaxEntries: 512,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Query.MaxSamples <= 0 {
		return &ConfigError{Field: "query.maxSamples", Message: "must be greater than 0"}
	}
	if c.Query.FuzzyThreshold <= 0 || c.Query.FuzzyThreshold > 1 {
		return &ConfigError{Field: "query.fuzzyThreshold", Message: "must be in (0, 1]"}
	}
	if c.Cache.MaxEntries <= 0 {
		return &ConfigError{Field: "cache.maxEntries", Message: "must be greater than 0"}
	}
	if c.AI.MaxAttempts < 1 || c.AI.MaxAttempts > 2 {
		return &ConfigError{Field: "ai.maxAttempts", Message: "must be 1 or 2"}
	}
	if c.AI.Enabled() && c.AI.Timeout <= 0 {
		return &ConfigError{Field: "ai.timeout", Message: "must be greater than 0"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
