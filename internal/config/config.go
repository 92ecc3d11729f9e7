// Package config provides configuration for the orchestrator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort         int
	InternalHTTPPort int
	RPCPort          int

	// Database
	DatabaseURL string

	// Completion provider
	LLMProvider  string
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string
	LLMMaxTokens int
	LLMTimeout   time.Duration
	Mode         string

	// Sessions
	SessionStaleAfter time.Duration

	// Optional files
	AgentCatalogFile string
	PolicyFile       string

	// Logging
	LogLevel  string
	LogFormat string
}

// MockMode reports whether the mock completion client is forced.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, "MOCK")
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("RPC_PORT", 8081)
	v.SetDefault("INTERNAL_HTTP_PORT", 8082)
	v.SetDefault("DATABASE_URL", "file:ensemble.db?cache=shared&mode=rwc")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_BASE_URL", "http://localhost:4000")
	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_MAX_TOKENS", 2000)
	v.SetDefault("LLM_TIMEOUT_MS", 60000)
	v.SetDefault("ENSEMBLE_MODE", "")
	v.SetDefault("SESSION_STALE_AFTER_MS", 600000)
	v.SetDefault("AGENT_CATALOG_FILE", "")
	v.SetDefault("POLICY_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

// Load loads configuration from environment variables, optionally layered
// over the YAML file named by ENSEMBLE_CONFIG.
// Precedence (highest to lowest):
// 1. Environment variables
// 2. ENSEMBLE_CONFIG file
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("ENSEMBLE_CONFIG"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file %s: %w", file, err)
			}
		}
	}

	cfg := &Config{
		HTTPPort:          v.GetInt("HTTP_PORT"),
		InternalHTTPPort:  v.GetInt("INTERNAL_HTTP_PORT"),
		RPCPort:           v.GetInt("RPC_PORT"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		LLMProvider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMBaseURL:        v.GetString("LLM_BASE_URL"),
		LLMAPIKey:         v.GetString("LLM_API_KEY"),
		LLMModel:          v.GetString("LLM_MODEL"),
		LLMMaxTokens:      v.GetInt("LLM_MAX_TOKENS"),
		LLMTimeout:        time.Duration(v.GetInt("LLM_TIMEOUT_MS")) * time.Millisecond,
		Mode:              v.GetString("ENSEMBLE_MODE"),
		SessionStaleAfter: time.Duration(v.GetInt("SESSION_STALE_AFTER_MS")) * time.Millisecond,
		AgentCatalogFile:  v.GetString("AGENT_CATALOG_FILE"),
		PolicyFile:        v.GetString("POLICY_FILE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default away.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_MS must be positive")
	}
	if c.SessionStaleAfter <= 0 {
		return fmt.Errorf("SESSION_STALE_AFTER_MS must be positive")
	}
	if c.SessionStaleAfter <= c.LLMTimeout {
		return fmt.Errorf("SESSION_STALE_AFTER_MS must exceed LLM_TIMEOUT_MS")
	}
	return nil
}
