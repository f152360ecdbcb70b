// Package config provides configuration for the scrum master service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Context backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int `yaml:"http_port"`

	// WebSocket settings
	WSPingInterval   time.Duration `yaml:"ws_ping_interval"`
	WSWriteTimeout   time.Duration `yaml:"ws_write_timeout"`
	WSReadTimeout    time.Duration `yaml:"ws_read_timeout"`
	WSMaxMessageSize int64         `yaml:"ws_max_message_size"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Session context
	ContextBackend string        `yaml:"context_backend"`
	ContextTTL     time.Duration `yaml:"context_ttl"`

	// LLM settings
	Mode       string        `yaml:"mode"`
	LLMBaseURL string        `yaml:"llm_base_url"`
	LLMAPIKey  string        `yaml:"llm_api_key"`
	LLMModel   string        `yaml:"llm_model"`
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// Loader
	DataDir string `yaml:"data_dir"`
	Watch   bool   `yaml:"watch"`

	// Responses
	SummaryMaxRunes int `yaml:"summary_max_runes"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load loads configuration from environment variables, then overlays the
// YAML file named by SCRUM_CONFIG_FILE when set.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		WSPingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WSMaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		DatabaseURL:      getEnv("DATABASE_URL", "file:scrummaster.db?cache=shared&mode=rwc"),
		ContextBackend:   getEnv("SCRUM_CONTEXT_BACKEND", BackendSQLite),
		ContextTTL:       time.Duration(getEnvInt("SCRUM_CONTEXT_TTL_MS", 0)) * time.Millisecond,
		Mode:             getEnv("SCRUM_MODE", ""),
		LLMBaseURL:       getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_MS", 60000)) * time.Millisecond,
		DataDir:          getEnv("SCRUM_DATA_DIR", "data"),
		Watch:            getEnvBool("SCRUM_WATCH", false),
		SummaryMaxRunes:  getEnvInt("SCRUM_SUMMARY_MAX_RUNES", 500),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	if path := os.Getenv("SCRUM_CONFIG_FILE"); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay replaces fields with the values set in a YAML file.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.ContextBackend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown context backend %q", c.ContextBackend)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	if c.WSReadTimeout <= c.WSPingInterval {
		return fmt.Errorf("ws_read_timeout must exceed ws_ping_interval")
	}
	if c.SummaryMaxRunes <= 0 {
		return fmt.Errorf("summary_max_runes must be positive")
	}
	return nil
}

// MockMode reports whether the deterministic mock LLM should be used.
func (c *Config) MockMode() bool {
	return strings.EqualFold(c.Mode, "MOCK")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
