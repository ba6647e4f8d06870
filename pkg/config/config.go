// Package config handles TelaMentis configuration via environment variables.
//
// The daemon reads everything from TELAMENTIS_-prefixed variables so that
// container and orchestration workflows need no config files. Load() returns
// a fully populated Config with defaults applied; Validate() must pass
// before the config is used.
//
// Example Usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//	TELAMENTIS_HTTP_ADDR            listen address (default ":8787")
//	TELAMENTIS_STORE_BACKEND        "memory" or "badger" (default "memory")
//	TELAMENTIS_STORE_DATA_DIR       badger data directory (default "./data")
//	TELAMENTIS_STORE_MAX_NODES      node capacity cap (default 100000)
//	TELAMENTIS_STORE_MAX_EDGES      edge capacity cap (default 500000)
//	TELAMENTIS_LLM_PROVIDER         "openai", "anthropic", "gemini", "ollama"
//	TELAMENTIS_LLM_MODEL            provider model name
//	TELAMENTIS_LLM_API_KEY          overrides the provider env fallback
//	TELAMENTIS_LLM_BASE_URL         provider endpoint override
//	TELAMENTIS_LLM_MAX_TOKENS       generation cap (default 4096)
//	TELAMENTIS_LLM_TEMPERATURE      sampling temperature (default 0.1)
//	TELAMENTIS_LLM_TIMEOUT          per-call timeout (default 30s)
//	TELAMENTIS_LLM_MAX_RETRIES      retry attempts (default 3)
//	TELAMENTIS_LLM_RATE_TABLE       path to the YAML cost rate table
//	TELAMENTIS_AUDIT_PATH           JSONL audit log path ("" disables)
//	TELAMENTIS_LOG_LEVEL            "debug", "info", "warn", "error"
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all daemon configuration loaded from the environment.
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	LLM     LLMConfig
	Audit   AuditConfig
	Logging LoggingConfig
}

// ServerConfig holds the HTTP presentation adapter settings.
type ServerConfig struct {
	// HTTPAddr is the listen address for the REST surface.
	HTTPAddr string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// StoreConfig selects and tunes the storage backend.
type StoreConfig struct {
	// Backend is "memory" or "badger".
	Backend string
	// DataDir is the badger data directory.
	DataDir string
	// MaxNodes / MaxEdges cap the in-memory reference store. 0 = unlimited.
	MaxNodes int
	MaxEdges int
}

// LLMConfig tunes the extraction connector. An empty Provider disables the
// llm surface entirely.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	RateTable   string
}

// AuditConfig controls the JSONL audit trail.
type AuditConfig struct {
	// Path is the audit log file. Empty disables auditing.
	Path string
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string
}

// Load reads configuration from the environment with defaults applied.
func Load() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        envString("TELAMENTIS_HTTP_ADDR", ":8787"),
			ShutdownTimeout: envDuration("TELAMENTIS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend:  envString("TELAMENTIS_STORE_BACKEND", "memory"),
			DataDir:  envString("TELAMENTIS_STORE_DATA_DIR", "./data"),
			MaxNodes: envInt("TELAMENTIS_STORE_MAX_NODES", 100_000),
			MaxEdges: envInt("TELAMENTIS_STORE_MAX_EDGES", 500_000),
		},
		LLM: LLMConfig{
			Provider:    envString("TELAMENTIS_LLM_PROVIDER", ""),
			Model:       envString("TELAMENTIS_LLM_MODEL", ""),
			APIKey:      envString("TELAMENTIS_LLM_API_KEY", ""),
			BaseURL:     envString("TELAMENTIS_LLM_BASE_URL", ""),
			MaxTokens:   envInt("TELAMENTIS_LLM_MAX_TOKENS", 4096),
			Temperature: envFloat("TELAMENTIS_LLM_TEMPERATURE", 0.1),
			Timeout:     envDuration("TELAMENTIS_LLM_TIMEOUT", 30*time.Second),
			MaxRetries:  envInt("TELAMENTIS_LLM_MAX_RETRIES", 3),
			RateTable:   envString("TELAMENTIS_LLM_RATE_TABLE", ""),
		},
		Audit: AuditConfig{
			Path: envString("TELAMENTIS_AUDIT_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: envString("TELAMENTIS_LOG_LEVEL", "info"),
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown store backend %q (want \"memory\" or \"badger\")", c.Store.Backend)
	}
	if c.Store.Backend == "badger" && c.Store.DataDir == "" {
		return fmt.Errorf("badger backend requires TELAMENTIS_STORE_DATA_DIR")
	}
	if c.Store.MaxNodes < 0 || c.Store.MaxEdges < 0 {
		return fmt.Errorf("capacity caps must not be negative")
	}
	if c.LLM.Provider != "" && c.LLM.Model == "" {
		return fmt.Errorf("llm provider %q configured without a model", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm temperature %v outside [0, 1]", c.LLM.Temperature)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts the configured level to a slog.Level, defaulting to
// Info when unparsable (Validate reports the error).
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
