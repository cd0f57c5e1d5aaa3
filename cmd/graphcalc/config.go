package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rendis/graphcalc/internal/resolver"
	"github.com/rendis/graphcalc/internal/session"
)

// Config holds all graphcalc configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr       string         `json:"listen_addr"`
	DBPath           string         `json:"db_path"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
	MaxDepth         int            `json:"max_depth"`
	MaxSubstitutions int            `json:"max_substitutions"`
	StrictNames      bool           `json:"strict_names"`
	SessionTTL       string         `json:"session_ttl"`
	SweepSchedule    string         `json:"sweep_schedule"`
	DefaultRules     []session.Rule `json:"default_rules"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:       ":8000",
		DBPath:           filepath.Join(graphcalcDir(), "graphcalc.db"),
		LogLevel:         "info",
		LogFormat:        "text",
		MaxDepth:         resolver.DefaultMaxDepth,
		MaxSubstitutions: resolver.DefaultMaxSubstitutions,
		SessionTTL:       session.DefaultTTL.String(),
		SweepSchedule:    session.DefaultSweepSchedule,
		DefaultRules:     session.DefaultRules,
	}
}

func graphcalcDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".graphcalc"
	}
	return filepath.Join(home, ".graphcalc")
}

func settingsPath() string {
	return filepath.Join(graphcalcDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("GRAPHCALC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GRAPHCALC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("GRAPHCALC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GRAPHCALC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("GRAPHCALC_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxDepth = n
		}
	}
	if v := os.Getenv("GRAPHCALC_MAX_SUBSTITUTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxSubstitutions = n
		}
	}
	if v := os.Getenv("GRAPHCALC_STRICT_NAMES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictNames = b
		}
	}
	if v := os.Getenv("GRAPHCALC_SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("GRAPHCALC_SWEEP_SCHEDULE"); v != "" {
		cfg.SweepSchedule = v
	}
	if v := os.Getenv("GRAPHCALC_DEFAULT_RULES"); v != "" {
		var rules []session.Rule
		if err := json.Unmarshal([]byte(v), &rules); err == nil {
			cfg.DefaultRules = rules
		}
	}

	return cfg
}

// sessionConfig converts the file/env form into session.Config.
func (c Config) sessionConfig() (session.Config, error) {
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return session.Config{}, fmt.Errorf("invalid session_ttl %q: %w", c.SessionTTL, err)
	}
	return session.Config{
		TTL:           ttl,
		SweepSchedule: c.SweepSchedule,
		DefaultRules:  c.DefaultRules,
	}, nil
}

// dsn returns the libSQL URI for DBPath.
func (c Config) dsn() string {
	return "file:" + c.DBPath
}
