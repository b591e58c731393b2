package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"portfolioPlot/internal/portfolio"

	"gopkg.in/yaml.v3"
)

// DefaultExclusionsPath is read when EXCLUSIONS_PATH is unset and the file
// exists in the working directory.
const DefaultExclusionsPath = "exclusions.yaml"

type Config struct {
	HoldingsPath   string
	Period         string
	Interval       string
	ExclusionsPath string
	OutDir         string
	DBPath         string
	CacheTTL       time.Duration

	// optional sinks; empty disables them
	OpenAIKey      string
	OpenAIModel    string
	TelegramToken  string
	TelegramChatID int64
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads the configuration from the environment, falling back to
// defaults for everything except the optional sinks.
func Load() (Config, error) {
	cfg := Config{
		HoldingsPath:   envOr("HOLDINGS_PATH", "portfolio/portfolio.json"),
		Period:         envOr("PERIOD", "ytd"),
		Interval:       envOr("INTERVAL", "1d"),
		ExclusionsPath: os.Getenv("EXCLUSIONS_PATH"),
		OutDir:         envOr("OUT_DIR", "out"),
		DBPath:         envOr("DB_PATH", "data/prices.db"),
		CacheTTL:       12 * time.Hour,
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	if cfg.ExclusionsPath == "" {
		if _, err := os.Stat(DefaultExclusionsPath); err == nil {
			cfg.ExclusionsPath = DefaultExclusionsPath
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = ttl
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.TelegramChatID = id
	}
	return cfg, nil
}

// PublishEnabled reports whether both Telegram settings are present.
func (c Config) PublishEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

type exclusionsFile struct {
	Exclusions []portfolio.Exclusion `yaml:"exclusions"`
}

// LoadExclusions reads a YAML list of excluded tickers:
//
//	exclusions:
//	  - symbol: AFRM
//	    reason: short position
//
// An empty path means no exclusions.
func LoadExclusions(path string) ([]portfolio.Exclusion, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exclusions: %w", err)
	}
	var f exclusionsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse exclusions %s: %w", path, err)
	}
	for i, e := range f.Exclusions {
		if portfolio.NormalizeTicker(e.Symbol) == "" {
			return nil, fmt.Errorf("exclusion %d in %s has no symbol", i+1, path)
		}
	}
	return f.Exclusions, nil
}
