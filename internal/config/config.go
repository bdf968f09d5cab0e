// Package config loads and saves the pagesmith configuration file.
//
// The file is JSON with camelCase keys, normally at ~/.pagesmith/pagesmith.json
// (a pagesmith.json in the current directory wins when present). Secrets may be
// left out of the file and provided via environment variables instead.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/roelfdiedericks/pagesmith/internal/llm"
	"github.com/roelfdiedericks/pagesmith/internal/paths"
)

// BackendConfig is canonical in the llm package; aliased here so config
// consumers don't need a second import.
type BackendConfig = llm.BackendConfig

// Driver names accepted in BackendConfig.Driver.
const (
	DriverHuggingFace = llm.DriverHuggingFace
	DriverOpenAI      = llm.DriverOpenAI
	DriverAnthropic   = llm.DriverAnthropic
	DriverGoogle      = llm.DriverGoogle
	DriverXAI         = llm.DriverXAI
)

// Generation budget bounds. The env override is clamped so no request ever
// runs with a sub-second overall budget.
const (
	DefaultTimeoutMs = 1_200_000
	MinTimeoutMs     = 1_000
)

// Config is the root pagesmith configuration.
type Config struct {
	Logging    LoggingConfig            `json:"logging"`
	Backends   map[string]BackendConfig `json:"backends"`
	Generation GenerationConfig         `json:"generation"`
	Serve      ServeConfig              `json:"serve"`
	History    HistoryConfig            `json:"history"`
	Skills     SkillsConfig             `json:"skills"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"` // trace/debug/info/warn/error
}

// GenerationConfig holds orchestration knobs shared by CLI and serve.
type GenerationConfig struct {
	TimeoutMs       int64  `json:"timeoutMs,omitempty"`       // overall attempt budget
	MaxOutputTokens int    `json:"maxOutputTokens,omitempty"` // default max output tokens
	DefaultBackend  string `json:"defaultBackend,omitempty"`
	DefaultModel    string `json:"defaultModel,omitempty"`
}

type ServeConfig struct {
	Listen        string `json:"listen,omitempty"`        // default 127.0.0.1:3380
	AuthTokenHash string `json:"authTokenHash,omitempty"` // argon2id digest; empty = no auth
	RateLimit     int    `json:"rateLimit,omitempty"`     // requests/minute per remote IP
}

type HistoryConfig struct {
	Enabled       *bool  `json:"enabled,omitempty"`       // default true
	MaxAgeDays    int    `json:"maxAgeDays,omitempty"`    // 0 = keep forever
	MaxRows       int    `json:"maxRows,omitempty"`       // 0 = unbounded
	PruneSchedule string `json:"pruneSchedule,omitempty"` // cron spec, default hourly
}

type SkillsConfig struct {
	ExtraDirs []string `json:"extraDirs,omitempty"` // searched before the managed dir
	Watch     bool     `json:"watch,omitempty"`     // live reload under serve
}

// Load reads the active config file, applying defaults first.
// A missing file is not an error; the defaults are returned.
func Load() (*Config, error) {
	cfg := defaults()

	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default location with backup rotation.
func Save(cfg *Config) error {
	path, err := paths.ConfigPath()
	if err != nil {
		return err
	}
	if path == "" {
		if path, err = paths.DefaultConfigPath(); err != nil {
			return err
		}
	}
	return BackupAndWriteJSON(path, cfg, DefaultBackupCount)
}

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Serve: ServeConfig{
			Listen:    "127.0.0.1:3380",
			RateLimit: 60,
		},
		History: HistoryConfig{
			MaxAgeDays:    90,
			PruneSchedule: "@hourly",
		},
	}
}

// HistoryEnabled returns the Enabled setting, defaulting to true.
func (c *HistoryConfig) HistoryEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// TimeoutBudget returns the overall generation budget. Precedence:
// PAGESMITH_TIMEOUT_MS env > config timeoutMs > default. Values are clamped
// to MinTimeoutMs so an aggressive override never produces a sub-second budget.
func (g *GenerationConfig) TimeoutBudget() time.Duration {
	ms := int64(DefaultTimeoutMs)
	if g.TimeoutMs > 0 {
		ms = g.TimeoutMs
	}
	if env := os.Getenv("PAGESMITH_TIMEOUT_MS"); env != "" {
		if v, err := strconv.ParseInt(env, 10, 64); err == nil && v > 0 {
			ms = v
		}
	}
	if ms < MinTimeoutMs {
		ms = MinTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ResolveMaxOutputTokens returns the max-output-token override for a request.
// Precedence: PAGESMITH_MAX_OUTPUT_TOKENS env > per-backend > generation
// default > 0 (backend default applies).
func (g *GenerationConfig) ResolveMaxOutputTokens(backend *BackendConfig) int {
	if env := os.Getenv("PAGESMITH_MAX_OUTPUT_TOKENS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			return v
		}
	}
	if backend != nil && backend.MaxTokens > 0 {
		return backend.MaxTokens
	}
	if g.MaxOutputTokens > 0 {
		return g.MaxOutputTokens
	}
	return 0
}
