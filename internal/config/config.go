// Package config holds the tunables of the target macro and loads them from YAML or TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ConserveLee/img-trace-macro/internal/constants"
)

// DefaultFileName is read when Load is called with an empty path.
const DefaultFileName = "macro.yaml"

// Config is the full set of knobs handed to the orchestrator at construction.
type Config struct {
	Templates TemplatesConfig `yaml:"templates" toml:"templates"`
	Polling   PollingConfig   `yaml:"polling" toml:"polling"`
	Retry     RetryConfig     `yaml:"retry" toml:"retry"`
	Memory    MemoryConfig    `yaml:"memory" toml:"memory"`
	Input     InputConfig     `yaml:"input" toml:"input"`
	Capture   CaptureConfig   `yaml:"capture" toml:"capture"`
	Match     MatchConfig     `yaml:"match" toml:"match"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-" toml:"-"`
}

// TemplatesConfig points at the reference images.
type TemplatesConfig struct {
	Primary   string `yaml:"primary" toml:"primary"`
	Secondary string `yaml:"secondary" toml:"secondary"`
}

// PollingConfig controls poll cadence.
type PollingConfig struct {
	MinDelay    time.Duration `yaml:"min_delay" toml:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" toml:"max_delay"`
	SettleDelay time.Duration `yaml:"settle_delay" toml:"settle_delay"`
	Seed        uint64        `yaml:"seed" toml:"seed"` // 0 picks a random seed
}

// RetryConfig holds the loop policy constants.
type RetryConfig struct {
	SampleFailureBudget int `yaml:"sample_failure_budget" toml:"sample_failure_budget"`
	SeparatorEvery      int `yaml:"separator_every" toml:"separator_every"`
}

// MemoryConfig sets the reclaim threshold.
type MemoryConfig struct {
	ThresholdMB uint64 `yaml:"threshold_mb" toml:"threshold_mb"`
}

// InputConfig names the key pressed after the primary click.
type InputConfig struct {
	ConfirmKey string `yaml:"confirm_key" toml:"confirm_key"`
}

// CaptureConfig selects what gets sampled.
type CaptureConfig struct {
	AllScreens     bool   `yaml:"all_screens" toml:"all_screens"`
	Display        int    `yaml:"display" toml:"display"`
	SkipUnchanged  bool   `yaml:"skip_unchanged" toml:"skip_unchanged"`
	DumpFirstFrame string `yaml:"dump_first_frame" toml:"dump_first_frame"`
}

// MatchConfig tunes the template matcher.
type MatchConfig struct {
	Tolerance   float64 `yaml:"tolerance" toml:"tolerance"`
	MaxFailRate float64 `yaml:"max_fail_rate" toml:"max_fail_rate"`
	Scale       float64 `yaml:"scale" toml:"scale"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Templates: TemplatesConfig{
			Primary:   constants.PrimaryTemplate,
			Secondary: constants.SecondaryTemplate,
		},
		Polling: PollingConfig{
			MinDelay:    constants.MinPollDelay,
			MaxDelay:    constants.MaxPollDelay,
			SettleDelay: constants.SettleDelay,
		},
		Retry: RetryConfig{
			SampleFailureBudget: constants.SampleFailureBudget,
			SeparatorEvery:      constants.SeparatorEvery,
		},
		Memory: MemoryConfig{
			ThresholdMB: constants.MemoryThresholdMB,
		},
		Input: InputConfig{
			ConfirmKey: constants.ConfirmKey,
		},
		Capture: CaptureConfig{
			AllScreens: true,
		},
		Match: MatchConfig{
			Tolerance:   constants.DefaultTolerance,
			MaxFailRate: constants.MaxFailRate,
			Scale:       constants.DefaultScale,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, Load tries ./macro.yaml but tolerates a missing file.
// Fields absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %q: %w", candidate, err)
	}

	switch strings.ToLower(filepath.Ext(candidate)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %q: %w", candidate, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %q: %w", candidate, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(candidate))
	}

	cfg.Source = candidate
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Templates.Primary) == "":
		return errors.New("templates.primary must be set")
	case strings.TrimSpace(c.Templates.Secondary) == "":
		return errors.New("templates.secondary must be set")
	case c.Polling.MinDelay <= 0:
		return fmt.Errorf("polling.min_delay must be positive, got %s", c.Polling.MinDelay)
	case c.Polling.MaxDelay <= c.Polling.MinDelay:
		return fmt.Errorf("polling.max_delay (%s) must exceed min_delay (%s)", c.Polling.MaxDelay, c.Polling.MinDelay)
	case c.Polling.SettleDelay < 0:
		return fmt.Errorf("polling.settle_delay must not be negative, got %s", c.Polling.SettleDelay)
	case c.Retry.SampleFailureBudget <= 0:
		return fmt.Errorf("retry.sample_failure_budget must be positive, got %d", c.Retry.SampleFailureBudget)
	case c.Retry.SeparatorEvery <= 0:
		return fmt.Errorf("retry.separator_every must be positive, got %d", c.Retry.SeparatorEvery)
	case strings.TrimSpace(c.Input.ConfirmKey) == "":
		return errors.New("input.confirm_key must be set")
	case c.Capture.Display < 0:
		return fmt.Errorf("capture.display must not be negative, got %d", c.Capture.Display)
	case c.Match.Tolerance <= 0 || c.Match.Tolerance > 442:
		return fmt.Errorf("match.tolerance must be in (0, 442], got %v", c.Match.Tolerance)
	case c.Match.MaxFailRate < 0 || c.Match.MaxFailRate >= 1:
		return fmt.Errorf("match.max_fail_rate must be in [0, 1), got %v", c.Match.MaxFailRate)
	case c.Match.Scale <= 0:
		return fmt.Errorf("match.scale must be positive, got %v", c.Match.Scale)
	}
	return nil
}

// MemoryThresholdBytes converts the threshold to bytes (1 MB = 2^20 bytes).
func (c Config) MemoryThresholdBytes() uint64 {
	return c.Memory.ThresholdMB << 20
}
