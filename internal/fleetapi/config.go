package fleetapi

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// RetryParam holds retry-related configuration.
type RetryParam struct {
	MaxAttempts int    `toml:"max_attempts"` // Total attempts per page, first try included
	BaseDelay   string `toml:"base_delay"`   // Delay before the first retry
	MaxDelay    string `toml:"max_delay"`    // Ceiling for the backoff delay
}

// GetBaseDelay returns the base delay as time.Duration
func (r *RetryParam) GetBaseDelay() (time.Duration, error) {
	return ParseDuration(r.BaseDelay)
}

// GetMaxDelay returns the max delay as time.Duration
func (r *RetryParam) GetMaxDelay() (time.Duration, error) {
	return ParseDuration(r.MaxDelay)
}

// PageParam holds pagination-related configuration.
type PageParam struct {
	Size     int `toml:"size"`      // Page size requested from the server
	MaxPages int `toml:"max_pages"` // Page cap for a single request
}

// EngineParam is the on-disk form of the engine configuration.
type EngineParam struct {
	FormatVersion  string     `toml:"format_version"`  // Version of this configuration file format
	AttemptTimeout string     `toml:"attempt_timeout"` // Deadline applied to each transport attempt
	RefreshSkew    string     `toml:"refresh_skew"`    // Tokens expiring within this window count as expired
	Retry          RetryParam `toml:"retry"`
	Page           PageParam  `toml:"page"`
}

// EngineConfig is the validated runtime configuration for an Executor.
type EngineConfig struct {
	AttemptTimeout time.Duration
	RefreshSkew    time.Duration
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	PageSize       int
	MaxPages       int
}

// EngineConfigVersion is the supported engine config file format version.
const EngineConfigVersion = "0.1.0"

// DefaultEngineConfig returns the configuration used when no engine config
// file is present.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AttemptTimeout: 30 * time.Second,
		RefreshSkew:    30 * time.Second,
		MaxAttempts:    4,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		PageSize:       100,
		MaxPages:       50,
	}
}

// LoadEngineConfig loads and validates an engine configuration file.
// Fields left empty in the file keep their defaults.
func LoadEngineConfig(filename string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if filename == "" {
		return cfg, fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %v", err)
	}

	param := &EngineParam{}
	if _, err := toml.Decode(string(content), param); err != nil {
		return cfg, fmt.Errorf("error parsing config file: %v", err)
	}

	if err := applyEngineParam(&cfg, param); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %v", err)
	}

	return cfg, nil
}

func applyEngineParam(cfg *EngineConfig, param *EngineParam) error {
	if param.FormatVersion != "" && param.FormatVersion != EngineConfigVersion {
		return fmt.Errorf("unsupported config file format version: %s", param.FormatVersion)
	}

	if param.AttemptTimeout != "" {
		d, err := ParseDuration(param.AttemptTimeout)
		if err != nil {
			return fmt.Errorf("invalid attempt_timeout: %v", err)
		}
		cfg.AttemptTimeout = d
	}
	if param.RefreshSkew != "" {
		d, err := ParseDuration(param.RefreshSkew)
		if err != nil {
			return fmt.Errorf("invalid refresh_skew: %v", err)
		}
		cfg.RefreshSkew = d
	}
	if err := applyRetryParam(cfg, &param.Retry); err != nil {
		return err
	}
	if err := applyPageParam(cfg, &param.Page); err != nil {
		return err
	}
	return nil
}

func applyRetryParam(cfg *EngineConfig, param *RetryParam) error {
	if param.MaxAttempts != 0 {
		if param.MaxAttempts < 1 {
			return fmt.Errorf("retry.max_attempts must be positive")
		}
		cfg.MaxAttempts = param.MaxAttempts
	}
	if param.BaseDelay != "" {
		d, err := param.GetBaseDelay()
		if err != nil {
			return fmt.Errorf("invalid retry.base_delay: %v", err)
		}
		cfg.BaseDelay = d
	}
	if param.MaxDelay != "" {
		d, err := param.GetMaxDelay()
		if err != nil {
			return fmt.Errorf("invalid retry.max_delay: %v", err)
		}
		cfg.MaxDelay = d
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		return fmt.Errorf("retry.max_delay must not be less than retry.base_delay")
	}
	return nil
}

func applyPageParam(cfg *EngineConfig, param *PageParam) error {
	if param.Size != 0 {
		if param.Size < 1 {
			return fmt.Errorf("page.size must be positive")
		}
		cfg.PageSize = param.Size
	}
	if param.MaxPages != 0 {
		if param.MaxPages < 1 {
			return fmt.Errorf("page.max_pages must be positive")
		}
		cfg.MaxPages = param.MaxPages
	}
	return nil
}

// ParseDuration parses a duration string in the format "<number><unit>" where
// unit can be:
// - ms: milliseconds
// - s: seconds
// - m: minutes
// - h: hours
// - d: days
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	// Extract the unit and the value from the input string
	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	if strings.HasSuffix(input, "ms") {
		unit = "ms"
		valueStr = input[:len(input)-2]
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	// Convert the value to a duration based on the unit
	var duration time.Duration
	switch unit {
	case "ms":
		duration = time.Duration(value) * time.Millisecond
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}
