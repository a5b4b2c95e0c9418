package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

// EnvPrefix prefixes every environment override, e.g. XMLINPUT_INPUT_MARKUP_ENABLED.
const EnvPrefix = "XMLINPUT_"

// Load loads configuration from a YAML file, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read configuration file", path, err)
	}
	return Parse(data)
}

// Parse parses YAML configuration, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &errors.ParseError{Format: "config", Message: err.Error(), Err: err}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads path (or the defaults when path is empty) and
// applies environment overrides, which always take precedence.
func LoadWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies XMLINPUT_SECTION_FIELD variables read through getenv.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) error {
	boolVar := func(name string, dst *bool) error {
		val := getenv(EnvPrefix + name)
		if val == "" {
			return nil
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return &errors.ValidationError{Field: EnvPrefix + name, Value: val, Message: "not a boolean", Err: err}
		}
		*dst = b
		return nil
	}
	intVar := func(name string, dst *int) error {
		val := getenv(EnvPrefix + name)
		if val == "" {
			return nil
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return &errors.ValidationError{Field: EnvPrefix + name, Value: val, Message: "not an integer", Err: err}
		}
		*dst = i
		return nil
	}

	if err := boolVar("INPUT_MARKUP_ENABLED", &cfg.Input.MarkupEnabled); err != nil {
		return err
	}
	if val := getenv(EnvPrefix + "INPUT_PLACEHOLDER_FACTOR_SLOT"); val != "" {
		slot, err := strconv.Atoi(val)
		if err != nil {
			return &errors.ValidationError{Field: EnvPrefix + "INPUT_PLACEHOLDER_FACTOR_SLOT", Value: val, Message: "not an integer", Err: err}
		}
		cfg.Input.SetPlaceholderSlot(slot)
	}
	if val := getenv(EnvPrefix + "INPUT_INPUT_FACTORS"); val != "" {
		factors, err := parseIntList(val)
		if err != nil {
			return &errors.ValidationError{Field: EnvPrefix + "INPUT_INPUT_FACTORS", Value: val, Message: "not a comma-separated integer list", Err: err}
		}
		cfg.Input.InputFactors = factors
	}
	if err := intVar("INPUT_MAX_FACTORS", &cfg.Input.MaxFactors); err != nil {
		return err
	}
	if err := intVar("INPUT_MAX_MARKUP_DEPTH", &cfg.Input.MaxMarkupDepth); err != nil {
		return err
	}
	if err := intVar("REORDERING_MAX_REORDER_DISTANCE", &cfg.Reordering.MaxReorderDistance); err != nil {
		return err
	}
	if err := boolVar("REORDERING_MONOTONE_AT_PUNCTUATION", &cfg.Reordering.MonotoneAtPunctuation); err != nil {
		return err
	}
	if err := intVar("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries); err != nil {
		return err
	}
	if val := getenv(EnvPrefix + "LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := getenv(EnvPrefix + "LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	return nil
}

// parseIntList parses "0,1,2".
func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}
