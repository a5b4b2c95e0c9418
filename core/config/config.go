// Package config holds the decoder-wide options that govern sentence
// ingestion and loads them from YAML with environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

// Defaults.
const (
	DefaultMaxFactors     = 4
	DefaultMaxMarkupDepth = 256
	DefaultMaxDistortion  = -1
	DefaultCacheEntries   = 1024
)

// Config is the complete configuration file.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Reordering ReorderingConfig `yaml:"reordering"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig controls how raw sentences become words.
type InputConfig struct {
	// MarkupEnabled selects the annotated path.
	MarkupEnabled bool `yaml:"markup_enabled"`

	// PlaceholderFactorSlot is the factor slot overwritten by <ne>
	// annotations. Nil means no slot is configured.
	PlaceholderFactorSlot *int `yaml:"placeholder_factor_slot,omitempty"`

	// InputFactors is the factor order of input tokens ("surface|pos" -> [0, 1]).
	InputFactors []int `yaml:"input_factors"`

	// MaxFactors is the number of factor slots per word.
	MaxFactors int `yaml:"max_factors"`

	// MaxMarkupDepth bounds element nesting; 0 means unlimited.
	MaxMarkupDepth int `yaml:"max_markup_depth"`
}

// ReorderingConfig is passed through to the reordering constraint.
type ReorderingConfig struct {
	MaxReorderDistance    int  `yaml:"max_reorder_distance"`
	MonotoneAtPunctuation bool `yaml:"monotone_at_punctuation"`
}

// CacheConfig sizes the parsed-sentence cache.
type CacheConfig struct {
	// MaxEntries is the number of cached sentences; 0 disables the cache.
	MaxEntries int `yaml:"max_entries"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Reordering: ReorderingConfig{MaxReorderDistance: DefaultMaxDistortion},
		Input:      InputConfig{MaxMarkupDepth: DefaultMaxMarkupDepth},
		Cache:      CacheConfig{MaxEntries: DefaultCacheEntries},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields. Zero values that are meaningful
// (MaxMarkupDepth, MaxReorderDistance, MaxEntries) are left alone.
func ApplyDefaults(cfg *Config) {
	if len(cfg.Input.InputFactors) == 0 {
		cfg.Input.InputFactors = []int{0}
	}
	if cfg.Input.MaxFactors == 0 {
		cfg.Input.MaxFactors = DefaultMaxFactors
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks field ranges and cross-field consistency.
func Validate(cfg *Config) error {
	in := cfg.Input
	if in.MaxFactors <= 0 {
		return errors.NewValidation("input.max_factors", "must be positive")
	}
	seen := make(map[int]bool, len(in.InputFactors))
	for _, slot := range in.InputFactors {
		if slot < 0 || slot >= in.MaxFactors {
			return errors.NewValidation("input.input_factors",
				fmt.Sprintf("slot %d outside [0,%d)", slot, in.MaxFactors))
		}
		if seen[slot] {
			return errors.NewValidation("input.input_factors", fmt.Sprintf("slot %d listed twice", slot))
		}
		seen[slot] = true
	}
	if in.PlaceholderFactorSlot != nil {
		slot := *in.PlaceholderFactorSlot
		if slot < 0 || slot >= in.MaxFactors {
			return errors.NewValidation("input.placeholder_factor_slot",
				fmt.Sprintf("slot %d outside [0,%d)", slot, in.MaxFactors))
		}
	}
	if in.MaxMarkupDepth < 0 {
		return errors.NewValidation("input.max_markup_depth", "must not be negative")
	}
	if cfg.Reordering.MaxReorderDistance < -1 {
		return errors.NewValidation("reordering.max_reorder_distance", "must be -1 (unlimited) or non-negative")
	}
	if cfg.Cache.MaxEntries < 0 {
		return errors.NewValidation("cache.max_entries", "must not be negative")
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidation("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text", "auto":
	default:
		return errors.NewValidation("logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format))
	}
	return nil
}

// PlaceholderSlot returns the configured placeholder slot.
func (c *InputConfig) PlaceholderSlot() (int, bool) {
	if c.PlaceholderFactorSlot == nil {
		return 0, false
	}
	return *c.PlaceholderFactorSlot, true
}

// SetPlaceholderSlot configures the placeholder slot; a negative slot clears it.
func (c *InputConfig) SetPlaceholderSlot(slot int) {
	if slot < 0 {
		c.PlaceholderFactorSlot = nil
		return
	}
	c.PlaceholderFactorSlot = &slot
}

// Fingerprint identifies the options that change how a sentence is parsed.
// Two configs with equal fingerprints produce identical sentences.
func (c *Config) Fingerprint() string {
	slot := "none"
	if s, ok := c.Input.PlaceholderSlot(); ok {
		slot = fmt.Sprint(s)
	}
	return fmt.Sprintf("markup=%t;slot=%s;factors=%v;max_factors=%d;depth=%d;distortion=%d;punct=%t",
		c.Input.MarkupEnabled,
		slot,
		c.Input.InputFactors,
		c.Input.MaxFactors,
		c.Input.MaxMarkupDepth,
		c.Reordering.MaxReorderDistance,
		c.Reordering.MonotoneAtPunctuation,
	)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Input.InputFactors = append([]int(nil), c.Input.InputFactors...)
	if c.Input.PlaceholderFactorSlot != nil {
		slot := *c.Input.PlaceholderFactorSlot
		out.Input.PlaceholderFactorSlot = &slot
	}
	return &out
}
