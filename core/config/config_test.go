package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Input.MarkupEnabled {
		t.Error("markup should be disabled by default")
	}
	if _, ok := cfg.Input.PlaceholderSlot(); ok {
		t.Error("placeholder slot should be unset by default")
	}
	if len(cfg.Input.InputFactors) != 1 || cfg.Input.InputFactors[0] != 0 {
		t.Errorf("InputFactors = %v, want [0]", cfg.Input.InputFactors)
	}
	if cfg.Input.MaxFactors != DefaultMaxFactors {
		t.Errorf("MaxFactors = %d, want %d", cfg.Input.MaxFactors, DefaultMaxFactors)
	}
	if cfg.Input.MaxMarkupDepth != DefaultMaxMarkupDepth {
		t.Errorf("MaxMarkupDepth = %d, want %d", cfg.Input.MaxMarkupDepth, DefaultMaxMarkupDepth)
	}
	if cfg.Reordering.MaxReorderDistance != -1 {
		t.Errorf("MaxReorderDistance = %d, want -1", cfg.Reordering.MaxReorderDistance)
	}
	if cfg.Cache.MaxEntries != DefaultCacheEntries {
		t.Errorf("MaxEntries = %d, want %d", cfg.Cache.MaxEntries, DefaultCacheEntries)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
input:
  markup_enabled: true
  placeholder_factor_slot: 1
  input_factors: [0, 2]
  max_markup_depth: 0
reordering:
  max_reorder_distance: 6
  monotone_at_punctuation: true
cache:
  max_entries: 0
logging:
  level: debug
  format: text
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !cfg.Input.MarkupEnabled {
		t.Error("MarkupEnabled = false")
	}
	if slot, ok := cfg.Input.PlaceholderSlot(); !ok || slot != 1 {
		t.Errorf("PlaceholderSlot() = %d, %v; want 1, true", slot, ok)
	}
	if len(cfg.Input.InputFactors) != 2 || cfg.Input.InputFactors[1] != 2 {
		t.Errorf("InputFactors = %v", cfg.Input.InputFactors)
	}
	if cfg.Input.MaxMarkupDepth != 0 {
		t.Errorf("explicit max_markup_depth 0 overwritten: %d", cfg.Input.MaxMarkupDepth)
	}
	if cfg.Reordering.MaxReorderDistance != 6 || !cfg.Reordering.MonotoneAtPunctuation {
		t.Errorf("Reordering = %+v", cfg.Reordering)
	}
	if cfg.Cache.MaxEntries != 0 {
		t.Errorf("explicit max_entries 0 overwritten: %d", cfg.Cache.MaxEntries)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantKind  string
		wantField string
	}{
		{"bad yaml", "input: [", errors.KindParse, ""},
		{"slot out of range", "input:\n  placeholder_factor_slot: 4", errors.KindValidation, "input.placeholder_factor_slot"},
		{"negative slot", "input:\n  placeholder_factor_slot: -1", errors.KindValidation, "input.placeholder_factor_slot"},
		{"duplicate factor", "input:\n  input_factors: [0, 0]", errors.KindValidation, "input.input_factors"},
		{"factor out of range", "input:\n  input_factors: [0, 9]", errors.KindValidation, "input.input_factors"},
		{"negative depth", "input:\n  max_markup_depth: -3", errors.KindValidation, "input.max_markup_depth"},
		{"distortion below -1", "reordering:\n  max_reorder_distance: -2", errors.KindValidation, "reordering.max_reorder_distance"},
		{"negative cache", "cache:\n  max_entries: -1", errors.KindValidation, "cache.max_entries"},
		{"bad level", "logging:\n  level: loud", errors.KindValidation, "logging.level"},
		{"bad format", "logging:\n  format: xml", errors.KindValidation, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Kind(err); got != tt.wantKind {
				t.Errorf("Kind = %q, want %q (%v)", got, tt.wantKind, err)
			}
			if tt.wantField != "" {
				var verr *errors.ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.wantField {
					t.Errorf("error = %v, want field %s", err, tt.wantField)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xmlinput.yaml")
	if err := os.WriteFile(path, []byte("input:\n  markup_enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Input.MarkupEnabled {
		t.Error("MarkupEnabled = false")
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Load(missing) error = %v, want IOError", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"XMLINPUT_INPUT_MARKUP_ENABLED":               "true",
		"XMLINPUT_INPUT_PLACEHOLDER_FACTOR_SLOT":      "2",
		"XMLINPUT_INPUT_INPUT_FACTORS":                "0, 1",
		"XMLINPUT_REORDERING_MAX_REORDER_DISTANCE":    "4",
		"XMLINPUT_REORDERING_MONOTONE_AT_PUNCTUATION": "1",
		"XMLINPUT_CACHE_MAX_ENTRIES":                  "10",
		"XMLINPUT_LOGGING_LEVEL":                      "warn",
	}
	cfg := Default()
	if err := ApplyEnvOverrides(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnvOverrides failed: %v", err)
	}

	if !cfg.Input.MarkupEnabled {
		t.Error("MarkupEnabled not overridden")
	}
	if slot, ok := cfg.Input.PlaceholderSlot(); !ok || slot != 2 {
		t.Errorf("PlaceholderSlot() = %d, %v", slot, ok)
	}
	if len(cfg.Input.InputFactors) != 2 || cfg.Input.InputFactors[1] != 1 {
		t.Errorf("InputFactors = %v", cfg.Input.InputFactors)
	}
	if cfg.Reordering.MaxReorderDistance != 4 || !cfg.Reordering.MonotoneAtPunctuation {
		t.Errorf("Reordering = %+v", cfg.Reordering)
	}
	if cfg.Cache.MaxEntries != 10 || cfg.Logging.Level != "warn" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestApplyEnvOverridesInvalid(t *testing.T) {
	for _, name := range []string{
		"XMLINPUT_INPUT_MARKUP_ENABLED",
		"XMLINPUT_INPUT_PLACEHOLDER_FACTOR_SLOT",
		"XMLINPUT_INPUT_INPUT_FACTORS",
		"XMLINPUT_CACHE_MAX_ENTRIES",
	} {
		t.Run(name, func(t *testing.T) {
			err := ApplyEnvOverrides(Default(), func(k string) string {
				if k == name {
					return "nope"
				}
				return ""
			})
			var verr *errors.ValidationError
			if !errors.As(err, &verr) || verr.Field != name {
				t.Errorf("error = %v, want ValidationError for %s", err, name)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("XMLINPUT_INPUT_MARKUP_ENABLED", "true")

	cfg, err := LoadWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadWithEnvOverrides failed: %v", err)
	}
	if !cfg.Input.MarkupEnabled {
		t.Error("env override not applied to defaults")
	}

	t.Setenv("XMLINPUT_INPUT_PLACEHOLDER_FACTOR_SLOT", "99")
	if _, err := LoadWithEnvOverrides(""); errors.Kind(err) != errors.KindValidation {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestSetPlaceholderSlot(t *testing.T) {
	var in InputConfig
	in.SetPlaceholderSlot(0)
	if slot, ok := in.PlaceholderSlot(); !ok || slot != 0 {
		t.Errorf("PlaceholderSlot() = %d, %v; want 0, true", slot, ok)
	}
	in.SetPlaceholderSlot(-1)
	if _, ok := in.PlaceholderSlot(); ok {
		t.Error("negative slot should clear the placeholder")
	}
}

func TestFingerprint(t *testing.T) {
	a := Default()
	b := Default()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal configs have different fingerprints")
	}

	b.Input.SetPlaceholderSlot(1)
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("placeholder slot not part of the fingerprint")
	}

	c := Default()
	c.Logging.Level = "debug"
	c.Cache.MaxEntries = 3
	if a.Fingerprint() != c.Fingerprint() {
		t.Error("logging and cache options should not change the fingerprint")
	}
}

func TestClone(t *testing.T) {
	a := Default()
	a.Input.SetPlaceholderSlot(1)
	b := a.Clone()

	*b.Input.PlaceholderFactorSlot = 3
	b.Input.InputFactors[0] = 2

	if slot, _ := a.Input.PlaceholderSlot(); slot != 1 {
		t.Errorf("clone shares placeholder slot: %d", slot)
	}
	if a.Input.InputFactors[0] != 0 {
		t.Errorf("clone shares input factors: %v", a.Input.InputFactors)
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran after Stop: %d", got)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xmlinput.yaml")
	if err := os.WriteFile(path, []byte("input:\n  markup_enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("input:\n  markup_enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if !cfg.Input.MarkupEnabled {
			t.Error("reloaded config does not reflect the change")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
