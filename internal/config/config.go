// Package config loads engine settings from an optional TOML file, layered
// under FRAMESORT_* environment variables (a .env file is loaded by the
// root command) and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/obs-pipelines/framesort/internal/assoc"
	"github.com/obs-pipelines/framesort/internal/frame"
)

// RoleConfig declares one required calibration role.
type RoleConfig struct {
	Type string `toml:"type"`
	Min  int    `toml:"min"`
}

// MatchConfig controls calibration candidate selection.
type MatchConfig struct {
	// TimeWindow is a Go duration string ("2h", "90m"). Empty or "0"
	// means no window.
	TimeWindow string `toml:"time_window"`
	// TieBreak is "nearest" (default) or "lexicographic".
	TieBreak string `toml:"tie_break"`
}

// Config is the full engine settings file.
type Config struct {
	// Instrument selects the default heuristic ruleset for frames whose
	// headers do not name a known instrument.
	Instrument string `toml:"instrument"`

	Match MatchConfig `toml:"match"`

	// Roles replaces the default required-role list when non-empty.
	Roles []RoleConfig `toml:"roles"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Instrument: "generic",
		Match:      MatchConfig{TieBreak: string(assoc.TieBreakNearest)},
	}
}

// Load reads a TOML settings file and overlays FRAMESORT_* environment
// variables. An empty path yields the defaults (plus the environment).
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	}

	if v := os.Getenv("FRAMESORT_INSTRUMENT"); v != "" {
		cfg.Instrument = v
	}
	if v := os.Getenv("FRAMESORT_TIME_WINDOW"); v != "" {
		cfg.Match.TimeWindow = v
	}
	if v := os.Getenv("FRAMESORT_TIE_BREAK"); v != "" {
		cfg.Match.TieBreak = v
	}

	if cfg.Instrument == "" {
		cfg.Instrument = "generic"
	}
	if cfg.Match.TieBreak == "" {
		cfg.Match.TieBreak = string(assoc.TieBreakNearest)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot act on.
func Validate(cfg Config) error {
	switch assoc.TieBreak(cfg.Match.TieBreak) {
	case assoc.TieBreakNearest, assoc.TieBreakLexicographic:
	default:
		return fmt.Errorf("config: unknown tie_break %q (want nearest or lexicographic)", cfg.Match.TieBreak)
	}
	if _, err := cfg.Window(); err != nil {
		return err
	}
	for _, rc := range cfg.Roles {
		t, ok := frame.ParseType(strings.TrimSpace(rc.Type))
		if !ok {
			return fmt.Errorf("config: unknown role type %q", rc.Type)
		}
		if !t.IsCalibration() {
			return fmt.Errorf("config: role type %q is not a calibration type", rc.Type)
		}
	}
	return nil
}

// Window parses the configured time window. Zero means unlimited.
func (c Config) Window() (time.Duration, error) {
	s := strings.TrimSpace(c.Match.TimeWindow)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: bad time_window %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: negative time_window %q", s)
	}
	return d, nil
}

// AssocOptions converts the settings into associator options.
func (c Config) AssocOptions() (assoc.Options, error) {
	window, err := c.Window()
	if err != nil {
		return assoc.Options{}, err
	}
	opts := assoc.Options{
		Window:   window,
		TieBreak: assoc.TieBreak(c.Match.TieBreak),
	}
	for _, rc := range c.Roles {
		t, _ := frame.ParseType(strings.TrimSpace(rc.Type))
		opts.Roles = append(opts.Roles, assoc.Role{Type: t, MinCount: rc.Min})
	}
	return opts, nil
}
