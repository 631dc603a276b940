// Package override implements the user override table: explicit frame-type
// assignments (by exact identifier or glob pattern) and pinned calibration
// selections. Overrides take precedence over everything the classifier and
// associator would otherwise decide.
package override

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obs-pipelines/framesort/internal/frame"
)

// PatternRule assigns a frame type to every frame whose identifier (or its
// basename) matches a glob pattern. Rules are applied in file order; the
// first match wins.
type PatternRule struct {
	Match string `yaml:"match"`
	Type  string `yaml:"type"`
}

// Table is a parsed override file. The zero value is an empty table and is
// valid everywhere a table is required.
type Table struct {
	// Frames maps exact frame identifiers to declared types.
	Frames map[string]string `yaml:"frames,omitempty"`

	// Patterns assign types by glob, after exact matches.
	Patterns []PatternRule `yaml:"patterns,omitempty"`

	// Pins map a science/standard frame to the calibration frame that must
	// be used for a given role, bypassing automatic selection.
	Pins map[string]map[string]string `yaml:"pins,omitempty"`
}

// Load reads an override table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse override file: %w", err)
	}
	if err := t.checkTypes(); err != nil {
		return nil, err
	}
	return &t, nil
}

// checkTypes rejects override entries naming a type outside the enumeration.
func (t *Table) checkTypes() error {
	for id, typ := range t.Frames {
		if _, ok := frame.ParseType(typ); !ok {
			return fmt.Errorf("override for %s names unrecognized frame type %q", id, typ)
		}
	}
	for _, p := range t.Patterns {
		if _, ok := frame.ParseType(p.Type); !ok {
			return fmt.Errorf("override pattern %q names unrecognized frame type %q", p.Match, p.Type)
		}
	}
	for id, roles := range t.Pins {
		for role := range roles {
			if _, ok := frame.ParseType(role); !ok {
				return fmt.Errorf("pin for %s names unrecognized role %q", id, role)
			}
		}
	}
	return nil
}

// TypeFor returns the overridden type for a frame identifier, if any.
// Exact identifier entries win over patterns; patterns apply in file order.
func (t *Table) TypeFor(id string) (frame.FrameType, bool) {
	if t == nil {
		return frame.Unknown, false
	}
	if typ, ok := t.Frames[id]; ok {
		ft, _ := frame.ParseType(typ)
		return ft, true
	}
	base := path.Base(id)
	for _, p := range t.Patterns {
		if matched, _ := path.Match(p.Match, id); matched {
			ft, _ := frame.ParseType(p.Type)
			return ft, true
		}
		if matched, _ := path.Match(p.Match, base); matched {
			ft, _ := frame.ParseType(p.Type)
			return ft, true
		}
	}
	return frame.Unknown, false
}

// PinFor returns the pinned calibration frame for a science frame and role.
func (t *Table) PinFor(id string, role frame.FrameType) (string, bool) {
	if t == nil {
		return "", false
	}
	roles, ok := t.Pins[id]
	if !ok {
		return "", false
	}
	target, ok := roles[string(role)]
	return target, ok
}

// UnknownFrameError reports override entries that reference frame
// identifiers absent from the discovered frame set. This is the engine's
// only hard failure: it means the override file and the input directory
// disagree, and no useful output can be produced until the user fixes it.
type UnknownFrameError struct {
	IDs []string
}

func (e *UnknownFrameError) Error() string {
	return fmt.Sprintf("override table references unknown frames: %s", strings.Join(e.IDs, ", "))
}

// Validate checks every exact identifier in the table (frame entries, pin
// subjects, pin targets) against the discovered frame set. Patterns are not
// checked: a pattern matching zero frames is legitimate.
func (t *Table) Validate(known map[string]bool) error {
	if t == nil {
		return nil
	}
	missing := map[string]bool{}
	for id := range t.Frames {
		if !known[id] {
			missing[id] = true
		}
	}
	for id, roles := range t.Pins {
		if !known[id] {
			missing[id] = true
		}
		for _, target := range roles {
			if !known[target] {
				missing[target] = true
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	ids := make([]string, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &UnknownFrameError{IDs: ids}
}
