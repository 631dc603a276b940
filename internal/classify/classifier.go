// Package classify assigns exactly one FrameType to each frame. Priority:
// user override, then a recognized declared type from the headers, then the
// instrument's heuristic ruleset, then unknown. Frames are never dropped;
// unknown is a reportable outcome, not an error.
package classify

import (
	"log/slog"

	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/override"
)

// Classifier resolves frame types against an override table and the
// registered instrument rulesets.
type Classifier struct {
	// DefaultInstrument selects the ruleset for frames whose headers do not
	// name an instrument with a registered ruleset.
	DefaultInstrument string
}

// New creates a classifier. An empty defaultInstrument means "generic".
func New(defaultInstrument string) *Classifier {
	if defaultInstrument == "" {
		defaultInstrument = "generic"
	}
	return &Classifier{DefaultInstrument: defaultInstrument}
}

// Classify returns the frame's type. The override table is consulted first
// and always wins, including over a previously declared type.
func (c *Classifier) Classify(f *frame.Frame, overrides *override.Table) frame.FrameType {
	if t, ok := overrides.TypeFor(f.ID); ok {
		slog.Debug("Frame type overridden", "frame", f.ID, "type", t)
		return t
	}

	if f.DeclaredType != "" {
		if t, ok := frame.ParseType(f.DeclaredType); ok {
			return t
		}
		slog.Debug("Ignoring unrecognized declared type", "frame", f.ID, "declared", f.DeclaredType)
	}

	for _, rule := range c.rulesFor(f) {
		if t, ok := rule.Match(f); ok {
			slog.Debug("Heuristic match", "frame", f.ID, "rule", rule.Name(), "type", t)
			return t
		}
	}

	return frame.Unknown
}

func (c *Classifier) rulesFor(f *frame.Frame) []Rule {
	if inst, ok := f.Attr(frame.AttrInstrument); ok {
		if rules, found := rulesets[normalizeName(inst)]; found {
			return rules
		}
	}
	return Ruleset(c.DefaultInstrument)
}
