package classify

import (
	"testing"

	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/override"
)

func mkFrame(id string, exptime float64, attrs map[string]string) *frame.Frame {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &frame.Frame{ID: id, ExposureTime: exptime, Attrs: attrs, InferredType: frame.Unknown}
}

func TestClassifyHeuristics(t *testing.T) {
	c := New("generic")
	empty := &override.Table{}

	tests := []struct {
		name     string
		frame    *frame.Frame
		expected frame.FrameType
	}{
		{
			name:     "zero exposure is bias",
			frame:    mkFrame("raw/b001.fits", 0, nil),
			expected: frame.Bias,
		},
		{
			name:     "comparison lamp is arc",
			frame:    mkFrame("raw/a001.fits", 30, map[string]string{frame.AttrLampComp: "on"}),
			expected: frame.Arc,
		},
		{
			name:     "comparison lamp wins over zero exposure",
			frame:    mkFrame("raw/a002.fits", 0, map[string]string{frame.AttrLampComp: "on"}),
			expected: frame.Arc,
		},
		{
			name:     "flat lamp is pixelflat",
			frame:    mkFrame("raw/f001.fits", 5, map[string]string{frame.AttrLampFlat: "on"}),
			expected: frame.PixelFlat,
		},
		{
			name:     "dome flat is trace",
			frame:    mkFrame("raw/t001.fits", 5, map[string]string{frame.AttrLampFlat: "dome"}),
			expected: frame.Trace,
		},
		{
			name:     "closed shutter exposure is dark",
			frame:    mkFrame("raw/d001.fits", 300, map[string]string{frame.AttrShutter: "closed"}),
			expected: frame.Dark,
		},
		{
			name:     "standard star target is standard",
			frame:    mkFrame("raw/std01.fits", 120, map[string]string{frame.AttrTarget: "Feige 110"}),
			expected: frame.Standard,
		},
		{
			name:     "open sky target is science",
			frame:    mkFrame("raw/s001.fits", 900, map[string]string{frame.AttrTarget: "NGC 2403"}),
			expected: frame.Science,
		},
		{
			name:     "lamp off with target is science",
			frame:    mkFrame("raw/s002.fits", 900, map[string]string{frame.AttrTarget: "NGC 2403", frame.AttrLampComp: "off"}),
			expected: frame.Science,
		},
		{
			name:     "no signals is unknown",
			frame:    mkFrame("raw/u001.fits", 30, nil),
			expected: frame.Unknown,
		},
		{
			name:     "missing exposure time is unknown",
			frame:    mkFrame("raw/u002.fits", -1, nil),
			expected: frame.Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.frame, empty)
			if got != tt.expected {
				t.Errorf("Classify(%s) = %s, want %s", tt.frame.ID, got, tt.expected)
			}
		})
	}
}

func TestClassifyDeclaredType(t *testing.T) {
	c := New("generic")
	empty := &override.Table{}

	f := mkFrame("raw/x001.fits", 0, nil)
	f.DeclaredType = "arc"
	if got := c.Classify(f, empty); got != frame.Arc {
		t.Errorf("Declared type should beat heuristics, got %s", got)
	}

	// Unrecognized declarations fall through to the heuristics.
	f2 := mkFrame("raw/x002.fits", 0, nil)
	f2.DeclaredType = "calibration"
	if got := c.Classify(f2, empty); got != frame.Bias {
		t.Errorf("Unrecognized declaration should fall back to heuristics, got %s", got)
	}
}

func TestClassifyOverridePrecedence(t *testing.T) {
	c := New("generic")
	overrides := &override.Table{
		Frames: map[string]string{"raw/b001.fits": "dark"},
		Patterns: []override.PatternRule{
			{Match: "arc_*.fits", Type: "arc"},
		},
	}

	// Exact override beats a clear bias signal and a declared type.
	f := mkFrame("raw/b001.fits", 0, nil)
	f.DeclaredType = "bias"
	if got := c.Classify(f, overrides); got != frame.Dark {
		t.Errorf("Override should always win, got %s", got)
	}

	// Pattern override applies by basename.
	f2 := mkFrame("raw/arc_099.fits", 900, map[string]string{frame.AttrTarget: "NGC 2403"})
	if got := c.Classify(f2, overrides); got != frame.Arc {
		t.Errorf("Pattern override should win, got %s", got)
	}

	// Overrides can also force a frame to unknown.
	overrides.Frames["raw/s001.fits"] = "unknown"
	f3 := mkFrame("raw/s001.fits", 900, map[string]string{frame.AttrTarget: "NGC 2403"})
	if got := c.Classify(f3, overrides); got != frame.Unknown {
		t.Errorf("Override to unknown should win, got %s", got)
	}
}

func TestClassifyInstrumentRulesets(t *testing.T) {
	empty := &override.Table{}

	// Kast tags biases with a closed shutter and a nonzero exposure header.
	f := mkFrame("raw/k001.fits", 0.5, map[string]string{
		frame.AttrInstrument: "kast",
		frame.AttrShutter:    "closed",
	})
	if got := New("generic").Classify(f, empty); got != frame.Bias {
		t.Errorf("Kast ruleset should classify closed-shutter short exposure as bias, got %s", got)
	}

	// LRIS lamp lists: "off,off,Ne" means an arc.
	f2 := mkFrame("raw/l001.fits", 1, map[string]string{
		frame.AttrInstrument: "lris",
		frame.AttrLampComp:   "off,off,Ne",
	})
	if got := New("generic").Classify(f2, empty); got != frame.Arc {
		t.Errorf("LRIS ruleset should see a lit lamp in the list, got %s", got)
	}

	// Unregistered instruments fall back to the classifier default.
	f3 := mkFrame("raw/m001.fits", 0, map[string]string{frame.AttrInstrument: "mystery-spec"})
	if got := New("generic").Classify(f3, empty); got != frame.Bias {
		t.Errorf("Unknown instrument should use generic rules, got %s", got)
	}
}

func TestRulesetRegistry(t *testing.T) {
	names := Rulesets()
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"generic", "kast", "lris"} {
		if !seen[want] {
			t.Errorf("Expected registered ruleset %q, have %v", want, names)
		}
	}
	if Ruleset("does-not-exist") == nil {
		t.Error("Fallback ruleset should never be nil")
	}
}
