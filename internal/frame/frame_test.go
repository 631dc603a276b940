package frame

import (
	"errors"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FrameType
		ok       bool
	}{
		{name: "bias", input: "bias", expected: Bias, ok: true},
		{name: "pixelflat", input: "pixelflat", expected: PixelFlat, ok: true},
		{name: "unknown is a valid type", input: "unknown", expected: Unknown, ok: true},
		{name: "unrecognized", input: "flatfield", expected: Unknown, ok: false},
		{name: "empty", input: "", expected: Unknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseType(tt.input)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("ParseType(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestTypeRoles(t *testing.T) {
	for _, typ := range []FrameType{Bias, Dark, Overscan, Arc, Trace, PixelFlat} {
		if !typ.IsCalibration() {
			t.Errorf("%s should be a calibration type", typ)
		}
		if typ.NeedsCalibration() {
			t.Errorf("%s should not need calibration", typ)
		}
	}
	for _, typ := range []FrameType{Science, Standard} {
		if typ.IsCalibration() {
			t.Errorf("%s should not be a calibration type", typ)
		}
		if !typ.NeedsCalibration() {
			t.Errorf("%s should need calibration", typ)
		}
	}
	if Unknown.IsCalibration() || Unknown.NeedsCalibration() {
		t.Error("unknown should be neither calibration nor calibrated")
	}
}

func TestAttrPresence(t *testing.T) {
	f := &Frame{Attrs: map[string]string{AttrFilter: ""}}

	if _, ok := f.Attr(AttrFilter); !ok {
		t.Error("empty filter value should still be present")
	}
	if _, ok := f.Attr(AttrDisperser); ok {
		t.Error("absent disperser should not be present")
	}
}

func TestMetadataErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &MetadataError{FrameID: "raw/a.fits", Reason: "unreadable", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("MetadataError should unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("MetadataError should describe itself")
	}
}
