// Package frame defines the core data model for raw spectrograph exposures:
// the Frame record produced by the header reader, the closed FrameType
// enumeration, and the error kinds the pipeline accumulates per frame.
package frame

import (
	"fmt"
	"time"
)

// FrameType is the role a frame plays in reduction.
type FrameType string

const (
	Bias      FrameType = "bias"
	Dark      FrameType = "dark"
	Overscan  FrameType = "overscan"
	Arc       FrameType = "arc"
	Trace     FrameType = "trace"
	PixelFlat FrameType = "pixelflat"
	Standard  FrameType = "standard"
	Science   FrameType = "science"
	Unknown   FrameType = "unknown"
)

// Types lists every valid frame type in canonical reduction order.
// Manifest sections and reports iterate this slice so output ordering
// never depends on map iteration.
var Types = []FrameType{Bias, Dark, Overscan, Arc, Trace, PixelFlat, Standard, Science, Unknown}

// ParseType validates a frame-type string from headers or override files.
func ParseType(s string) (FrameType, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return Unknown, false
}

// IsCalibration reports whether frames of this type can fill a calibration role.
func (t FrameType) IsCalibration() bool {
	switch t {
	case Bias, Dark, Overscan, Arc, Trace, PixelFlat:
		return true
	}
	return false
}

// NeedsCalibration reports whether frames of this type must be linked to a
// calibration set before reduction.
func (t FrameType) NeedsCalibration() bool {
	return t == Science || t == Standard
}

// Frame is one raw exposure plus its normalized header attributes.
//
// Configuration attributes are held in Attrs with explicit presence: a key
// that is absent from the map was absent from the headers, which is not the
// same thing as an empty value. Classification fallback and setup grouping
// both key off that distinction.
type Frame struct {
	// ID is the frame's unique identifier, normally its file path.
	ID string

	// Attrs holds instrument-configuration attributes (disperser, slit
	// mask, filter, binning, grating angle, lamp states, target name...).
	// The set is open and instrument-dependent.
	Attrs map[string]string

	// ExposureTime in seconds. Negative when absent from the headers.
	ExposureTime float64

	// Timestamp of the exposure start. Zero value when absent.
	Timestamp time.Time

	// DeclaredType is the type stated in the headers or by the observer,
	// if any. Empty when undeclared.
	DeclaredType string

	// InferredType is assigned exactly once by the classifier.
	InferredType FrameType

	// SetupID is assigned exactly once by the grouper.
	SetupID string
}

// Attribute names the reader normalizes into Attrs.
const (
	AttrInstrument   = "instrument"
	AttrDisperser    = "disperser"
	AttrSlitMask     = "slitmask"
	AttrFilter       = "filter"
	AttrBinning      = "binning"
	AttrGratingAngle = "grating_angle"
	AttrLampComp     = "lamp_comparison"
	AttrLampFlat     = "lamp_flat"
	AttrShutter      = "shutter"
	AttrTarget       = "target"
)

// Attr returns an attribute value and whether it was present in the headers.
func (f *Frame) Attr(name string) (string, bool) {
	v, ok := f.Attrs[name]
	return v, ok
}

// HasTimestamp reports whether the headers carried a usable timestamp.
func (f *Frame) HasTimestamp() bool {
	return !f.Timestamp.IsZero()
}

// MetadataError records a frame whose headers could not be read or were
// missing required fields. It is accumulated into the completeness report,
// never raised as a run-aborting failure: the frame is retained as unknown.
type MetadataError struct {
	FrameID string
	Reason  string
	Err     error
}

func (e *MetadataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("metadata for %s: %s: %v", e.FrameID, e.Reason, e.Err)
	}
	return fmt.Sprintf("metadata for %s: %s", e.FrameID, e.Reason)
}

func (e *MetadataError) Unwrap() error { return e.Err }
