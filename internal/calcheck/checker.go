// Package calcheck validates calibration completeness. It is a pure pass
// over the grouped and associated frame set: it mutates nothing, and it
// accumulates every problem kind into one structured report instead of
// failing on the first. Whether an incomplete report blocks reduction is
// the caller's policy decision, not this package's.
package calcheck

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/obs-pipelines/framesort/internal/assoc"
	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/setup"
)

// FrameReport is the completeness result for one science/standard frame.
type FrameReport struct {
	Frame   string   `yaml:"frame"`
	Type    string   `yaml:"type"`
	Missing []string `yaml:"missing_roles,omitempty"`
}

// SetupReport aggregates results for one setup.
type SetupReport struct {
	Setup           string        `yaml:"setup"`
	Key             string        `yaml:"key,omitempty"`
	Complete        bool          `yaml:"complete"`
	CalibrationOnly bool          `yaml:"calibration_only,omitempty"`
	Indeterminate   bool          `yaml:"indeterminate,omitempty"`
	Frames          []FrameReport `yaml:"frames,omitempty"`
}

// Report is the run-level completeness report: per-setup deficiencies plus
// the frame-level problems found upstream (unreadable metadata, unknown
// types, indeterminate grouping).
type Report struct {
	Complete       bool          `yaml:"complete"`
	Setups         []SetupReport `yaml:"setups"`
	Unknown        []string      `yaml:"unknown_frames,omitempty"`
	Indeterminate  []string      `yaml:"indeterminate_frames,omitempty"`
	MetadataErrors []string      `yaml:"metadata_errors,omitempty"`
}

// Check builds the report. Associations are keyed by setup ID, in the
// setups' own frame order, as produced by assoc.Associate.
//
// A setup is complete when every science/standard frame in it has all roles
// satisfied. A setup with no science/standard frames is calibration-only:
// flagged, not deficient. The indeterminate setup is always incomplete.
// Unknown-type frames are surfaced but do not by themselves mark the run
// incomplete; metadata errors and indeterminate frames do.
func Check(setups []*setup.Setup, assocs map[string][]*assoc.Association, metaErrs []*frame.MetadataError) *Report {
	r := &Report{Complete: true}

	for _, s := range setups {
		sr := SetupReport{Setup: s.ID, Key: s.Key, Indeterminate: s.Indeterminate, Complete: true}

		for _, f := range s.Frames {
			if f.InferredType == frame.Unknown {
				r.Unknown = append(r.Unknown, f.ID)
			}
			if s.Indeterminate {
				r.Indeterminate = append(r.Indeterminate, f.ID)
			}
		}

		list := assocs[s.ID]
		if len(list) == 0 && !s.Indeterminate {
			sr.CalibrationOnly = true
		}
		for _, a := range list {
			fr := FrameReport{Frame: a.FrameID, Type: string(a.Type)}
			for _, role := range a.Unsatisfied() {
				fr.Missing = append(fr.Missing, string(role))
			}
			if len(fr.Missing) > 0 {
				sr.Complete = false
			}
			sr.Frames = append(sr.Frames, fr)
		}

		if s.Indeterminate {
			sr.Complete = false
		}
		if !sr.Complete {
			r.Complete = false
		}
		r.Setups = append(r.Setups, sr)
	}

	for _, me := range metaErrs {
		r.MetadataErrors = append(r.MetadataErrors, me.Error())
	}
	sort.Strings(r.MetadataErrors)
	if len(r.MetadataErrors) > 0 {
		r.Complete = false
	}

	sort.Strings(r.Unknown)
	sort.Strings(r.Indeterminate)

	return r
}

// Deficiencies counts unsatisfied roles across the whole report.
func (r *Report) Deficiencies() int {
	n := 0
	for _, sr := range r.Setups {
		for _, fr := range sr.Frames {
			n += len(fr.Missing)
		}
	}
	return n
}

// Write saves the report as YAML.
func (r *Report) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
