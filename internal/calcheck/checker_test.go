package calcheck

import (
	"testing"
	"time"

	"github.com/obs-pipelines/framesort/internal/assoc"
	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/override"
	"github.com/obs-pipelines/framesort/internal/setup"
)

func mkFrame(id string, typ frame.FrameType, slit string) *frame.Frame {
	return &frame.Frame{
		ID: id,
		Attrs: map[string]string{
			frame.AttrInstrument: "kast",
			frame.AttrDisperser:  "600/4310",
			frame.AttrSlitMask:   slit,
			frame.AttrFilter:     "clear",
			frame.AttrBinning:    "1x1",
		},
		Timestamp:    time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC),
		InferredType: typ,
	}
}

func check(frames []*frame.Frame) *Report {
	setups := setup.Group(frames)
	assocs := map[string][]*assoc.Association{}
	for _, s := range setups {
		assocs[s.ID] = assoc.Associate(s, &override.Table{}, assoc.Options{})
	}
	return Check(setups, assocs, nil)
}

func completeSet(slit string) []*frame.Frame {
	return []*frame.Frame{
		mkFrame("raw/"+slit+"-b001.fits", frame.Bias, slit),
		mkFrame("raw/"+slit+"-a001.fits", frame.Arc, slit),
		mkFrame("raw/"+slit+"-t001.fits", frame.Trace, slit),
		mkFrame("raw/"+slit+"-f001.fits", frame.PixelFlat, slit),
		mkFrame("raw/"+slit+"-s001.fits", frame.Science, slit),
		mkFrame("raw/"+slit+"-std1.fits", frame.Standard, slit),
	}
}

func TestCheckCompleteSetup(t *testing.T) {
	r := check(completeSet("2.0"))

	if !r.Complete {
		t.Fatalf("Expected complete report: %+v", r)
	}
	if len(r.Setups) != 1 {
		t.Fatalf("Expected one setup, got %d", len(r.Setups))
	}
	sr := r.Setups[0]
	if !sr.Complete || sr.CalibrationOnly || sr.Indeterminate {
		t.Errorf("Unexpected setup flags: %+v", sr)
	}
	// Both the science and the standard frame are checked.
	if len(sr.Frames) != 2 {
		t.Fatalf("Expected 2 checked frames, got %d", len(sr.Frames))
	}
	for _, fr := range sr.Frames {
		if len(fr.Missing) != 0 {
			t.Errorf("Frame %s should have no deficiencies, got %v", fr.Frame, fr.Missing)
		}
	}
}

func TestCheckMissingArc(t *testing.T) {
	var frames []*frame.Frame
	for _, f := range completeSet("2.0") {
		if f.InferredType == frame.Arc {
			continue
		}
		frames = append(frames, f)
	}

	r := check(frames)
	if r.Complete {
		t.Fatal("Missing arc should make the report incomplete")
	}
	sr := r.Setups[0]
	if sr.Complete {
		t.Error("Setup with missing arc reports complete")
	}
	// The deficiency is reported against both the science and the standard
	// frame.
	for _, fr := range sr.Frames {
		if len(fr.Missing) != 1 || fr.Missing[0] != "arc" {
			t.Errorf("Frame %s should miss exactly the arc role, got %v", fr.Frame, fr.Missing)
		}
	}
	if got := r.Deficiencies(); got != 2 {
		t.Errorf("Expected 2 deficiencies, got %d", got)
	}
}

func TestCheckSetupsIndependent(t *testing.T) {
	// Setup with full calibrations plus a second slit mask with only a
	// science frame: the second setup's deficiencies are independent of
	// the first setup's completeness.
	frames := append(completeSet("2.0"), mkFrame("raw/0.5-s001.fits", frame.Science, "0.5"))

	r := check(frames)
	if r.Complete {
		t.Fatal("Report should be incomplete")
	}
	if len(r.Setups) != 2 {
		t.Fatalf("Expected two setups, got %d", len(r.Setups))
	}

	var complete, deficient int
	for _, sr := range r.Setups {
		if sr.Complete {
			complete++
		} else {
			deficient++
			if len(sr.Frames) != 1 || len(sr.Frames[0].Missing) != 4 {
				t.Errorf("Bare science frame should miss all four roles, got %+v", sr.Frames)
			}
		}
	}
	if complete != 1 || deficient != 1 {
		t.Errorf("Expected one complete and one deficient setup, got %d/%d", complete, deficient)
	}
}

func TestCheckOverriddenTypeSatisfiesRole(t *testing.T) {
	// A frame heuristically a bias but overridden to dark must satisfy a
	// dark role, not a bias role.
	dark := mkFrame("raw/d001.fits", frame.Dark, "2.0")
	sci := mkFrame("raw/s001.fits", frame.Science, "2.0")

	setups := setup.Group([]*frame.Frame{dark, sci})
	opts := assoc.Options{Roles: []assoc.Role{
		{Type: frame.Bias, MinCount: 1},
		{Type: frame.Dark, MinCount: 1},
	}}
	assocs := map[string][]*assoc.Association{}
	for _, s := range setups {
		assocs[s.ID] = assoc.Associate(s, &override.Table{}, opts)
	}
	r := Check(setups, assocs, nil)

	fr := r.Setups[0].Frames[0]
	if len(fr.Missing) != 1 || fr.Missing[0] != "bias" {
		t.Errorf("Dark frame should fill the dark role and leave bias missing, got %v", fr.Missing)
	}
}

func TestCheckDeficiencyMonotonicity(t *testing.T) {
	var frames []*frame.Frame
	for _, f := range completeSet("2.0") {
		if f.InferredType == frame.Arc || f.InferredType == frame.Trace {
			continue
		}
		frames = append(frames, f)
	}

	before := check(frames).Deficiencies()

	// Adding an arc can only decrease or hold the deficiency count.
	frames = append(frames, mkFrame("raw/2.0-a001.fits", frame.Arc, "2.0"))
	after := check(frames).Deficiencies()

	if after > before {
		t.Errorf("Adding a calibration frame raised deficiencies: %d -> %d", before, after)
	}
	if after != before-2 {
		t.Errorf("Expected arc to clear one role on two frames: %d -> %d", before, after)
	}
}

func TestCheckCalibrationOnlySetup(t *testing.T) {
	frames := []*frame.Frame{
		mkFrame("raw/b001.fits", frame.Bias, "2.0"),
		mkFrame("raw/a001.fits", frame.Arc, "2.0"),
	}

	r := check(frames)
	if !r.Complete {
		t.Error("Calibration-only setup is not an error")
	}
	sr := r.Setups[0]
	if !sr.CalibrationOnly {
		t.Error("Setup without science frames should be flagged calibration-only")
	}
}

func TestCheckIndeterminateSetup(t *testing.T) {
	frames := append(completeSet("2.0"),
		&frame.Frame{ID: "raw/u001.fits", Attrs: map[string]string{}, InferredType: frame.Unknown})

	r := check(frames)
	if r.Complete {
		t.Fatal("Indeterminate frames should make the report incomplete")
	}

	last := r.Setups[len(r.Setups)-1]
	if !last.Indeterminate || last.Complete {
		t.Errorf("Indeterminate setup should always be incomplete, got %+v", last)
	}
	if len(r.Indeterminate) != 1 || r.Indeterminate[0] != "raw/u001.fits" {
		t.Errorf("Indeterminate frames should be listed, got %v", r.Indeterminate)
	}
	if len(r.Unknown) != 1 {
		t.Errorf("Unknown-type frame should be listed, got %v", r.Unknown)
	}
}

func TestCheckMetadataErrors(t *testing.T) {
	metaErrs := []*frame.MetadataError{{FrameID: "raw/x.fits", Reason: "unreadable"}}
	r := Check(nil, nil, metaErrs)

	if r.Complete {
		t.Error("Metadata errors should make the report incomplete")
	}
	if len(r.MetadataErrors) != 1 {
		t.Errorf("Expected 1 metadata error, got %d", len(r.MetadataErrors))
	}
}
