// Package header reads normalized exposure-header records and turns them
// into Frames. Records come from a headers dataset file (JSONL or Parquet)
// or from a directory of per-frame JSON header files.
package header

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/obs-pipelines/framesort/internal/frame"
)

// Record is one normalized header record as stored on disk. Optional
// attributes are pointers so a missing header field stays distinguishable
// from an empty one.
type Record struct {
	Path         string   `json:"path" parquet:"path"`
	Instrument   *string  `json:"instrument,omitempty" parquet:"instrument,optional"`
	Disperser    *string  `json:"disperser,omitempty" parquet:"disperser,optional"`
	SlitMask     *string  `json:"slitmask,omitempty" parquet:"slitmask,optional"`
	Filter       *string  `json:"filter,omitempty" parquet:"filter,optional"`
	Binning      *string  `json:"binning,omitempty" parquet:"binning,optional"`
	GratingAngle *string  `json:"grating_angle,omitempty" parquet:"grating_angle,optional"`
	LampComp     *string  `json:"lamp_comparison,omitempty" parquet:"lamp_comparison,optional"`
	LampFlat     *string  `json:"lamp_flat,omitempty" parquet:"lamp_flat,optional"`
	Shutter      *string  `json:"shutter,omitempty" parquet:"shutter,optional"`
	Target       *string  `json:"target,omitempty" parquet:"target,optional"`
	ExposureTime *float64 `json:"exptime,omitempty" parquet:"exptime,optional"`
	Timestamp    *string  `json:"timestamp,omitempty" parquet:"timestamp,optional"`
	DeclaredType *string  `json:"frametype,omitempty" parquet:"frametype,optional"`
}

// Reader loads header records from a dataset path.
type Reader struct {
	path string
}

// NewReader creates a reader for the given headers path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Load reads every record and normalizes it into a Frame.
//
// A record that cannot be normalized is not dropped: it yields a Frame with
// whatever attributes survived plus a MetadataError for the report. Only a
// dataset that cannot be opened at all is a hard failure.
func (r *Reader) Load() ([]*frame.Frame, []*frame.MetadataError, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat headers path: %w", err)
	}
	if info.IsDir() {
		return r.loadDir()
	}

	ext := strings.ToLower(filepath.Ext(r.path))
	switch ext {
	case ".parquet":
		return r.loadParquet()
	case ".jsonl", ".json":
		return r.loadJSONL()
	default:
		return nil, nil, fmt.Errorf("unsupported headers format: %s (supported: .parquet, .jsonl, directory)", ext)
	}
}

// LoadSample reads at most limit records (useful for inspection).
func (r *Reader) LoadSample(limit int) ([]*frame.Frame, []*frame.MetadataError, error) {
	frames, errs, err := r.Load()
	if err != nil {
		return nil, nil, err
	}
	if limit >= 0 && len(frames) > limit {
		frames = frames[:limit]
	}
	return frames, errs, nil
}

func (r *Reader) loadJSONL() ([]*frame.Frame, []*frame.MetadataError, error) {
	slog.Debug("Opening JSONL headers file", "path", r.path)

	file, err := os.Open(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open headers file: %w", err)
	}
	defer file.Close()

	var frames []*frame.Frame
	var errs []*frame.MetadataError

	scanner := bufio.NewScanner(file)

	// Header lines with long comment cards can get large
	const maxCapacity = 1024 * 1024
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			id := fmt.Sprintf("%s#%d", r.path, lineNum)
			errs = append(errs, &frame.MetadataError{FrameID: id, Reason: "unparseable header record", Err: err})
			frames = append(frames, &frame.Frame{ID: id, Attrs: map[string]string{}, ExposureTime: -1, InferredType: frame.Unknown})
			continue
		}

		f, merr := Normalize(&rec)
		if f.ID == "" {
			f.ID = fmt.Sprintf("%s#%d", r.path, lineNum)
			if merr != nil {
				merr.FrameID = f.ID
			}
		}
		if merr != nil {
			errs = append(errs, merr)
		}
		frames = append(frames, f)

		if lineNum%1000 == 0 {
			slog.Debug("Reading headers", "lines_read", lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading headers file: %w", err)
	}

	slog.Debug("Finished reading JSONL headers", "total_frames", len(frames), "metadata_errors", len(errs))
	return frames, errs, nil
}

func (r *Reader) loadParquet() ([]*frame.Frame, []*frame.MetadataError, error) {
	slog.Debug("Opening Parquet headers file", "path", r.path)

	file, err := os.Open(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet headers opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	var frames []*frame.Frame
	var errs []*frame.MetadataError

	rows := make([]Record, 128)
	rowNum := 0
	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			rowNum++
			rec := rows[i]
			f, merr := Normalize(&rec)
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s#%d", r.path, rowNum)
				if merr != nil {
					merr.FrameID = f.ID
				}
			}
			if merr != nil {
				errs = append(errs, merr)
			}
			frames = append(frames, f)
		}
		if err != nil {
			break
		}
	}

	slog.Debug("Finished reading Parquet headers", "total_frames", len(frames), "metadata_errors", len(errs))
	return frames, errs, nil
}

// loadDir reads one JSON header record per *.json file in the directory.
func (r *Reader) loadDir() ([]*frame.Frame, []*frame.MetadataError, error) {
	slog.Debug("Scanning header directory", "path", r.path)

	entries, err := os.ReadDir(r.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var frames []*frame.Frame
	var errs []*frame.MetadataError

	for _, name := range names {
		p := filepath.Join(r.path, name)
		data, err := os.ReadFile(p)
		if err != nil {
			errs = append(errs, &frame.MetadataError{FrameID: p, Reason: "unreadable header file", Err: err})
			frames = append(frames, &frame.Frame{ID: p, Attrs: map[string]string{}, ExposureTime: -1, InferredType: frame.Unknown})
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			errs = append(errs, &frame.MetadataError{FrameID: p, Reason: "unparseable header file", Err: err})
			frames = append(frames, &frame.Frame{ID: p, Attrs: map[string]string{}, ExposureTime: -1, InferredType: frame.Unknown})
			continue
		}
		if rec.Path == "" {
			rec.Path = p
		}
		f, merr := Normalize(&rec)
		if merr != nil {
			errs = append(errs, merr)
		}
		frames = append(frames, f)
	}

	slog.Debug("Finished reading header directory", "total_frames", len(frames), "metadata_errors", len(errs))
	return frames, errs, nil
}

// Normalize converts a Record into a Frame. Absent attributes are simply
// left out of the Frame's attribute map. A frame with a missing path or a
// malformed timestamp is still returned, alongside a MetadataError.
func Normalize(rec *Record) (*frame.Frame, *frame.MetadataError) {
	f := &frame.Frame{
		ID:           rec.Path,
		Attrs:        make(map[string]string),
		ExposureTime: -1,
		InferredType: frame.Unknown,
	}

	setAttr := func(name string, v *string) {
		if v != nil {
			f.Attrs[name] = *v
		}
	}
	setAttr(frame.AttrInstrument, rec.Instrument)
	setAttr(frame.AttrDisperser, rec.Disperser)
	setAttr(frame.AttrSlitMask, rec.SlitMask)
	setAttr(frame.AttrFilter, rec.Filter)
	setAttr(frame.AttrBinning, rec.Binning)
	setAttr(frame.AttrGratingAngle, rec.GratingAngle)
	setAttr(frame.AttrLampComp, rec.LampComp)
	setAttr(frame.AttrLampFlat, rec.LampFlat)
	setAttr(frame.AttrShutter, rec.Shutter)
	setAttr(frame.AttrTarget, rec.Target)

	if rec.ExposureTime != nil {
		f.ExposureTime = *rec.ExposureTime
	}
	if rec.DeclaredType != nil {
		f.DeclaredType = *rec.DeclaredType
	}

	if rec.Path == "" {
		return f, &frame.MetadataError{Reason: "record has no path"}
	}

	if rec.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339, *rec.Timestamp)
		if err != nil {
			return f, &frame.MetadataError{FrameID: rec.Path, Reason: "malformed timestamp", Err: err}
		}
		f.Timestamp = ts.UTC()
	}

	return f, nil
}
