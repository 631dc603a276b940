// Package setup partitions classified frames into instrument setups: groups
// sharing the configuration attributes that matter for calibration
// compatibility. Grouping is exact-match on the attribute set; instrument
// configuration is discrete, so there is no fuzzy clustering.
package setup

import (
	"sort"
	"strings"

	"github.com/obs-pipelines/framesort/internal/frame"
)

// IndeterminateID names the setup holding frames whose configuration key
// cannot be computed. It always sorts after every real setup.
const IndeterminateID = "indeterminate"

// KeyAttrs are the attributes that form the configuration key, in key
// order. Exposure time and timestamp deliberately excluded: they never
// affect calibration compatibility.
var KeyAttrs = []string{
	frame.AttrInstrument,
	frame.AttrDisperser,
	frame.AttrSlitMask,
	frame.AttrFilter,
	frame.AttrBinning,
}

// Setup is one cluster of frames with an identical configuration key.
type Setup struct {
	// ID is the deterministic setup name: "A", "B", ... assigned over the
	// lexicographically sorted keys, so identity survives reruns.
	ID string

	// Key is the joined configuration key; empty for the indeterminate setup.
	Key string

	// Attrs are the key's individual attribute values.
	Attrs map[string]string

	// Frames in the setup, sorted by identifier.
	Frames []*frame.Frame

	// Indeterminate marks the setup of frames missing key attributes.
	Indeterminate bool
}

// FramesOfType returns the setup's frames with the given inferred type,
// preserving the setup's identifier ordering.
func (s *Setup) FramesOfType(t frame.FrameType) []*frame.Frame {
	var out []*frame.Frame
	for _, f := range s.Frames {
		if f.InferredType == t {
			out = append(out, f)
		}
	}
	return out
}

// Key computes a frame's configuration key. ok is false when any key
// attribute is absent from the headers; such frames join the indeterminate
// setup.
func Key(f *frame.Frame) (string, map[string]string, bool) {
	attrs := make(map[string]string, len(KeyAttrs))
	parts := make([]string, 0, len(KeyAttrs))
	for _, name := range KeyAttrs {
		v, ok := f.Attr(name)
		if !ok {
			return "", nil, false
		}
		attrs[name] = v
		parts = append(parts, v)
	}
	return strings.Join(parts, "|"), attrs, true
}

// Group partitions frames into setups. The result depends only on the
// frames' metadata, never on input order: frames are sorted by identifier
// before grouping and setups are ordered by canonical key.
//
// Every frame lands in exactly one setup; the union of all setups is the
// input set. Each frame's SetupID is assigned here.
func Group(frames []*frame.Frame) []*Setup {
	ordered := make([]*frame.Frame, len(frames))
	copy(ordered, frames)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	byKey := map[string]*Setup{}
	indet := &Setup{ID: IndeterminateID, Indeterminate: true}

	for _, f := range ordered {
		key, attrs, ok := Key(f)
		if !ok {
			indet.Frames = append(indet.Frames, f)
			continue
		}
		s, exists := byKey[key]
		if !exists {
			s = &Setup{Key: key, Attrs: attrs}
			byKey[key] = s
		}
		s.Frames = append(s.Frames, f)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	setups := make([]*Setup, 0, len(keys)+1)
	for i, key := range keys {
		s := byKey[key]
		s.ID = letterID(i)
		setups = append(setups, s)
	}
	if len(indet.Frames) > 0 {
		setups = append(setups, indet)
	}

	for _, s := range setups {
		for _, f := range s.Frames {
			f.SetupID = s.ID
		}
	}
	return setups
}

// letterID maps 0, 1, ... to A, B, ..., Z, AA, AB, ... like spreadsheet
// columns.
func letterID(i int) string {
	var b []byte
	for {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return string(b)
}
