// Package manifest builds and serializes the artifact handed to the
// reduction stage: the ordered setups, their frame-type file lists, and the
// per-science-frame calibration associations.
//
// The YAML layout uses slices of structs rather than nested maps so that
// marshaling the same manifest twice yields byte-identical output, which
// the edit-overrides/rerun workflow depends on.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obs-pipelines/framesort/internal/assoc"
	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/setup"
)

// RoleFiles lists the files of one frame type inside a setup.
type RoleFiles struct {
	Type  string   `yaml:"type"`
	Files []string `yaml:"files"`
}

// RoleSelection is one resolved calibration role for a science frame.
type RoleSelection struct {
	Role       string   `yaml:"role"`
	Selected   string   `yaml:"selected,omitempty"`
	Pinned     bool     `yaml:"pinned,omitempty"`
	Satisfied  bool     `yaml:"satisfied"`
	Candidates []string `yaml:"candidates,omitempty"`
}

// AssociationEntry is the serialized association for one science/standard
// frame.
type AssociationEntry struct {
	Frame        string          `yaml:"frame"`
	Type         string          `yaml:"type"`
	Calibrations []RoleSelection `yaml:"calibrations"`
}

// SetupEntry is one setup in the manifest, in grouper order.
type SetupEntry struct {
	Setup         string             `yaml:"setup"`
	Key           string             `yaml:"key,omitempty"`
	Attrs         map[string]string  `yaml:"attrs,omitempty"`
	Indeterminate bool               `yaml:"indeterminate,omitempty"`
	Frames        []RoleFiles        `yaml:"frames"`
	Associations  []AssociationEntry `yaml:"associations,omitempty"`
}

// Manifest is the full interchange structure.
type Manifest struct {
	Instrument string       `yaml:"instrument,omitempty"`
	Setups     []SetupEntry `yaml:"setups"`
}

// Build assembles the manifest from grouped setups and their associations.
// Setup and frame ordering is taken as-is from the grouper, so the result
// is a pure function of the classified frame set and overrides.
func Build(instrument string, setups []*setup.Setup, assocs map[string][]*assoc.Association) *Manifest {
	m := &Manifest{Instrument: instrument}

	for _, s := range setups {
		entry := SetupEntry{
			Setup:         s.ID,
			Key:           s.Key,
			Attrs:         s.Attrs,
			Indeterminate: s.Indeterminate,
		}

		for _, t := range frame.Types {
			var files []string
			for _, f := range s.FramesOfType(t) {
				files = append(files, f.ID)
			}
			if len(files) > 0 {
				entry.Frames = append(entry.Frames, RoleFiles{Type: string(t), Files: files})
			}
		}

		for _, a := range assocs[s.ID] {
			ae := AssociationEntry{Frame: a.FrameID, Type: string(a.Type)}
			for _, rm := range a.Roles {
				ae.Calibrations = append(ae.Calibrations, RoleSelection{
					Role:       string(rm.Role),
					Selected:   rm.Selected,
					Pinned:     rm.Pinned,
					Satisfied:  rm.Satisfied,
					Candidates: rm.Candidates,
				})
			}
			entry.Associations = append(entry.Associations, ae)
		}

		m.Setups = append(m.Setups, entry)
	}
	return m
}

// Marshal renders the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// Write saves the manifest to a YAML file.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}
