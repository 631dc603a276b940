// Package assoc selects, for every science and standard frame in a setup,
// the calibration frames that fill each required role. Missing candidates
// are recorded as unsatisfied roles rather than raised, so one pass reports
// every problem instead of stopping at the first.
package assoc

import (
	"sort"
	"time"

	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/override"
	"github.com/obs-pipelines/framesort/internal/setup"
)

// Role is one required calibration pairing: a frame type and how many
// frames of it a science exposure needs.
type Role struct {
	Type     frame.FrameType
	MinCount int
}

// DefaultRoles is the instrument-independent required-role list.
var DefaultRoles = []Role{
	{Type: frame.Bias, MinCount: 1},
	{Type: frame.Arc, MinCount: 1},
	{Type: frame.Trace, MinCount: 1},
	{Type: frame.PixelFlat, MinCount: 1},
}

// TieBreak selects the candidate-ordering policy.
type TieBreak string

const (
	// TieBreakNearest orders candidates by timestamp distance from the
	// science frame, then by identifier.
	TieBreakNearest TieBreak = "nearest"
	// TieBreakLexicographic orders candidates by identifier only.
	TieBreakLexicographic TieBreak = "lexicographic"
)

// Options configures association for a run.
type Options struct {
	// Roles to satisfy; DefaultRoles when empty.
	Roles []Role
	// Window is the maximum |Δt| between a calibration frame and the
	// science frame. Zero means unlimited.
	Window time.Duration
	// TieBreak policy; TieBreakNearest when empty.
	TieBreak TieBreak
}

func (o Options) roles() []Role {
	if len(o.Roles) == 0 {
		return DefaultRoles
	}
	return o.Roles
}

func (o Options) tieBreak() TieBreak {
	if o.TieBreak == "" {
		return TieBreakNearest
	}
	return o.TieBreak
}

// RoleMatch records how one role resolved for one science frame.
type RoleMatch struct {
	Role frame.FrameType

	// Candidates in preference order: every compatible same-setup frame
	// that survived the time window.
	Candidates []string

	// Selected is the frame that will be used: the pin if one exists,
	// otherwise the first candidate. Empty when unsatisfied.
	Selected string

	// Pinned marks a user-pinned selection.
	Pinned bool

	// Satisfied is false when the role's MinCount cannot be met.
	Satisfied bool
}

// Association links one science or standard frame to its calibration set.
type Association struct {
	FrameID string
	Type    frame.FrameType
	Roles   []RoleMatch
}

// Unsatisfied returns the roles this association could not fill, in role
// order.
func (a *Association) Unsatisfied() []frame.FrameType {
	var out []frame.FrameType
	for _, rm := range a.Roles {
		if !rm.Satisfied {
			out = append(out, rm.Role)
		}
	}
	return out
}

// Complete reports whether every role is satisfied.
func (a *Association) Complete() bool { return len(a.Unsatisfied()) == 0 }

// Associate builds an association for every science/standard frame in the
// setup, in the setup's frame order. Output is deterministic: candidate
// ordering uses the configured policy with identifier tie-breaks.
func Associate(s *setup.Setup, overrides *override.Table, opts Options) []*Association {
	var out []*Association
	for _, f := range s.Frames {
		if !f.InferredType.NeedsCalibration() {
			continue
		}
		out = append(out, associateFrame(f, s, overrides, opts))
	}
	return out
}

func associateFrame(sci *frame.Frame, s *setup.Setup, overrides *override.Table, opts Options) *Association {
	a := &Association{FrameID: sci.ID, Type: sci.InferredType}
	for _, role := range opts.roles() {
		rm := RoleMatch{Role: role.Type}

		candidates := s.FramesOfType(role.Type)
		if opts.Window > 0 {
			candidates = withinWindow(sci, candidates, opts.Window)
		}
		orderCandidates(sci, candidates, opts.tieBreak())
		for _, c := range candidates {
			rm.Candidates = append(rm.Candidates, c.ID)
		}

		min := role.MinCount
		if min <= 0 {
			min = 1
		}

		if pin, ok := overrides.PinFor(sci.ID, role.Type); ok {
			// A pin bypasses window and selection policy entirely.
			rm.Selected = pin
			rm.Pinned = true
			rm.Satisfied = true
		} else if len(rm.Candidates) >= min {
			rm.Selected = rm.Candidates[0]
			rm.Satisfied = true
		}

		a.Roles = append(a.Roles, rm)
	}
	return a
}

// withinWindow keeps candidates whose timestamp is within the window of the
// science frame. Frames without timestamps cannot be placed in time, so a
// configured window excludes them.
func withinWindow(sci *frame.Frame, candidates []*frame.Frame, window time.Duration) []*frame.Frame {
	if !sci.HasTimestamp() {
		return candidates
	}
	var out []*frame.Frame
	for _, c := range candidates {
		if !c.HasTimestamp() {
			continue
		}
		if absDelta(sci.Timestamp, c.Timestamp) <= window {
			out = append(out, c)
		}
	}
	return out
}

func orderCandidates(sci *frame.Frame, candidates []*frame.Frame, policy TieBreak) {
	if policy == TieBreakLexicographic || !sci.HasTimestamp() {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		// Timestamped candidates come first, nearest first.
		if ci.HasTimestamp() != cj.HasTimestamp() {
			return ci.HasTimestamp()
		}
		if ci.HasTimestamp() {
			di := absDelta(sci.Timestamp, ci.Timestamp)
			dj := absDelta(sci.Timestamp, cj.Timestamp)
			if di != dj {
				return di < dj
			}
		}
		return ci.ID < cj.ID
	})
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
