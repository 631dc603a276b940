package classify

import (
	"sort"
	"strings"

	"github.com/obs-pipelines/framesort/internal/frame"
)

// Rule is one heuristic classification rule. Rules in a ruleset are tried
// in declared order; the first rule to match decides the frame type.
type Rule interface {
	Name() string
	Match(f *frame.Frame) (frame.FrameType, bool)
}

type ruleFunc struct {
	name string
	fn   func(f *frame.Frame) (frame.FrameType, bool)
}

func (r ruleFunc) Name() string                                 { return r.name }
func (r ruleFunc) Match(f *frame.Frame) (frame.FrameType, bool) { return r.fn(f) }

// NewRule wraps a match function as a named Rule.
func NewRule(name string, fn func(f *frame.Frame) (frame.FrameType, bool)) Rule {
	return ruleFunc{name: name, fn: fn}
}

var rulesets = map[string][]Rule{}

func normalizeName(instrument string) string {
	return strings.ToLower(strings.TrimSpace(instrument))
}

// RegisterRuleset installs an instrument's ordered rule list. Later
// registrations replace earlier ones of the same name.
func RegisterRuleset(instrument string, rules []Rule) {
	rulesets[normalizeName(instrument)] = rules
}

// Ruleset returns the rules for an instrument, falling back to the generic
// set when the instrument has no rules of its own.
func Ruleset(instrument string) []Rule {
	if rules, ok := rulesets[normalizeName(instrument)]; ok {
		return rules
	}
	return rulesets["generic"]
}

// Rulesets lists the registered ruleset names in sorted order.
func Rulesets() []string {
	names := make([]string, 0, len(rulesets))
	for name := range rulesets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lampOn interprets a lamp-state header value.
func lampOn(v string) bool {
	switch strings.ToLower(v) {
	case "", "off", "none", "closed", "0", "false":
		return false
	}
	return true
}

// biasMaxExposure is the longest exposure still treated as a zero-second
// readout for bias detection.
const biasMaxExposure = 0.01

func ruleArcLamp(f *frame.Frame) (frame.FrameType, bool) {
	if v, ok := f.Attr(frame.AttrLampComp); ok && lampOn(v) {
		return frame.Arc, true
	}
	return frame.Unknown, false
}

func ruleFlatLamp(f *frame.Frame) (frame.FrameType, bool) {
	v, ok := f.Attr(frame.AttrLampFlat)
	if !ok || !lampOn(v) {
		return frame.Unknown, false
	}
	// Dome flats trace the slit; internal lamps build the pixel flat.
	if strings.Contains(strings.ToLower(v), "dome") {
		return frame.Trace, true
	}
	return frame.PixelFlat, true
}

func ruleBias(f *frame.Frame) (frame.FrameType, bool) {
	if f.ExposureTime >= 0 && f.ExposureTime <= biasMaxExposure {
		return frame.Bias, true
	}
	return frame.Unknown, false
}

func ruleDark(f *frame.Frame) (frame.FrameType, bool) {
	v, ok := f.Attr(frame.AttrShutter)
	if ok && !lampOn(v) && f.ExposureTime > biasMaxExposure {
		return frame.Dark, true
	}
	return frame.Unknown, false
}

// standardStars is the target-name list used to pick out standard-star
// exposures. Matching is case-insensitive on the whole name.
var standardStars = map[string]bool{
	"feige 34":   true,
	"feige 66":   true,
	"feige 110":  true,
	"bd+28 4211": true,
	"bd+33 2642": true,
	"g191-b2b":   true,
	"gd 71":      true,
	"gd 153":     true,
	"hz 44":      true,
	"ltt 3864":   true,
}

func ruleStandard(f *frame.Frame) (frame.FrameType, bool) {
	if v, ok := f.Attr(frame.AttrTarget); ok && standardStars[strings.ToLower(v)] {
		return frame.Standard, true
	}
	return frame.Unknown, false
}

func ruleScience(f *frame.Frame) (frame.FrameType, bool) {
	if f.ExposureTime <= biasMaxExposure {
		return frame.Unknown, false
	}
	if v, ok := f.Attr(frame.AttrLampComp); ok && lampOn(v) {
		return frame.Unknown, false
	}
	if v, ok := f.Attr(frame.AttrLampFlat); ok && lampOn(v) {
		return frame.Unknown, false
	}
	if _, ok := f.Attr(frame.AttrTarget); ok {
		return frame.Science, true
	}
	return frame.Unknown, false
}

func init() {
	// Order matters: lamps identify calibrations regardless of exposure
	// time, so lamp rules run before the exposure-time rules.
	RegisterRuleset("generic", []Rule{
		NewRule("arc-lamp", ruleArcLamp),
		NewRule("flat-lamp", ruleFlatLamp),
		NewRule("zero-exposure-bias", ruleBias),
		NewRule("closed-shutter-dark", ruleDark),
		NewRule("standard-star-target", ruleStandard),
		NewRule("open-sky-science", ruleScience),
	})

	// Shane/Kast: bias frames are tagged by a closed shutter even when the
	// exposure time header reads a few milliseconds.
	RegisterRuleset("kast", []Rule{
		NewRule("arc-lamp", ruleArcLamp),
		NewRule("flat-lamp", ruleFlatLamp),
		NewRule("closed-shutter-bias", func(f *frame.Frame) (frame.FrameType, bool) {
			v, ok := f.Attr(frame.AttrShutter)
			if ok && !lampOn(v) && f.ExposureTime >= 0 && f.ExposureTime <= 1.0 {
				return frame.Bias, true
			}
			return frame.Unknown, false
		}),
		NewRule("zero-exposure-bias", ruleBias),
		NewRule("closed-shutter-dark", ruleDark),
		NewRule("standard-star-target", ruleStandard),
		NewRule("open-sky-science", ruleScience),
	})

	// Keck/LRIS: the comparison-lamp header lists the lamps that are lit,
	// so any non-empty list means an arc.
	RegisterRuleset("lris", []Rule{
		NewRule("arc-lamp-list", func(f *frame.Frame) (frame.FrameType, bool) {
			v, ok := f.Attr(frame.AttrLampComp)
			if !ok {
				return frame.Unknown, false
			}
			for _, lamp := range strings.Split(v, ",") {
				if lampOn(strings.TrimSpace(lamp)) {
					return frame.Arc, true
				}
			}
			return frame.Unknown, false
		}),
		NewRule("flat-lamp", ruleFlatLamp),
		NewRule("zero-exposure-bias", ruleBias),
		NewRule("closed-shutter-dark", ruleDark),
		NewRule("standard-star-target", ruleStandard),
		NewRule("open-sky-science", ruleScience),
	})
}
