// Package engine runs the sorting pipeline: classify, group, associate,
// check, emit. One forward pass, no feedback loop; the user iterates by
// editing overrides and rerunning. Given the same frames and overrides the
// engine produces identical output, so reruns are safe.
package engine

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/obs-pipelines/framesort/internal/assoc"
	"github.com/obs-pipelines/framesort/internal/calcheck"
	"github.com/obs-pipelines/framesort/internal/classify"
	"github.com/obs-pipelines/framesort/internal/config"
	"github.com/obs-pipelines/framesort/internal/frame"
	"github.com/obs-pipelines/framesort/internal/manifest"
	"github.com/obs-pipelines/framesort/internal/override"
	"github.com/obs-pipelines/framesort/internal/setup"
)

// DefaultConcurrency bounds parallel classification and per-setup
// association.
const DefaultConcurrency = 8

// Engine holds the per-run configuration. It carries no state between runs.
type Engine struct {
	classifier  *classify.Classifier
	options     assoc.Options
	instrument  string
	Concurrency int
}

// Result is everything one run produces.
type Result struct {
	// Frames classified and sorted by identifier.
	Frames []*frame.Frame
	// Setups in deterministic grouper order.
	Setups []*setup.Setup
	// Associations keyed by setup ID.
	Associations map[string][]*assoc.Association
	// Manifest for the reduction stage.
	Manifest *manifest.Manifest
	// Report for the proceed/abort decision.
	Report *calcheck.Report
}

// New builds an engine from settings.
func New(cfg config.Config) (*Engine, error) {
	opts, err := cfg.AssocOptions()
	if err != nil {
		return nil, err
	}
	return &Engine{
		classifier:  classify.New(cfg.Instrument),
		options:     opts,
		instrument:  cfg.Instrument,
		Concurrency: DefaultConcurrency,
	}, nil
}

// Run executes the pipeline over an already-loaded frame set.
//
// Classification runs per frame under a bounded worker pool; grouping then
// runs single-threaded over the identifier-sorted frame list so setup
// identity never depends on discovery order. Association and checking run
// per setup, which is safe because setups are disjoint.
//
// The only hard failure is an override table referencing identifiers that
// were never discovered; every other problem is accumulated into the
// report.
func (e *Engine) Run(frames []*frame.Frame, metaErrs []*frame.MetadataError, overrides *override.Table) (*Result, error) {
	known := make(map[string]bool, len(frames))
	for _, f := range frames {
		known[f.ID] = true
	}
	if err := overrides.Validate(known); err != nil {
		return nil, fmt.Errorf("override validation: %w", err)
	}

	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	slog.Debug("Classifying frames", "count", len(frames), "concurrency", concurrency)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)
	for _, f := range frames {
		wg.Add(1)
		go func(f *frame.Frame) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release
			f.InferredType = e.classifier.Classify(f, overrides)
		}(f)
	}
	wg.Wait()

	// Grouping sorts by identifier internally, which also fixes the
	// frame order the manifest will carry.
	setups := setup.Group(frames)
	slog.Debug("Grouped frames", "setups", len(setups))

	associations := make(map[string][]*assoc.Association, len(setups))
	var mu sync.Mutex
	for _, s := range setups {
		wg.Add(1)
		go func(s *setup.Setup) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			list := assoc.Associate(s, overrides, e.options)
			mu.Lock()
			associations[s.ID] = list
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	report := calcheck.Check(setups, associations, metaErrs)
	m := manifest.Build(e.instrument, setups, associations)

	sorted := make([]*frame.Frame, len(frames))
	copy(sorted, frames)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return &Result{
		Frames:       sorted,
		Setups:       setups,
		Associations: associations,
		Manifest:     m,
		Report:       report,
	}, nil
}
