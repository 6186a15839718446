// Package classify routes text through configured detectors and aggregates
// their outcomes with per-detector fault isolation
package classify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"classrouter/internal/core/detect"
	"classrouter/internal/core/registry"
	perr "classrouter/internal/platform/errors"
	"classrouter/internal/platform/logger"
)

// Result aggregates one classification run.
// Invariants: keys(Results) == Succeeded; Succeeded and Failed are disjoint;
// every requested detector lands in exactly one of the two
type Result struct {
	TextLength int
	Results    map[string]detect.Outcome
	Succeeded  map[string]struct{}
	Failed     map[string]string
}

// HasDetections reports whether any detector found a positive detection
func (r Result) HasDetections() bool {
	for _, out := range r.Results {
		if out.Detected {
			return true
		}
	}
	return false
}

// DetectedValues returns name -> value for successful, positive, non-empty detections
func (r Result) DetectedValues() map[string]string {
	out := make(map[string]string)
	for name, res := range r.Results {
		if _, ok := r.Succeeded[name]; ok && res.Detected && res.Value != "" {
			out[name] = res.Value
		}
	}
	return out
}

// ByOutputType projects detected values through a name -> output type mapping.
// Detectors absent from the mapping are dropped
func (r Result) ByOutputType(mapping map[string]string) map[string]string {
	out := make(map[string]string)
	for name, value := range r.DetectedValues() {
		if ot, ok := mapping[name]; ok {
			out[ot] = value
		}
	}
	return out
}

// Router executes detectors resolved from a Registry.
// Read-only after construction; safe for concurrent use
type Router struct {
	reg *registry.Registry
}

// New builds a Router over a loaded registry
func New(reg *registry.Registry) *Router { return &Router{reg: reg} }

// Classify runs every registered detector over text
func (r *Router) Classify(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, perr.InvalidArgf("input text cannot be empty or blank")
	}
	return r.ClassifyWith(text, r.reg.Names())
}

// ClassifyWith runs the named detectors over text. A failing detector is
// recorded and never aborts the rest of the set
func (r *Router) ClassifyWith(text string, names []string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, perr.InvalidArgf("input text cannot be empty or blank")
	}
	if len(names) == 0 {
		return Result{}, perr.InvalidArgf("at least one detector name must be specified")
	}

	res := Result{
		TextLength: utf8.RuneCountInString(text),
		Results:    make(map[string]detect.Outcome, len(names)),
		Succeeded:  make(map[string]struct{}, len(names)),
		Failed:     make(map[string]string),
	}
	log := logger.Named("classify")
	for _, name := range names {
		r.runOne(text, name, &res)
		if msg, failed := res.Failed[name]; failed {
			log.Warn().Str("detector", name).Str("error", msg).Msg("detector failed")
		} else {
			out := res.Results[name]
			log.Debug().Str("detector", name).Bool("detected", out.Detected).
				Str("value", out.Value).Msg("detector completed")
		}
	}
	return res, nil
}

// runOne resolves and invokes a single detector, containing any failure
func (r *Router) runOne(text, name string, res *Result) {
	defer func() {
		if p := recover(); p != nil {
			res.Failed[name] = fmt.Sprintf("panic: %v", p)
		}
	}()
	s, err := r.reg.Resolve(name)
	if err != nil {
		res.Failed[name] = err.Error()
		return
	}
	out := s.Detect(text)
	res.Results[name] = out
	res.Succeeded[name] = struct{}{}
}

// AvailableDetectors returns the detector names in declaration order
func (r *Router) AvailableDetectors() []string { return r.reg.Names() }

// DetectorInfo returns the descriptor for name
func (r *Router) DetectorInfo(name string) (registry.Descriptor, error) {
	d, err := r.reg.Descriptor(name)
	if err != nil {
		return registry.Descriptor{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument,
			"failed to get detector info for %q", name)
	}
	return d, nil
}

// OutputTypes returns the derived name -> output type mapping
func (r *Router) OutputTypes() map[string]string { return r.reg.OutputTypes() }
