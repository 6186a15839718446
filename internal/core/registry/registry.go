// Package registry loads the declarative detector configuration and resolves
// descriptors to concrete strategies through a compile-time dispatch table.
// The embedded detectors.json supplies only lookup keys; adding a detector
// type means adding a builder here, not reflection
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"classrouter/internal/core/detect"
	perr "classrouter/internal/platform/errors"
)

//go:embed detectors.json
var embedded []byte

// Descriptor is the declarative metadata for one detector
type Descriptor struct {
	Name        string `json:"name" validate:"required"`
	Impl        string `json:"impl" validate:"required"`
	Description string `json:"description"`
	OutputType  string `json:"output_type" validate:"required"`
}

type rawConfig struct {
	Detectors []Descriptor `json:"detectors"`
}

// Builder constructs a fresh, stateless strategy bound to the descriptor name
type Builder func(name string) detect.Strategy

// builders is the impl dispatch table. Every impl value appearing in
// detectors.json must have an entry here or Load fails
var builders = map[string]Builder{
	"lease_header": func(name string) detect.Strategy { return detect.NewLeaseHeader(name) },
	"jurisdiction": func(name string) detect.Strategy { return detect.NewJurisdiction(name) },
}

// Register adds a builder to the dispatch table so configs can reference a
// new impl. Meant for init-time wiring; returns an error on a duplicate key
func Register(impl string, b Builder) error {
	if _, ok := builders[impl]; ok {
		return perr.Configf("impl %q already registered", impl)
	}
	builders[impl] = b
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Registry holds the loaded descriptors and their resolved builders.
// Immutable after Load; safe for concurrent reads
type Registry struct {
	order    []Descriptor
	byName   map[string]Descriptor
	resolved map[string]Builder
}

// Load parses and resolves the embedded detector configuration.
// Any malformed, duplicate, or unresolvable entry aborts the load
func Load() (*Registry, error) { return Parse(embedded) }

// Parse builds a Registry from a raw JSON descriptor list
func Parse(src []byte) (*Registry, error) {
	var rc rawConfig
	if err := json.Unmarshal(src, &rc); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "invalid JSON in detector configuration")
	}
	if len(rc.Detectors) == 0 {
		return nil, perr.Configf("detector configuration lists no detectors")
	}

	r := &Registry{
		order:    make([]Descriptor, 0, len(rc.Detectors)),
		byName:   make(map[string]Descriptor, len(rc.Detectors)),
		resolved: make(map[string]Builder, len(rc.Detectors)),
	}
	for i, d := range rc.Detectors {
		if err := validate.Struct(d); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "detector entry %d is invalid", i)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, perr.Configf("duplicate detector name %q", d.Name)
		}
		b, ok := builders[d.Impl]
		if !ok {
			return nil, perr.Configf("detector %q: unknown impl %q (known: %s)",
				d.Name, d.Impl, strings.Join(knownImpls(), ", "))
		}
		// resolve eagerly so a broken entry fails startup, not first use
		if got := b(d.Name).Name(); got != d.Name {
			return nil, perr.Configf("detector %q: builder returned mismatched name %q", d.Name, got)
		}
		r.order = append(r.order, d)
		r.byName[d.Name] = d
		r.resolved[d.Name] = b
	}
	return r, nil
}

// Resolve returns a fresh strategy instance for name. Implementations must
// not assume shared state across calls
func (r *Registry) Resolve(name string) (detect.Strategy, error) {
	b, ok := r.resolved[name]
	if !ok {
		return nil, perr.Configf("unknown detector %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return b(name), nil
}

// List returns the descriptors in declaration order
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the detector names in declaration order
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, d := range r.order {
		out = append(out, d.Name)
	}
	return out
}

// Descriptor returns the descriptor for name
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, perr.Configf("detector %q not found in configuration", name)
	}
	return d, nil
}

// OutputTypes returns the derived name -> output type mapping
func (r *Registry) OutputTypes() map[string]string {
	out := make(map[string]string, len(r.order))
	for _, d := range r.order {
		out[d.Name] = d.OutputType
	}
	return out
}

func knownImpls() []string {
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String describes the registry for startup logs
func (r *Registry) String() string {
	return fmt.Sprintf("registry(%d detectors: %s)", len(r.order), strings.Join(r.Names(), ", "))
}
