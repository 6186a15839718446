package detect

import (
	"regexp"

	perr "classrouter/internal/platform/errors"
)

// headerWindow is how many leading characters count as the document header
const headerWindow = 500

// HeaderMatcher detects a document type by matching an ordered list of
// patterns against the header window only. The first match wins and yields
// the matcher's fixed label
type HeaderMatcher struct {
	name     string
	label    string
	patterns []*regexp.Regexp
}

// NewHeaderMatcher compiles the given patterns into a header matcher
func NewHeaderMatcher(name, label string, patterns []string) (*HeaderMatcher, error) {
	if len(patterns) == 0 {
		return nil, perr.Configf("header matcher %q: at least one pattern is required", name)
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "header matcher %q: pattern %q", name, p)
		}
		compiled = append(compiled, re)
	}
	return &HeaderMatcher{name: name, label: label, patterns: compiled}, nil
}

// NewLeaseHeader builds the lease-document header matcher
func NewLeaseHeader(name string) *HeaderMatcher {
	m, err := NewHeaderMatcher(name, "lease", []string{
		`(?i)\bLEASE\b`,
		`(?i)\bRENTAL\s+AGREEMENT\b`,
		`(?i)\bTENANCY\s+AGREEMENT\b`,
		`(?i)\bLEASE\s+AGREEMENT\b`,
	})
	if err != nil {
		// literal patterns above; compile failure is a programming error
		panic(err)
	}
	return m
}

// Detect reports the fixed label when any pattern matches within the header window
func (m *HeaderMatcher) Detect(text string) Outcome {
	if text == "" {
		return Outcome{}
	}
	header := text
	if runes := []rune(text); len(runes) > headerWindow {
		header = string(runes[:headerWindow])
	}
	for _, re := range m.patterns {
		if re.MatchString(header) {
			return Outcome{Detected: true, Value: m.label}
		}
	}
	return Outcome{}
}

// Name returns the descriptor name this matcher was resolved under
func (m *HeaderMatcher) Name() string { return m.name }
