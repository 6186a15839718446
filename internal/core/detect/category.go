package detect

import (
	"regexp"

	perr "classrouter/internal/platform/errors"
)

// Category is one candidate value with the patterns that select it
type Category struct {
	Value    string
	Patterns []*regexp.Regexp
}

// CategoryMatcher detects a value by trying categories in declaration order
// against the full text. The first category with any matching pattern wins;
// declaration order, not text-occurrence order, is the tie-break rule
type CategoryMatcher struct {
	name       string
	categories []Category
}

// CategorySpec is the compile-time form of a Category
type CategorySpec struct {
	Value    string
	Patterns []string
}

// NewCategoryMatcher compiles an ordered category spec into a matcher
func NewCategoryMatcher(name string, specs []CategorySpec) (*CategoryMatcher, error) {
	if len(specs) == 0 {
		return nil, perr.Configf("category matcher %q: at least one category is required", name)
	}
	categories := make([]Category, 0, len(specs))
	for _, spec := range specs {
		compiled := make([]*regexp.Regexp, 0, len(spec.Patterns))
		for _, p := range spec.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "category matcher %q: category %q pattern %q",
					name, spec.Value, p)
			}
			compiled = append(compiled, re)
		}
		categories = append(categories, Category{Value: spec.Value, Patterns: compiled})
	}
	return &CategoryMatcher{name: name, categories: categories}, nil
}

// NewJurisdiction builds the US-state jurisdiction matcher.
// Abbreviation patterns are deliberately case-sensitive so prose words like
// "ma" or "ca" cannot trigger a match
func NewJurisdiction(name string) *CategoryMatcher {
	m, err := NewCategoryMatcher(name, []CategorySpec{
		{Value: "CA", Patterns: []string{
			`(?i)\bState\s+of\s+California\b`,
			`(?i)\bCalifornia\b`,
			`\bCA\b`,
		}},
		{Value: "MA", Patterns: []string{
			`(?i)\bState\s+of\s+Massachusetts\b`,
			`(?i)\bCommonwealth\s+of\s+Massachusetts\b`,
			`(?i)\bMassachusetts\b`,
			`\bMA\b`,
		}},
		{Value: "NY", Patterns: []string{
			`(?i)\bState\s+of\s+New\s+York\b`,
			`(?i)\bNew\s+York\b`,
			`\bNY\b`,
		}},
	})
	if err != nil {
		// literal patterns above; compile failure is a programming error
		panic(err)
	}
	return m
}

// Detect returns the first declared category with any pattern matching text
func (m *CategoryMatcher) Detect(text string) Outcome {
	if text == "" {
		return Outcome{}
	}
	for _, cat := range m.categories {
		for _, re := range cat.Patterns {
			if re.MatchString(text) {
				return Outcome{Detected: true, Value: cat.Value}
			}
		}
	}
	return Outcome{}
}

// Name returns the descriptor name this matcher was resolved under
func (m *CategoryMatcher) Name() string { return m.name }
