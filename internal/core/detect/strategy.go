// Package detect implements the detector strategies run by the classification router
package detect

// Outcome is the result of a single detector invocation
type Outcome struct {
	Detected bool
	Value    string
}

// Strategy inspects text for one classification signal
// Implementations are stateless and safe for concurrent use. Detect never
// fails: malformed or empty input is reported as Outcome{Detected: false}
type Strategy interface {
	// Detect scans text and reports whether the signal was found
	Detect(text string) Outcome

	// Name returns the stable identifier equal to the owning descriptor's name
	Name() string
}
