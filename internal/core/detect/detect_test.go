package detect

import (
	"strings"
	"testing"
)

func TestLeaseHeader_MatchesHeaderKeywords(t *testing.T) {
	d := NewLeaseHeader("lease_header")

	cases := []struct {
		name string
		text string
		want Outcome
	}{
		{"lease agreement", "LEASE AGREEMENT between parties", Outcome{Detected: true, Value: "lease"}},
		{"rental agreement", "This RENTAL AGREEMENT is made on...", Outcome{Detected: true, Value: "lease"}},
		{"tenancy agreement", "TENANCY AGREEMENT for the premises", Outcome{Detected: true, Value: "lease"}},
		{"case insensitive", "this lease is binding", Outcome{Detected: true, Value: "lease"}},
		{"employment agreement", "EMPLOYMENT AGREEMENT between company and employee", Outcome{}},
		{"no keyword inside word", "released from obligations", Outcome{}},
		{"empty", "", Outcome{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := d.Detect(c.text); got != c.want {
				t.Fatalf("Detect(%q) = %+v, want %+v", c.text, got, c.want)
			}
		})
	}
}

func TestLeaseHeader_OnlyScansHeaderWindow(t *testing.T) {
	d := NewLeaseHeader("lease_header")

	// keyword entirely past the first 500 characters must not match
	text := strings.Repeat("x", 501) + " LEASE AGREEMENT"
	if got := d.Detect(text); got.Detected {
		t.Fatalf("keyword beyond the header window matched: %+v", got)
	}

	// keyword straddling position 499 is inside the window
	text = strings.Repeat("x", 490) + " LEASE"
	if got := d.Detect(text); !got.Detected {
		t.Fatalf("keyword inside the header window did not match")
	}
}

func TestNewHeaderMatcher_Validation(t *testing.T) {
	if _, err := NewHeaderMatcher("m", "v", nil); err == nil {
		t.Fatalf("empty pattern list should fail")
	}
	if _, err := NewHeaderMatcher("m", "v", []string{"("}); err == nil {
		t.Fatalf("invalid pattern should fail")
	}
}

func TestJurisdiction_DetectsStates(t *testing.T) {
	d := NewJurisdiction("jurisdiction")

	cases := []struct {
		name string
		text string
		want Outcome
	}{
		{"california formal", "governed by the laws of the State of California.", Outcome{Detected: true, Value: "CA"}},
		{"massachusetts commonwealth", "under the Commonwealth of Massachusetts law", Outcome{Detected: true, Value: "MA"}},
		{"new york formal", "in the State of New York", Outcome{Detected: true, Value: "NY"}},
		{"abbreviation exact case", "located in Boston, MA 02101", Outcome{Detected: true, Value: "MA"}},
		{"lowercase abbreviation ignored", "ma is not a state reference", Outcome{}},
		{"no state", "no jurisdiction mentioned here", Outcome{}},
		{"empty", "", Outcome{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := d.Detect(c.text); got != c.want {
				t.Fatalf("Detect(%q) = %+v, want %+v", c.text, got, c.want)
			}
		})
	}
}

func TestJurisdiction_DeclarationOrderWins(t *testing.T) {
	d := NewJurisdiction("jurisdiction")

	// Massachusetts appears first in the text, but CA is declared first
	text := "offices in Massachusetts and headquarters in California"
	got := d.Detect(text)
	if !got.Detected || got.Value != "CA" {
		t.Fatalf("first-declared category should win regardless of text order, got %+v", got)
	}
}

func TestCategoryMatcher_Validation(t *testing.T) {
	if _, err := NewCategoryMatcher("m", nil); err == nil {
		t.Fatalf("empty category list should fail")
	}
	if _, err := NewCategoryMatcher("m", []CategorySpec{
		{Value: "X", Patterns: []string{"("}},
	}); err == nil {
		t.Fatalf("invalid pattern should fail")
	}
}

func TestStrategyNames(t *testing.T) {
	if got := NewLeaseHeader("lease_header").Name(); got != "lease_header" {
		t.Fatalf("Name() = %q", got)
	}
	if got := NewJurisdiction("my_juris").Name(); got != "my_juris" {
		t.Fatalf("Name() = %q", got)
	}
}
