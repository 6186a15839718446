// Package normalize prepares inbound document text for pattern matching
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFC composition
//
// Nothing else. Case handling belongs to the individual detectors, and
// whitespace collapsing or transliteration would shift the offsets the
// header-window matcher depends on
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text returns the normalized form of s following the pipeline described above
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
