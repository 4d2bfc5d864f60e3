// Package text holds the text normalization shared by intent detection,
// tool selection and retrieval.
package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var digitRun = regexp.MustCompile(`[0-9]{4,}`)

// Normalize case-folds s and strips combining diacritical marks, so that
// "Ödeme" and "odeme" compare equal. It never fails; if the transformer
// reports an error the case-folded input is returned.
func Normalize(s string) string {
	// transform.Chain is stateful, build one per call.
	t := transform.Chain(cases.Fold(), norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// NormalizeAll normalizes every word and drops empty ones.
func NormalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := strings.TrimSpace(Normalize(w)); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Tokens splits normalized text on whitespace.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// FirstDigitRun returns the first run of four or more ASCII digits in s.
func FirstDigitRun(s string) (string, bool) {
	m := digitRun.FindString(s)
	return m, m != ""
}

// ContainsAny reports whether any of the needles is a substring of s.
func ContainsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
