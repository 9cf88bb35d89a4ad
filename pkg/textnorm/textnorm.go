// Package textnorm holds the string cleanup applied to catalog entries and OCR output
// before they are compared.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRE = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	traitRE    = regexp.MustCompile(`(?i)\btrait\b`)
	digitsRE   = regexp.MustCompile(`\d+`)
)

// Name trims surrounding whitespace. Item titles are otherwise matched as read.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Key is the match-time form of a catalog entry or query.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Trait reduces OCR'd trait text to its comparable core:
// "Trait: Off-Hand Double Attack 3" becomes "offhand double attack".
func Trait(s string) string {
	s = FoldAccents(s)
	s = nonAlnumRE.ReplaceAllString(s, "")
	s = traitRE.ReplaceAllString(s, "")
	s = digitsRE.ReplaceAllString(s, "")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// OCR flattens engine output onto a single line.
func OCR(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.Join(strings.Fields(s), " ")
}

// FoldAccents strips combining marks so "Épée" compares as "Epee".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Snippet shortens s for log lines.
func Snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
