// Package textnorm canonicalizes the free text found in Blackboard exports:
// header labels, emails, student IDs and names. Every function is pure and
// idempotent so normalized values can be compared across files and runs.
package textnorm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const nbsp = "\u00a0"

var (
	emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,}`)

	// Trailing "[Total Pts: 100 Score] |1234567" style annotations.
	bracketSuffix = regexp.MustCompile(`\s*\[.*?\]\s*(?:\|\s*\d+)?\s*$`)
	pipeSuffix    = regexp.MustCompile(`\s*\|\s*\d+\s*$`)
	whitespace    = regexp.MustCompile(`\s+`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
)

// stripMarks decomposes to NFKD and drops combining marks. A transformer is
// stateful, so each call builds its own chain.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey trims, removes diacritics and lowercases s.
func NormalizeKey(s string) string {
	return strings.ToLower(stripMarks(strings.ToLower(strings.TrimSpace(s))))
}

// CompactKey is NormalizeKey with every non [a-z0-9] rune removed.
func CompactKey(s string) string {
	return nonAlnum.ReplaceAllString(NormalizeKey(s), "")
}

// Tokens splits the normalized form of s on non-alphanumeric runs.
func Tokens(s string) []string {
	parts := nonAlnum.Split(NormalizeKey(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeEmail extracts the first email-shaped substring of s, lowercased.
// It returns "" when s holds no email.
func NormalizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, nbsp, " ")))
	if s == "" {
		return ""
	}
	return strings.ToLower(emailPattern.FindString(s))
}

// FirstEmail returns the first email found scanning cells in order.
func FirstEmail(cells []string) string {
	for _, c := range cells {
		if e := NormalizeEmail(c); e != "" {
			return e
		}
	}
	return ""
}

// NormalizeStudentID returns the "e"-prefixed form used by the student
// directory: "123" becomes "e123", "E123" becomes "e123", other values are only
// lowered with spaces removed.
func NormalizeStudentID(s string) string {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
	if s == "" || strings.HasPrefix(s, "e") {
		return s
	}
	if isDigits(s) {
		return "e" + s
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// CleanHeader strips trailing point-value and column-ID annotations and
// collapses whitespace, so "Overall Grade [Total Pts: 100] |1234567" and
// "Overall Grade" compare equal.
func CleanHeader(h string) string {
	h = strings.TrimSpace(strings.ReplaceAll(h, nbsp, " "))
	h = bracketSuffix.ReplaceAllString(h, "")
	h = pipeSuffix.ReplaceAllString(h, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(h, " "))
}

// DedupeHeaders cleans headers and suffixes collisions with _1, _2, ... in
// column order. The first occurrence keeps its name; a header that cleans to
// nothing keeps its original text, or becomes "Unnamed".
func DedupeHeaders(headers []string) []string {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, original := range headers {
		base := CleanHeader(original)
		if base == "" {
			base = strings.TrimSpace(original)
		}
		if base == "" {
			base = "Unnamed"
		}
		key := base
		if n, ok := seen[base]; ok {
			n++
			seen[base] = n
			key = base + "_" + strconv.Itoa(n)
		} else {
			seen[base] = 0
		}
		out[i] = key
	}
	return out
}

// ParseDecimal parses numbers written with either a comma or a dot decimal
// separator.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, nbsp, ""))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseDecimalPtr is ParseDecimal returning nil on failure.
func ParseDecimalPtr(s string) *float64 {
	v, ok := ParseDecimal(s)
	if !ok {
		return nil
	}
	return &v
}
