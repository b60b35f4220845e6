// Package collate provides the single string comparer a run uses for anchor
// equality and ordering, field equality, and transform trigger lookup.
//
// Case-sensitive comparison is ordinal (bytewise). Case-insensitive comparison
// is ordinal over a per-rune simple case mapping of both operands: every rune
// maps to exactly one rune, so "Straße" and "STRASSE" stay distinct.
package collate

import (
	"strings"
	"unicode"
)

// Comparer compares strings under one case-sensitivity setting.
type Comparer struct {
	caseSensitive bool
}

// New returns a Comparer. When caseSensitive is false, keys are case folded.
func New(caseSensitive bool) *Comparer {
	return &Comparer{caseSensitive: caseSensitive}
}

// CaseSensitive reports the comparer's mode.
func (c *Comparer) CaseSensitive() bool { return c.caseSensitive }

// Fork returns an independent Comparer with the same mode, for use on
// another goroutine.
func (c *Comparer) Fork() *Comparer { return New(c.caseSensitive) }

// Key maps s to the form used for map lookups and ordering. Two strings are
// equal under the comparer iff their keys are byte-identical.
func (c *Comparer) Key(s string) string {
	if c.caseSensitive {
		return s
	}
	return foldString(s)
}

// Equal reports whether a and b are equal under the comparer.
func (c *Comparer) Equal(a, b string) bool {
	if a == b {
		return true
	}
	if c.caseSensitive {
		return false
	}
	return c.Key(a) == c.Key(b)
}

// Compare orders a and b by their keys.
func (c *Comparer) Compare(a, b string) int {
	return strings.Compare(c.Key(a), c.Key(b))
}

// Mode returns a short label for logs.
func (c *Comparer) Mode() string {
	if c.caseSensitive {
		return "ordinal"
	}
	return "ordinal-fold"
}

// Normalize returns the normalized form of a header name: surrounding
// whitespace trimmed and case folded. Header normalization ignores the run's
// case-sensitivity setting.
func Normalize(name string) string {
	return foldString(strings.TrimSpace(name))
}

// foldRune upper-cases then lower-cases r, which lands every member of a
// simple case orbit (k, K, U+212A KELVIN SIGN; s, S, U+017F LONG S) on one
// rune. Runes without a single-rune mapping, such as ß, map to themselves.
func foldRune(r rune) rune {
	return unicode.ToLower(unicode.ToUpper(r))
}

func foldString(s string) string {
	return strings.Map(foldRune, s)
}
