// Package records defines the row type shared by the reader, the join
// strategies, and the comparator.
package records

import "strings"

// Record is one data row of a delimited source. Values are aligned to the
// source header; Line is the 1-based physical line the row started on.
type Record struct {
	Line   int
	Values []string
}

// Get returns the value at column index i, or "" when i is out of range.
func (r Record) Get(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Blank reports whether every value is empty or whitespace.
func (r Record) Blank() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
