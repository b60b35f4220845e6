// Package headers validates the header rows of the two compared sources and
// builds the column layout every downstream stage indexes into.
package headers

import (
	"sort"
	"strings"

	"csvreporter/internal/collate"
)

// Layout is the reconciled column structure of both sources.
type Layout struct {
	// Columns are the normalized names of the compared columns, sorted, with
	// the anchor and ignored columns removed.
	Columns []string

	// Anchor is the normalized anchor name.
	Anchor string

	// AnchorPrevious and AnchorCurrent are the raw anchor header names.
	AnchorPrevious string
	AnchorCurrent  string

	// Ignored holds the normalized names of ignored columns.
	Ignored map[string]struct{}

	// RawPrevious and RawCurrent map normalized names to raw header names.
	RawPrevious map[string]string
	RawCurrent  map[string]string

	// IndexPrevious and IndexCurrent map normalized names to column positions.
	IndexPrevious map[string]int
	IndexCurrent  map[string]int

	// WidthPrevious and WidthCurrent are the header column counts.
	WidthPrevious int
	WidthCurrent  int
}

// AnchorIndex returns the anchor column position for side.
func (l *Layout) AnchorIndex(s Side) int {
	if s == Current {
		return l.IndexCurrent[l.Anchor]
	}
	return l.IndexPrevious[l.Anchor]
}

// Width returns the header width for side.
func (l *Layout) Width(s Side) int {
	if s == Current {
		return l.WidthCurrent
	}
	return l.WidthPrevious
}

// IsIgnored reports whether the normalized column is ignored.
func (l *Layout) IsIgnored(column string) bool {
	_, ok := l.Ignored[column]
	return ok
}

// Has reports whether the normalized column exists in either source.
func (l *Layout) Has(column string) bool {
	if _, ok := l.IndexPrevious[column]; ok {
		return true
	}
	_, ok := l.IndexCurrent[column]
	return ok
}

type sideIndex struct {
	raw   map[string]string
	index map[string]int
}

func index(side Side, hdr []string) (sideIndex, error) {
	si := sideIndex{raw: make(map[string]string, len(hdr)), index: make(map[string]int, len(hdr))}
	for i, h := range hdr {
		if strings.TrimSpace(h) == "" {
			return si, &BlankHeaderError{Source: side, Position: i + 1}
		}
	}
	for i, h := range hdr {
		n := collate.Normalize(h)
		if first, dup := si.raw[n]; dup {
			return si, &DuplicateHeaderError{Source: side, First: first, Second: h}
		}
		si.raw[n] = h
		si.index[n] = i
	}
	return si, nil
}

// Reconcile validates both header rows and returns their Layout.
//
// Checks run in this order: blank headers, duplicate headers (Previous then
// Current), anchor presence, ignore entries, and finally set equality of the
// remaining columns.
func Reconcile(previous, current []string, anchor string, ignore []string) (*Layout, error) {
	prev, err := index(Previous, previous)
	if err != nil {
		return nil, err
	}
	curr, err := index(Current, current)
	if err != nil {
		return nil, err
	}

	a := collate.Normalize(anchor)
	if _, ok := prev.raw[a]; !ok {
		return nil, &AnchorNotFoundError{Source: Previous, Anchor: anchor}
	}
	if _, ok := curr.raw[a]; !ok {
		return nil, &AnchorNotFoundError{Source: Current, Anchor: anchor}
	}

	ignored := make(map[string]struct{}, len(ignore))
	for _, col := range ignore {
		n := collate.Normalize(col)
		if n == a {
			return nil, &InvalidIgnoreColumnError{Column: col, Reason: "is the anchor column"}
		}
		_, inPrev := prev.raw[n]
		_, inCurr := curr.raw[n]
		if !inPrev && !inCurr {
			return nil, &InvalidIgnoreColumnError{Column: col, Reason: "does not exist in either source"}
		}
		ignored[n] = struct{}{}
	}

	keep := func(n string) bool {
		if n == a {
			return false
		}
		_, skip := ignored[n]
		return !skip
	}

	var onlyPrev, onlyCurr, columns []string
	for n := range prev.raw {
		if !keep(n) {
			continue
		}
		if _, ok := curr.raw[n]; ok {
			columns = append(columns, n)
		} else {
			onlyPrev = append(onlyPrev, prev.raw[n])
		}
	}
	for n := range curr.raw {
		if !keep(n) {
			continue
		}
		if _, ok := prev.raw[n]; !ok {
			onlyCurr = append(onlyCurr, curr.raw[n])
		}
	}
	if len(onlyPrev) > 0 || len(onlyCurr) > 0 {
		sort.Strings(onlyPrev)
		sort.Strings(onlyCurr)
		return nil, &ColumnMismatchError{OnlyPrevious: onlyPrev, OnlyCurrent: onlyCurr}
	}
	// A file holding only the anchor column still compares by key, but an
	// ignore list must not be what empties it.
	if len(columns) == 0 && len(ignored) > 0 {
		return nil, &InvalidIgnoreColumnError{Column: strings.Join(ignore, ","), Reason: "leaves no column to compare"}
	}
	sort.Strings(columns)

	return &Layout{
		Columns:        columns,
		Anchor:         a,
		AnchorPrevious: prev.raw[a],
		AnchorCurrent:  curr.raw[a],
		Ignored:        ignored,
		RawPrevious:    prev.raw,
		RawCurrent:     curr.raw,
		IndexPrevious:  prev.index,
		IndexCurrent:   curr.index,
		WidthPrevious:  len(previous),
		WidthCurrent:   len(current),
	}, nil
}
