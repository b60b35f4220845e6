package headers

import (
	"fmt"
	"strings"
)

// Side names one of the two compared inputs.
type Side string

const (
	Previous Side = "previous"
	Current  Side = "current"
)

// BlankHeaderError reports an empty or whitespace-only header cell.
type BlankHeaderError struct {
	Source   Side
	Position int // 1-based
}

func (e *BlankHeaderError) Error() string {
	return fmt.Sprintf("%s: header at position %d is blank", e.Source, e.Position)
}

// DuplicateHeaderError reports two headers that normalize to the same name.
type DuplicateHeaderError struct {
	Source        Side
	First, Second string
}

func (e *DuplicateHeaderError) Error() string {
	return fmt.Sprintf("%s: headers %q and %q are duplicates after normalization", e.Source, e.First, e.Second)
}

// ColumnMismatchError reports differing column sets after ignore filtering.
type ColumnMismatchError struct {
	OnlyPrevious []string
	OnlyCurrent  []string
}

func (e *ColumnMismatchError) Error() string {
	var parts []string
	if len(e.OnlyPrevious) > 0 {
		parts = append(parts, "only in previous: "+strings.Join(e.OnlyPrevious, ", "))
	}
	if len(e.OnlyCurrent) > 0 {
		parts = append(parts, "only in current: "+strings.Join(e.OnlyCurrent, ", "))
	}
	return "column sets differ (" + strings.Join(parts, "; ") + ")"
}

// AnchorNotFoundError reports an anchor column missing from one source.
type AnchorNotFoundError struct {
	Source Side
	Anchor string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("%s: anchor column %q not found", e.Source, e.Anchor)
}

// InvalidIgnoreColumnError reports an unusable ignore entry.
type InvalidIgnoreColumnError struct {
	Column string
	Reason string
}

func (e *InvalidIgnoreColumnError) Error() string {
	return fmt.Sprintf("ignore column %q: %s", e.Column, e.Reason)
}
