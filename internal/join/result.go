package join

import (
	"fmt"

	"csvreporter/internal/compare"
	"csvreporter/internal/headers"
)

// Result summarizes one join run.
type Result struct {
	Strategy string

	Added     int
	Updated   int
	Deleted   int
	Unchanged int

	PreviousRows int
	CurrentRows  int

	// Duplicate anchors that were tolerated, first occurrence kept.
	PreviousConflicts []Conflict
	CurrentConflicts  []Conflict

	// Tally holds the comparison counts for the summary row.
	Tally *compare.Tally
}

func (r *Result) count(c compare.Classification) {
	switch c {
	case compare.Add:
		r.Added++
	case compare.Update:
		r.Updated++
	case compare.Delete:
		r.Deleted++
	default:
		r.Unchanged++
	}
}

// Changes returns the number of Add, Update, and Delete outcomes.
func (r *Result) Changes() int { return r.Added + r.Updated + r.Deleted }

// Keys returns the number of distinct anchor keys across both sides.
func (r *Result) Keys() int { return r.Changes() + r.Unchanged }

// Duplicates returns how many duplicate rows were skipped.
func (r *Result) Duplicates() int {
	n := 0
	for _, cs := range [][]Conflict{r.PreviousConflicts, r.CurrentConflicts} {
		for _, c := range cs {
			n += len(c.Lines) - 1
		}
	}
	return n
}

// Warnings renders the tolerated conflicts as log lines.
func (r *Result) Warnings() []string {
	var out []string
	for _, s := range []struct {
		side headers.Side
		cs   []Conflict
	}{{headers.Previous, r.PreviousConflicts}, {headers.Current, r.CurrentConflicts}} {
		for _, c := range s.cs {
			out = append(out, fmt.Sprintf("%s: duplicate anchor %q on lines %v; kept line %d", s.side, c.Anchor, c.Lines, c.Lines[0]))
		}
	}
	return out
}

func (r *Result) String() string {
	return fmt.Sprintf("strategy=%s add=%d update=%d delete=%d none=%d previous_rows=%d current_rows=%d duplicates=%d",
		r.Strategy, r.Added, r.Updated, r.Deleted, r.Unchanged, r.PreviousRows, r.CurrentRows, r.Duplicates())
}
