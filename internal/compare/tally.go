package compare

import "csvreporter/internal/transformer"

// Tally accumulates per-run comparison counts. One Tally belongs to one run
// and is not safe for concurrent use.
type Tally struct {
	compared   int
	mismatches []int
	applied    map[*transformer.Rule]int
}

// NewTally returns a Tally for a layout with the given retained column count.
func NewTally(columns int) *Tally {
	return &Tally{mismatches: make([]int, columns), applied: map[*transformer.Rule]int{}}
}

// Compared returns the number of matched pairs compared.
func (t *Tally) Compared() int { return t.compared }

// Mismatches returns how many compared pairs differed in column i.
func (t *Tally) Mismatches(i int) int { return t.mismatches[i] }

// Applied returns how often r produced a comparison value.
func (t *Tally) Applied(r *transformer.Rule) int { return t.applied[r] }

// TotalApplied sums all rule applications.
func (t *Tally) TotalApplied() int {
	n := 0
	for _, c := range t.applied {
		n += c
	}
	return n
}
