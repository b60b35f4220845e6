package report

import (
	"fmt"
	"strings"

	"csvreporter/internal/compare"
)

// summary builds the first row of a detailed report. Each column's match cell
// reads "<mismatches> of <compared> FALSE"; when the column has transforms
// its old cell lists how often each rule fired.
func (a *Assembler) summary(t *compare.Tally) []string {
	row := make([]string, 0, len(a.header))
	row = append(row, SummaryAnchor, SummaryStatus)
	for i, col := range a.cmp.Columns() {
		row = append(row, a.digest(col, t), "", fmt.Sprintf("%d of %d FALSE", t.Mismatches(i), t.Compared()))
	}
	return row
}

// digest renders "<trigger> -> <directive>: <count>" per rule, joined by "; ".
func (a *Assembler) digest(col string, t *compare.Tally) string {
	eng := a.cmp.Engine()
	if eng == nil {
		return ""
	}
	rules := eng.Rules(col)
	if len(rules) == 0 {
		return ""
	}
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = fmt.Sprintf("%s: %d", r.Label(), t.Applied(r))
	}
	return strings.Join(parts, "; ")
}
