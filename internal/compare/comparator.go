// Package compare classifies joined record pairs and tracks per-run tallies.
package compare

import (
	"csvreporter/internal/collate"
	"csvreporter/internal/headers"
	"csvreporter/internal/transformer"
	"csvreporter/pkg/records"
)

// Comparator compares Previous and Current records over the retained columns
// of a Layout.
type Comparator struct {
	columns  []string
	cmp      *collate.Comparer
	engine   *transformer.Engine
	detailed bool

	prevIdx, currIdx   []int
	prevAnch, currAnch int
}

// New returns a Comparator. A nil engine applies no transforms.
func New(l *headers.Layout, cmp *collate.Comparer, engine *transformer.Engine, detailed bool) *Comparator {
	c := &Comparator{
		columns:  l.Columns,
		cmp:      cmp,
		engine:   engine,
		detailed: detailed,
		prevIdx:  make([]int, len(l.Columns)),
		currIdx:  make([]int, len(l.Columns)),
		prevAnch: l.AnchorIndex(headers.Previous),
		currAnch: l.AnchorIndex(headers.Current),
	}
	for i, col := range l.Columns {
		c.prevIdx[i] = l.IndexPrevious[col]
		c.currIdx[i] = l.IndexCurrent[col]
	}
	return c
}

// Columns returns the normalized retained columns in report order.
func (c *Comparator) Columns() []string { return c.columns }

// Detailed reports whether every column's values and match are kept.
func (c *Comparator) Detailed() bool { return c.detailed }

// Comparer returns the run comparer.
func (c *Comparator) Comparer() *collate.Comparer { return c.cmp }

// Engine returns the transform engine, possibly nil.
func (c *Comparator) Engine() *transformer.Engine { return c.engine }

// Compare classifies a matched pair as Update or None. Only the Previous value
// is transformed, and only for comparison.
func (c *Comparator) Compare(prev, curr records.Record, t *Tally) Change {
	ch := Change{
		Anchor:   prev.Get(c.prevAnch),
		Class:    None,
		Fields:   make([]Field, len(c.columns)),
		PrevLine: prev.Line,
		CurrLine: curr.Line,
	}
	t.compared++
	for i, col := range c.columns {
		old := prev.Get(c.prevIdx[i])
		cur := curr.Get(c.currIdx[i])

		cmpOld := old
		if c.engine != nil {
			var r *transformer.Rule
			if cmpOld, r = c.engine.Apply(col, old); r != nil {
				t.applied[r]++
			}
		}
		match := c.cmp.Equal(cmpOld, cur)
		if !match {
			ch.Class = Update
			t.mismatches[i]++
		}
		ch.Fields[i] = Field{Old: old, New: cur, Match: match, Compared: true}
	}
	if !c.detailed && ch.Class == Update {
		for i := range ch.Fields {
			if ch.Fields[i].Match {
				ch.Fields[i].Old, ch.Fields[i].New = "", ""
			}
		}
	}
	return ch
}

// Added returns the Add change for a Current-only record.
func (c *Comparator) Added(curr records.Record) Change {
	ch := Change{Anchor: curr.Get(c.currAnch), Class: Add, Fields: make([]Field, len(c.columns)), CurrLine: curr.Line}
	for i := range c.columns {
		ch.Fields[i].New = curr.Get(c.currIdx[i])
	}
	return ch
}

// Deleted returns the Delete change for a Previous-only record.
func (c *Comparator) Deleted(prev records.Record) Change {
	ch := Change{Anchor: prev.Get(c.prevAnch), Class: Delete, Fields: make([]Field, len(c.columns)), PrevLine: prev.Line}
	for i := range c.columns {
		ch.Fields[i].Old = prev.Get(c.prevIdx[i])
	}
	return ch
}
