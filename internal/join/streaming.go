package join

import (
	"context"
	"errors"
	"io"

	"csvreporter/internal/compare"
	"csvreporter/pkg/records"
)

// StreamingJoin materializes Previous and reads Current once. Matched keys are
// removed from the Previous index; whatever remains afterwards is deleted.
//
// Output follows Current input order for Add, Update, and None, then Previous
// input order for Delete. Every distinct Current key is retained with its
// first line to detect duplicate Current anchors, including anchors that never
// appear in Previous, so memory grows with the number of distinct Current keys.
// Use sortmerge when that is too much.
type StreamingJoin struct {
	cmp *compare.Comparator
}

func (j *StreamingJoin) Name() string { return Streaming }

func (j *StreamingJoin) Run(ctx context.Context, prev, curr *Source, emit Emit) (*Result, error) {
	cmp := j.cmp.Comparer()
	pix, err := BuildIndex(ctx, prev, cmp)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Strategy:          Streaming,
		PreviousRows:      prev.Rows(),
		PreviousConflicts: pix.Conflicts(),
		Tally:             compare.NewTally(len(j.cmp.Columns())),
	}

	seen := map[string]int{} // current key -> first line
	var dups conflicts
	for n := 0; ; n++ {
		if err := checkCtx(ctx, n); err != nil {
			return nil, err
		}
		c, anchor, err := curr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		key := cmp.Key(anchor)
		if first, dup := seen[key]; dup {
			dups.add(key, anchor, first, c.Line)
			continue
		}
		seen[key] = c.Line

		var ch compare.Change
		if p, ok := pix.Get(key); ok {
			pix.Remove(key)
			ch = j.cmp.Compare(p, c, res.Tally)
		} else {
			ch = j.cmp.Added(c)
		}
		if err := emitCounted(res, emit, ch); err != nil {
			return nil, err
		}
	}
	res.CurrentRows = curr.Rows()
	res.CurrentConflicts = dups.list

	err = pix.Each(func(_ string, p records.Record) error {
		return emitCounted(res, emit, j.cmp.Deleted(p))
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
