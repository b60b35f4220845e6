package join

import (
	"context"

	"csvreporter/internal/compare"
	"csvreporter/pkg/records"
)

// InMemory materializes both sides. Previous keys are emitted in Previous
// input order, then Current-only keys in Current input order.
type InMemory struct {
	cmp *compare.Comparator
}

func (j *InMemory) Name() string { return Memory }

func (j *InMemory) Run(ctx context.Context, prev, curr *Source, emit Emit) (*Result, error) {
	cmp := j.cmp.Comparer()
	pix, err := BuildIndex(ctx, prev, cmp)
	if err != nil {
		return nil, err
	}
	cix, err := BuildIndex(ctx, curr, cmp)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Strategy:          Memory,
		PreviousRows:      prev.Rows(),
		CurrentRows:       curr.Rows(),
		PreviousConflicts: pix.Conflicts(),
		CurrentConflicts:  cix.Conflicts(),
		Tally:             compare.NewTally(len(j.cmp.Columns())),
	}
	tally := res.Tally

	n := 0
	err = pix.Each(func(key string, p records.Record) error {
		n++
		if err := checkCtx(ctx, n); err != nil {
			return err
		}
		c, ok := cix.Get(key)
		if !ok {
			return emitCounted(res, emit, j.cmp.Deleted(p))
		}
		cix.Remove(key)
		return emitCounted(res, emit, j.cmp.Compare(p, c, tally))
	})
	if err != nil {
		return nil, err
	}
	err = cix.Each(func(_ string, c records.Record) error {
		return emitCounted(res, emit, j.cmp.Added(c))
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
