package join

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"csvreporter/internal/compare"
	"csvreporter/internal/headers"
)

// SortMergeJoin spools each side into a temporary SQLite database keyed by
// anchor, then merges the two key-ordered scans. Memory use is bounded by one
// batch per side; the spool directory is removed on every return path.
type SortMergeJoin struct {
	cmp *compare.Comparator
	opt Options
}

func (j *SortMergeJoin) Name() string { return SortMerge }

func (j *SortMergeJoin) Run(ctx context.Context, prev, curr *Source, emit Emit) (*Result, error) {
	dir, err := os.MkdirTemp(j.opt.TempDir, "csvreporter-spool-*")
	if err != nil {
		return nil, fmt.Errorf("sortmerge: create spool dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ps, err := openSpool(ctx, filepath.Join(dir, "previous.db"), headers.Previous)
	if err != nil {
		return nil, err
	}
	defer ps.close()
	cs, err := openSpool(ctx, filepath.Join(dir, "current.db"), headers.Current)
	if err != nil {
		return nil, err
	}
	defer cs.close()

	// The spools share nothing; each goroutine gets its own comparer.
	cmp := j.cmp.Comparer()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ps.fill(gctx, prev, cmp.Fork(), j.opt.BatchSize) })
	g.Go(func() error { return cs.fill(gctx, curr, cmp.Fork(), j.opt.BatchSize) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Printf("join: spooled previous=%d (%d batches) current=%d (%d batches) dir=%s",
		ps.rows, ps.batches, cs.rows, cs.batches, dir)

	res := &Result{
		Strategy:     SortMerge,
		PreviousRows: ps.rows,
		CurrentRows:  cs.rows,
		Tally:        compare.NewTally(len(j.cmp.Columns())),
	}
	if err := j.merge(ctx, ps, cs, res, emit); err != nil {
		return nil, err
	}
	return res, nil
}

func (j *SortMergeJoin) merge(ctx context.Context, ps, cs *spool, res *Result, emit Emit) error {
	pc, err := ps.scan(ctx)
	if err != nil {
		return err
	}
	defer pc.close()
	cc, err := cs.scan(ctx)
	if err != nil {
		return err
	}
	defer cc.close()

	for n := 0; pc.valid || cc.valid; n++ {
		if err := checkCtx(ctx, n); err != nil {
			return err
		}
		var ch compare.Change
		var advP, advC bool
		switch {
		case !cc.valid || (pc.valid && pc.key < cc.key):
			ch, advP = j.cmp.Deleted(pc.rec), true
		case !pc.valid || pc.key > cc.key:
			ch, advC = j.cmp.Added(cc.rec), true
		default:
			ch, advP, advC = j.cmp.Compare(pc.rec, cc.rec, res.Tally), true, true
		}
		if err := emitCounted(res, emit, ch); err != nil {
			return err
		}
		if advP {
			if err := pc.next(); err != nil {
				return err
			}
		}
		if advC {
			if err := cc.next(); err != nil {
				return err
			}
		}
	}
	return nil
}
