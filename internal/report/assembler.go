// Package report turns join outcomes into the delimited change report.
//
// In the default mode only Add, Update, and Delete rows are written, in join
// order, flushed every batch-size rows. The file is created on the first
// flush, so a run without changes leaves no file at all. In detailed mode
// every row, None included, is collected, sorted by anchor, and written once
// behind a summary row of per-column mismatch counts and transform digests.
package report

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"csvreporter/internal/compare"
	"csvreporter/internal/headers"
	"csvreporter/internal/join"
	"csvreporter/internal/parser/csv"
)

// Status column header and summary row markers.
const (
	StatusColumn  = "Status"
	SummaryAnchor = "SUMMARY"
	SummaryStatus = "---"
)

// Mirror receives every batch written to the report.
type Mirror interface {
	WriteChanges(ctx context.Context, batch []compare.Change) error
}

// Options configures an Assembler.
type Options struct {
	Path      string
	CSV       csv.Options
	BatchSize int
	Detailed  bool
}

// Outcome describes what the report stage produced.
type Outcome struct {
	Written  bool
	Path     string
	Rows     int64 // data rows, summary excluded
	Batches  int
	Checksum uint64

	Added, Updated, Deleted, Unchanged int
}

// Assembler buffers Changes and writes them through a csv.Writer.
type Assembler struct {
	fs     afero.Fs
	cmp    *compare.Comparator
	opt    Options
	mirror Mirror
	header []string
	labels []string

	w       *csv.Writer
	pending []compare.Change
	rows    int64
	batches int
	start   time.Time
}

// New returns an Assembler writing to opt.Path on fs. mirror may be nil.
func New(fs afero.Fs, c *compare.Comparator, l *headers.Layout, opt Options, mirror Mirror) *Assembler {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 10000
	}
	labels := ColumnLabels(c, l)
	a := &Assembler{fs: fs, cmp: c, opt: opt, mirror: mirror, labels: labels, start: time.Now()}
	a.header = append(a.header, strings.TrimSpace(l.AnchorPrevious), StatusColumn)
	for _, lb := range labels {
		a.header = append(a.header, "old "+lb, "new "+lb)
		if opt.Detailed {
			a.header = append(a.header, "match "+lb)
		}
	}
	return a
}

// ColumnLabels returns the display names of c's compared columns: the
// Previous header spelling, trimmed.
func ColumnLabels(c *compare.Comparator, l *headers.Layout) []string {
	labels := make([]string, len(c.Columns()))
	for i, col := range c.Columns() {
		labels[i] = strings.TrimSpace(l.RawPrevious[col])
	}
	return labels
}

// Header returns the report's column names.
func (a *Assembler) Header() []string { return a.header }

// Labels returns the display names of the compared columns, in Change.Fields
// order.
func (a *Assembler) Labels() []string { return a.labels }

// Add accepts one Change. Its signature matches join.Emit.
func (a *Assembler) Add(ctx context.Context, ch compare.Change) error {
	if a.opt.Detailed {
		a.pending = append(a.pending, ch)
		return nil
	}
	if !ch.Class.IsChange() {
		return nil
	}
	a.pending = append(a.pending, ch)
	if len(a.pending) >= a.opt.BatchSize {
		return a.flush(ctx)
	}
	return nil
}

// Emit adapts Add to join.Emit.
func (a *Assembler) Emit(ctx context.Context) join.Emit {
	return func(ch compare.Change) error { return a.Add(ctx, ch) }
}

// Finish writes whatever is buffered and publishes the report. When res holds
// no changes nothing is written and Outcome.Written is false.
func (a *Assembler) Finish(ctx context.Context, res *join.Result) (*Outcome, error) {
	out := &Outcome{
		Path:      a.opt.Path,
		Added:     res.Added,
		Updated:   res.Updated,
		Deleted:   res.Deleted,
		Unchanged: res.Unchanged,
	}
	if res.Changes() == 0 {
		a.pending = nil
		log.Printf("report: no changes, nothing written")
		return out, nil
	}

	if a.opt.Detailed {
		a.sortPending()
		if err := a.open(); err != nil {
			return nil, err
		}
		if err := a.w.Write(a.summary(res.Tally)); err != nil {
			return nil, err
		}
	}
	if err := a.flush(ctx); err != nil {
		return nil, err
	}
	if a.w == nil {
		return out, nil
	}
	if err := a.w.Close(); err != nil {
		return nil, err
	}
	out.Written = true
	out.Rows = a.rows
	out.Batches = a.batches
	out.Checksum = a.w.Checksum()
	log.Printf("report: wrote path=%s rows=%d batches=%d xxh3=%016x elapsed=%s",
		a.opt.Path, a.rows, a.batches, out.Checksum, time.Since(a.start).Truncate(time.Millisecond))
	return out, nil
}

// Abort drops buffered rows and leaves any staged file unpublished.
func (a *Assembler) Abort() {
	a.pending = nil
	if a.w != nil {
		if err := a.w.Abort(); err != nil {
			log.Printf("report: abort: %v", err)
		}
	}
}

func (a *Assembler) open() error {
	if a.w != nil {
		return nil
	}
	w, err := csv.Create(a.fs, a.opt.Path, a.opt.CSV)
	if err != nil {
		return err
	}
	a.w = w
	return w.Write(a.header)
}

func (a *Assembler) flush(ctx context.Context) error {
	if len(a.pending) == 0 {
		return nil
	}
	if err := a.open(); err != nil {
		return err
	}
	for _, ch := range a.pending {
		if err := a.w.Write(a.row(ch)); err != nil {
			return err
		}
	}
	if err := a.w.Flush(); err != nil {
		return err
	}
	if a.mirror != nil {
		if err := a.mirror.WriteChanges(ctx, a.pending); err != nil {
			return fmt.Errorf("report: mirror batch: %w", err)
		}
	}
	a.rows += int64(len(a.pending))
	a.batches++
	log.Printf("report: batch #%d rows=%d total_rows=%d", a.batches, len(a.pending), a.rows)
	// The mirror may keep the slice; start a fresh one.
	a.pending = make([]compare.Change, 0, min(a.opt.BatchSize, 1024))
	return nil
}

func (a *Assembler) row(ch compare.Change) []string {
	row := make([]string, 0, len(a.header))
	row = append(row, ch.Anchor, ch.Class.String())
	for _, f := range ch.Fields {
		row = append(row, f.Old, f.New)
		if a.opt.Detailed {
			row = append(row, matchText(f))
		}
	}
	return row
}

func matchText(f compare.Field) string {
	switch {
	case !f.Compared:
		return ""
	case f.Match:
		return "TRUE"
	default:
		return "FALSE"
	}
}

// sortPending orders rows by anchor under the run comparer, keeping join
// order among equal keys.
func (a *Assembler) sortPending() {
	cmp := a.cmp.Comparer()
	keys := make([]string, len(a.pending))
	for i, ch := range a.pending {
		keys[i] = cmp.Key(ch.Anchor)
	}
	sort.Stable(byKey{keys: keys, changes: a.pending})
}

type byKey struct {
	keys    []string
	changes []compare.Change
}

func (b byKey) Len() int           { return len(b.keys) }
func (b byKey) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKey) Swap(i, j int) {
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
	b.changes[i], b.changes[j] = b.changes[j], b.changes[i]
}
