package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"csvreporter/internal/audit"
	"csvreporter/internal/collate"
	"csvreporter/internal/compare"
	"csvreporter/internal/config"
	"csvreporter/internal/datasource"
	"csvreporter/internal/datasource/file"
	"csvreporter/internal/headers"
	"csvreporter/internal/join"
	"csvreporter/internal/metrics"
	"csvreporter/internal/parser/csv"
	"csvreporter/internal/report"
	"csvreporter/internal/storage"
	"csvreporter/internal/transformer"
)

// Function variables used to introduce test seams.
var (
	fsys afero.Fs = afero.NewOsFs()

	newRepositoryFn = storage.New

	openInputFn = openInput
)

// runSummary is what one comparison produced.
type runSummary struct {
	RunID     string
	Result    *join.Result
	Report    *report.Outcome
	AuditRows int64
}

// runCompare executes one comparison end to end:
//
//	open both inputs → reconcile headers → bind transforms
//	  → join (emit) → report assembler (→ audit mirror) → publish
//
// Any error aborts the run and leaves no published report. A run without
// changes succeeds and writes nothing.
func runCompare(ctx context.Context, r config.Run) (*runSummary, error) {
	job := r.Job
	batch := r.EffectiveBatchSize()

	inOpt, outOpt, err := csvOptions(r)
	if err != nil {
		return nil, err
	}

	prev, err := openInputFn(ctx, file.NewLocal(fsys, r.Previous.Path), inOpt)
	if err != nil {
		return nil, err
	}
	defer prev.Close()
	curr, err := openInputFn(ctx, file.NewLocal(fsys, r.Current.Path), inOpt)
	if err != nil {
		return nil, err
	}
	defer curr.Close()

	// Headers.
	t0 := time.Now()
	layout, err := headers.Reconcile(prev.Header(), curr.Header(), r.Compare.Anchor, r.Compare.Ignore)
	metrics.RecordStep(job, "headers", err, time.Since(t0))
	if err != nil {
		return nil, err
	}
	log.Printf("headers: anchor=%q columns=%d ignored=%d", layout.AnchorPrevious, len(layout.Columns), len(layout.Ignored))

	cmp := collate.New(r.Compare.CaseSensitive)
	engine, warns, err := transformer.NewEngine(r.Compare.Transforms, cmp)
	if err != nil {
		return nil, err
	}
	engine, bindWarns, err := engine.Bind(layout)
	if err != nil {
		return nil, err
	}
	for _, w := range append(warns, bindWarns...) {
		log.Printf("transform: warning: %s", w)
	}

	c := compare.New(layout, cmp, engine, r.Compare.Detailed)
	strategy, err := join.New(r.Compare.Strategy, c, join.Options{BatchSize: batch, TempDir: r.Runtime.TempDir})
	if err != nil {
		return nil, err
	}

	sum := &runSummary{}

	// Optional audit sink.
	var (
		mirror report.Mirror
		aw     *audit.Writer
	)
	if r.Storage.Enabled() {
		repo, err := newRepositoryFn(ctx, storage.Config{Kind: r.Storage.Kind, DSN: r.Storage.DB.DSN, Table: r.Storage.DB.Table})
		if err != nil {
			return nil, fmt.Errorf("open audit storage: %w", err)
		}
		defer repo.Close()
		if r.Storage.DB.AutoCreateTable {
			if err := storage.EnsureAuditTable(ctx, r.Storage.Kind, repo, r.Storage.DB.Table); err != nil {
				return nil, fmt.Errorf("apply DDL: %w", err)
			}
		}
		sum.RunID = audit.NewRunID()
		aw = audit.NewWriter(ctx, repo, sum.RunID, report.ColumnLabels(c, layout), r.Compare.Detailed, batch)
		mirror = aw
		log.Printf("audit: run_id=%s kind=%s table=%s", sum.RunID, r.Storage.Kind, r.Storage.DB.Table)
	}

	asm := report.New(fsys, c, layout, report.Options{
		Path:      r.Report.Path,
		CSV:       outOpt,
		BatchSize: batch,
		Detailed:  r.Compare.Detailed,
	}, mirror)

	fail := func(err error) (*runSummary, error) {
		asm.Abort()
		if aw != nil {
			if _, cerr := aw.Close(); cerr != nil {
				log.Printf("audit: close after failure: %v", cerr)
			}
		}
		return nil, err
	}

	// Join.
	t1 := time.Now()
	res, err := strategy.Run(ctx,
		join.NewSource(headers.Previous, prev, layout),
		join.NewSource(headers.Current, curr, layout),
		asm.Emit(ctx))
	metrics.RecordStep(job, "join", err, time.Since(t1))
	if err != nil {
		return fail(err)
	}
	sum.Result = res
	for _, w := range res.Warnings() {
		log.Printf("join: warning: %s", w)
	}
	log.Printf("join: %s elapsed=%s", res, time.Since(t1).Truncate(time.Millisecond))

	// Report.
	t2 := time.Now()
	out, err := asm.Finish(ctx, res)
	metrics.RecordStep(job, "report", err, time.Since(t2))
	if err != nil {
		return fail(err)
	}
	sum.Report = out

	if aw != nil {
		n, err := aw.Close()
		if err != nil {
			return nil, err
		}
		sum.AuditRows = n
	}

	metrics.RecordRow(job, "add", int64(res.Added))
	metrics.RecordRow(job, "update", int64(res.Updated))
	metrics.RecordRow(job, "delete", int64(res.Deleted))
	metrics.RecordRow(job, "none", int64(res.Unchanged))
	metrics.RecordRow(job, "duplicates", int64(res.Duplicates()))
	metrics.RecordBatches(job, int64(out.Batches))

	log.Printf("summary: job=%s add=%d update=%d delete=%d none=%d duplicates=%d report=%s written=%v rows=%d audit_rows=%d",
		job, res.Added, res.Updated, res.Deleted, res.Unchanged, res.Duplicates(),
		out.Path, out.Written, out.Rows, sum.AuditRows)
	return sum, nil
}

// csvOptions resolves the reader and writer options of r.
func csvOptions(r config.Run) (in, out csv.Options, err error) {
	comma, err := config.ParseDelimiter(r.Parser.Delimiter)
	if err != nil {
		return in, out, err
	}
	inEnc, err := csv.LookupEncoding(r.Parser.Encoding)
	if err != nil {
		return in, out, err
	}
	outEnc, err := csv.LookupEncoding(r.Report.Encoding)
	if err != nil {
		return in, out, err
	}
	in = csv.Options{Comma: comma, Encoding: inEnc, LazyQuotes: r.Parser.LazyQuotes}
	out = csv.Options{Comma: comma, Encoding: outEnc}
	return in, out, nil
}

// openInput opens src and reads its header row.
func openInput(ctx context.Context, src datasource.Source, opt csv.Options) (*csv.Reader, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	rd, err := csv.NewReader(rc, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	return rd, nil
}

// ----------------------------------------------------------------------------
// Small helpers
// ----------------------------------------------------------------------------

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// splitList splits "a, b,,c" into {"a","b","c"}.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
