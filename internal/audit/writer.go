// Package audit mirrors report batches into a storage backend as long-format
// rows, one per reported field of a change.
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"csvreporter/internal/compare"
	"csvreporter/internal/storage"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Writer feeds a storage.LoadBatches goroutine. It implements report.Mirror.
type Writer struct {
	runID    string
	columns  []string
	detailed bool

	in     chan []any
	done   chan struct{}
	closed bool
	total  int64
	err    error
}

// NewWriter starts the loader. columns are the report labels of the retained
// columns, in Change.Fields order. Close must be called to flush.
func NewWriter(ctx context.Context, repo storage.Repository, runID string, columns []string, detailed bool, batchSize int) *Writer {
	w := &Writer{
		runID:    runID,
		columns:  columns,
		detailed: detailed,
		in:       make(chan []any, batchSize),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(w.done)
		w.total, w.err = storage.LoadBatches(ctx, storage.AuditColumns, w.in, batchSize, repo.CopyFrom)
	}()
	return w
}

// RunID returns the identifier stamped on every row.
func (w *Writer) RunID() string { return w.runID }

// WriteChanges queues the rows for batch. It fails once the loader has stopped.
func (w *Writer) WriteChanges(ctx context.Context, batch []compare.Change) error {
	if w.closed {
		return errors.New("audit: writer closed")
	}
	for _, ch := range batch {
		for _, row := range w.rows(ch) {
			select {
			case w.in <- row:
			case <-w.done:
				return w.stopped()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Close flushes the remaining rows and returns how many the backend accepted.
func (w *Writer) Close() (int64, error) {
	if !w.closed {
		w.closed = true
		close(w.in)
	}
	<-w.done
	if w.err != nil {
		return w.total, fmt.Errorf("audit: %w", w.err)
	}
	return w.total, nil
}

func (w *Writer) stopped() error {
	if w.err != nil {
		return fmt.Errorf("audit: %w", w.err)
	}
	return errors.New("audit: loader stopped")
}

// rows expands one change. Matching fields of a non-detailed Update were
// not reported and are skipped; matched is NULL for fields never compared.
func (w *Writer) rows(ch compare.Change) [][]any {
	out := make([][]any, 0, len(ch.Fields))
	for i, f := range ch.Fields {
		if !w.detailed && ch.Class == compare.Update && f.Match {
			continue
		}
		var matched any
		if f.Compared {
			matched = f.Match
		}
		out = append(out, []any{w.runID, ch.Anchor, ch.Class.String(), w.columns[i], f.Old, f.New, matched})
	}
	return out
}
