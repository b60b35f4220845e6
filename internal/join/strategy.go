// Package join matches the Previous and Current sides by anchor key and hands
// every key's outcome to an emit callback.
//
// Three strategies share one contract. memory materializes both sides.
// streaming materializes Previous and streams Current. sortmerge spools both
// sides into temporary SQLite databases ordered by key and merges them with
// two cursors. memory and streaming keep the first occurrence of a duplicate
// anchor and report conflicts; sortmerge fails on any duplicate.
//
// Memory use: memory holds every row of both sides. streaming holds every row
// of Previous plus the key and line of each distinct Current anchor, so it still
// grows with Current, only by keys instead of rows. sortmerge holds one batch.
package join

import (
	"context"
	"fmt"
	"strings"

	"csvreporter/internal/compare"
)

// Strategy names.
const (
	Memory    = "memory"
	Streaming = "streaming"
	SortMerge = "sortmerge"
)

// Names lists the supported strategies.
var Names = []string{Memory, Streaming, SortMerge}

// Emit receives one Change per anchor key.
type Emit func(compare.Change) error

// Strategy joins two sources. Every anchor key present in either source yields
// exactly one Change.
type Strategy interface {
	Name() string
	Run(ctx context.Context, prev, curr *Source, emit Emit) (*Result, error)
}

// Options tunes strategies that spool to disk.
type Options struct {
	// BatchSize is the number of rows per spool transaction.
	BatchSize int

	// TempDir is where spool directories are created; "" uses os.TempDir.
	TempDir string
}

// New returns the strategy called kind.
func New(kind string, c *compare.Comparator, opt Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", Memory:
		return &InMemory{cmp: c}, nil
	case Streaming:
		return &StreamingJoin{cmp: c}, nil
	case SortMerge:
		if opt.BatchSize <= 0 {
			opt.BatchSize = defaultBatchSize
		}
		return &SortMergeJoin{cmp: c, opt: opt}, nil
	default:
		return nil, fmt.Errorf("unknown join strategy %q (want one of %s)", kind, strings.Join(Names, ", "))
	}
}

// Valid reports whether kind names a strategy.
func Valid(kind string) bool {
	k := strings.ToLower(strings.TrimSpace(kind))
	for _, n := range Names {
		if n == k {
			return true
		}
	}
	return k == ""
}

const defaultBatchSize = 10000

func emitCounted(res *Result, emit Emit, ch compare.Change) error {
	res.count(ch.Class)
	return emit(ch)
}
