package join

import (
	"context"
	"errors"
	"io"

	"csvreporter/internal/collate"
	"csvreporter/pkg/records"
)

// Conflict lists every line that carried one anchor key. The first line is the
// occurrence that was kept.
type Conflict struct {
	Anchor string
	Lines  []int
}

// conflicts records duplicate keys in the order they were first duplicated.
type conflicts struct {
	byKey map[string]int
	list  []Conflict
}

func (c *conflicts) add(key, anchor string, firstLine, line int) {
	if c.byKey == nil {
		c.byKey = map[string]int{}
	}
	if i, ok := c.byKey[key]; ok {
		c.list[i].Lines = append(c.list[i].Lines, line)
		return
	}
	c.byKey[key] = len(c.list)
	c.list = append(c.list, Conflict{Anchor: anchor, Lines: []int{firstLine, line}})
}

// Index holds one side keyed by comparer key, keeping input order. The first
// occurrence of a key wins; later ones are recorded as conflicts.
type Index struct {
	pos     map[string]int
	rows    []records.Record
	keys    []string
	removed []bool
	live    int
	dups    conflicts
}

// BuildIndex drains src into an Index.
func BuildIndex(ctx context.Context, src *Source, cmp *collate.Comparer) (*Index, error) {
	ix := &Index{pos: map[string]int{}}
	for n := 0; ; n++ {
		if err := checkCtx(ctx, n); err != nil {
			return nil, err
		}
		rec, anchor, err := src.Next()
		if errors.Is(err, io.EOF) {
			return ix, nil
		}
		if err != nil {
			return nil, err
		}
		ix.add(cmp.Key(anchor), anchor, rec)
	}
}

func (ix *Index) add(key, anchor string, rec records.Record) {
	if i, dup := ix.pos[key]; dup {
		ix.dups.add(key, anchor, ix.rows[i].Line, rec.Line)
		return
	}
	ix.pos[key] = len(ix.rows)
	ix.rows = append(ix.rows, rec)
	ix.keys = append(ix.keys, key)
	ix.removed = append(ix.removed, false)
	ix.live++
}

// Get returns the record for key unless it is absent or removed.
func (ix *Index) Get(key string) (records.Record, bool) {
	i, ok := ix.pos[key]
	if !ok || ix.removed[i] {
		return records.Record{}, false
	}
	return ix.rows[i], true
}

// Remove marks key as consumed.
func (ix *Index) Remove(key string) {
	if i, ok := ix.pos[key]; ok && !ix.removed[i] {
		ix.removed[i] = true
		ix.rows[i] = records.Record{}
		ix.live--
	}
}

// Len returns the number of records not yet removed.
func (ix *Index) Len() int { return ix.live }

// Each calls fn for every remaining record in input order.
func (ix *Index) Each(fn func(key string, rec records.Record) error) error {
	for i, rec := range ix.rows {
		if ix.removed[i] {
			continue
		}
		if err := fn(ix.keys[i], rec); err != nil {
			return err
		}
	}
	return nil
}

// Conflicts returns duplicate keys with all their line numbers.
func (ix *Index) Conflicts() []Conflict { return ix.dups.list }

const ctxCheckEvery = 1024

func checkCtx(ctx context.Context, n int) error {
	if n%ctxCheckEvery != 0 {
		return nil
	}
	return ctx.Err()
}
