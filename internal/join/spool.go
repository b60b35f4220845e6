package join

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	_ "modernc.org/sqlite"

	"csvreporter/internal/collate"
	"csvreporter/internal/headers"
	"csvreporter/pkg/records"
)

// DuplicateAnchorError is fatal for the sort-merge join: a sorted stream can
// only hold each key once.
type DuplicateAnchorError struct {
	Source    headers.Side
	Anchor    string
	FirstLine int
	Line      int
}

func (e *DuplicateAnchorError) Error() string {
	return fmt.Sprintf("%s: duplicate anchor %q on lines %d and %d", e.Source, e.Anchor, e.FirstLine, e.Line)
}

// SQLite compares TEXT with the BINARY collation (memcmp over UTF-8), which is
// the same order as Go string comparison of the comparer keys.
const (
	spoolDDL = `CREATE TABLE spool (
	k      TEXT PRIMARY KEY,
	line   INTEGER NOT NULL,
	vals   TEXT NOT NULL
) WITHOUT ROWID`
	spoolInsert = `INSERT INTO spool (k, line, vals) VALUES (?, ?, ?) ON CONFLICT (k) DO NOTHING`
	spoolLine   = `SELECT line FROM spool WHERE k = ?`
	spoolScan   = `SELECT k, line, vals FROM spool ORDER BY k`
)

// spool is one side of a sort-merge join on disk.
type spool struct {
	side    headers.Side
	db      *sql.DB
	rows    int
	batches int
}

func openSpool(ctx context.Context, path string, side headers.Side) (*spool, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("spool %s: open %s: %w", side, path, err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode = OFF",
		"PRAGMA synchronous = OFF",
		spoolDDL,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("spool %s: %s: %w", side, path, err)
		}
	}
	return &spool{side: side, db: db}, nil
}

func (s *spool) close() error { return s.db.Close() }

// fill drains src into the spool, committing every batch rows. cmp must not
// be shared with another goroutine.
func (s *spool) fill(ctx context.Context, src *Source, cmp *collate.Comparer, batch int) error {
	for {
		done, err := s.fillBatch(ctx, src, cmp, batch)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (s *spool) fillBatch(ctx context.Context, src *Source, cmp *collate.Comparer, batch int) (done bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("spool %s: begin tx: %w", s.side, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, spoolInsert)
	if err != nil {
		return false, fmt.Errorf("spool %s: prepare insert: %w", s.side, err)
	}
	defer stmt.Close()

	n := 0
	for n < batch {
		rec, anchor, rerr := src.Next()
		if errors.Is(rerr, io.EOF) {
			done = true
			break
		}
		if rerr != nil {
			return false, rerr
		}
		key := cmp.Key(anchor)
		vals, jerr := json.Marshal(rec.Values)
		if jerr != nil {
			return false, fmt.Errorf("spool %s line %d: encode: %w", s.side, rec.Line, jerr)
		}
		res, xerr := stmt.ExecContext(ctx, key, rec.Line, string(vals))
		if xerr != nil {
			return false, fmt.Errorf("spool %s line %d: insert: %w", s.side, rec.Line, xerr)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			var first int
			if qerr := tx.QueryRowContext(ctx, spoolLine, key).Scan(&first); qerr != nil {
				return false, fmt.Errorf("spool %s: lookup duplicate %q: %w", s.side, anchor, qerr)
			}
			return false, &DuplicateAnchorError{Source: s.side, Anchor: anchor, FirstLine: first, Line: rec.Line}
		}
		n++
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("spool %s: commit: %w", s.side, err)
	}
	s.rows += n
	if n > 0 {
		s.batches++
	}
	return done, nil
}

// cursor walks a spool in key order.
type cursor struct {
	rows  *sql.Rows
	valid bool
	key   string
	rec   records.Record
}

func (s *spool) scan(ctx context.Context) (*cursor, error) {
	rows, err := s.db.QueryContext(ctx, spoolScan)
	if err != nil {
		return nil, fmt.Errorf("spool %s: scan: %w", s.side, err)
	}
	c := &cursor{rows: rows}
	if err := c.next(); err != nil {
		rows.Close()
		return nil, err
	}
	return c, nil
}

func (c *cursor) next() error {
	if !c.rows.Next() {
		c.valid = false
		return c.rows.Err()
	}
	var vals string
	c.rec = records.Record{}
	if err := c.rows.Scan(&c.key, &c.rec.Line, &vals); err != nil {
		return fmt.Errorf("spool: read row: %w", err)
	}
	if err := json.Unmarshal([]byte(vals), &c.rec.Values); err != nil {
		return fmt.Errorf("spool: decode line %d: %w", c.rec.Line, err)
	}
	c.valid = true
	return nil
}

func (c *cursor) close() error { return c.rows.Close() }
