package join

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"csvreporter/internal/headers"
	"csvreporter/pkg/records"
)

// RecordReader yields records until io.EOF. *csv.Reader satisfies it.
type RecordReader interface {
	Next() (records.Record, error)
}

// RowError is a fatal problem with one data row.
type RowError struct {
	Source headers.Side
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Source, e.Line, e.Reason)
}

// Source is one side of a join: a record stream plus the anchor position and
// the row rules every strategy enforces.
type Source struct {
	side   headers.Side
	r      RecordReader
	width  int
	anchor int
	rows   int
}

// NewSource wraps r as side of l.
func NewSource(side headers.Side, r RecordReader, l *headers.Layout) *Source {
	return &Source{side: side, r: r, width: l.Width(side), anchor: l.AnchorIndex(side)}
}

// Side returns which input the source reads.
func (s *Source) Side() headers.Side { return s.side }

// Rows returns the number of records read so far.
func (s *Source) Rows() int { return s.rows }

// Next returns the next valid record and its raw anchor value, or io.EOF.
func (s *Source) Next() (records.Record, string, error) {
	rec, err := s.r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return records.Record{}, "", io.EOF
		}
		return records.Record{}, "", fmt.Errorf("read %s: %w", s.side, err)
	}
	s.rows++
	if len(rec.Values) != s.width {
		return rec, "", &RowError{Source: s.side, Line: rec.Line,
			Reason: fmt.Sprintf("has %d columns, header has %d", len(rec.Values), s.width)}
	}
	if rec.Blank() {
		return rec, "", &RowError{Source: s.side, Line: rec.Line, Reason: "all values are blank"}
	}
	anchor := rec.Values[s.anchor]
	if strings.TrimSpace(anchor) == "" {
		return rec, "", &RowError{Source: s.side, Line: rec.Line, Reason: "anchor value is blank"}
	}
	return rec, anchor, nil
}
