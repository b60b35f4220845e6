// Package csv reads and writes the delimited text files compared by
// csvreporter. The reader streams one record at a time and never buffers the
// whole file; the writer stages output under a ".partial" name and publishes
// it only on a successful Close.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvreporter/pkg/records"
)

// Delimiters lists the accepted field separators.
var Delimiters = []rune{',', '\t', ';', '|'}

// ValidDelimiter reports whether d is one of Delimiters.
func ValidDelimiter(d rune) bool {
	for _, x := range Delimiters {
		if x == d {
			return true
		}
	}
	return false
}

// Options configures the reader and the writer. Zero values select ','
// and UTF-8.
type Options struct {
	// Comma is the field delimiter.
	Comma rune

	// Encoding is the text encoding of the file.
	Encoding Encoding

	// LazyQuotes relaxes quote handling on read, as in encoding/csv.
	LazyQuotes bool
}

func (o Options) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// Reader reads the header row on construction and then one record per Next.
// Width is not enforced here; callers decide how to treat short or long rows.
type Reader struct {
	rc     io.Closer
	cr     *csv.Reader
	header []string
}

// NewReader decodes rc with opt.Encoding and reads the header row. The
// returned Reader owns rc and closes it on Close.
func NewReader(rc io.ReadCloser, opt Options) (*Reader, error) {
	cr := csv.NewReader(opt.Encoding.NewDecodingReader(rc))
	cr.Comma = opt.comma()
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err != nil {
		_ = rc.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty source")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return &Reader{rc: rc, cr: cr, header: trimBOM(h)}, nil
}

// Header returns the raw header names in file order.
func (r *Reader) Header() []string { return r.header }

// Next returns the next record or io.EOF at the end of input. Parse errors are
// returned as-is and carry the line number from encoding/csv.
func (r *Reader) Next() (records.Record, error) {
	row, err := r.cr.Read()
	if err != nil {
		return records.Record{}, err
	}
	line, _ := r.cr.FieldPos(0)
	return records.Record{Line: line, Values: row}, nil
}

// Close releases the underlying source.
func (r *Reader) Close() error { return r.rc.Close() }

// trimBOM drops byte order marks left on the first header cell. Decoding
// removes one leading BOM; files built by concatenation can carry another.
func trimBOM(h []string) []string {
	if len(h) > 0 {
		h[0] = strings.TrimLeft(h[0], "\uFEFF")
	}
	return h
}
