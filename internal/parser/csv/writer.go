package csv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
)

// PartialSuffix is appended to the report path while it is being written.
const PartialSuffix = ".partial"

// Writer writes delimited rows to path via a ".partial" staging file. The
// staging file is renamed to path on Close. A Writer that is aborted, or whose
// Close fails, leaves only the staging file behind.
//
// Every encoded byte written is also fed to an xxh3 hasher so the run can log
// a checksum of the published report.
type Writer struct {
	fs      afero.Fs
	path    string
	partial string

	f    afero.File
	enc  io.WriteCloser
	cw   *csv.Writer
	hash *xxh3.Hasher
	rows int64
	done bool
}

// Create opens path+PartialSuffix on fs for writing.
func Create(fs afero.Fs, path string, opt Options) (*Writer, error) {
	partial := path + PartialSuffix
	f, err := fs.Create(partial)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", partial, err)
	}
	h := xxh3.New()
	enc := opt.Encoding.NewEncodingWriter(io.MultiWriter(f, h))
	cw := csv.NewWriter(enc)
	cw.Comma = opt.comma()
	return &Writer{fs: fs, path: path, partial: partial, f: f, enc: enc, cw: cw, hash: h}, nil
}

// Write buffers one row.
func (w *Writer) Write(row []string) error {
	if err := w.cw.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", w.partial, err)
	}
	w.rows++
	return nil
}

// WriteAll writes rows and flushes them through to the file.
func (w *Writer) WriteAll(rows [][]string) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush pushes buffered rows to the file.
func (w *Writer) Flush() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", w.partial, err)
	}
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Path returns the final report path.
func (w *Writer) Path() string { return w.path }

// Checksum returns the xxh3 hash of the bytes written so far. It is complete
// only after Close.
func (w *Writer) Checksum() uint64 { return w.hash.Sum64() }

// Close flushes, closes the staging file, and renames it to the final path.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.Flush(); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.enc.Close(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("encode %s: %w", w.partial, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.partial, err)
	}
	if err := w.fs.Rename(w.partial, w.path); err != nil {
		return fmt.Errorf("publish %s: %w", w.path, err)
	}
	return nil
}

// Abort closes the staging file without publishing it.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.cw.Flush()
	_ = w.enc.Close()
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.partial, err)
	}
	return nil
}
