package csv

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
)

func TestWriter_PublishesOnClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "/out/report.csv", Options{Comma: ';'})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.WriteAll([][]string{{"id", "Status"}, {"1", "Add"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/report.csv"); ok {
		t.Fatalf("report must not exist before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := afero.ReadFile(fs, "/out/report.csv")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got, want := string(b), "id;Status\n1;Add\n"; got != want {
		t.Fatalf("content=%q want %q", got, want)
	}
	if ok, _ := afero.Exists(fs, "/out/report.csv"+PartialSuffix); ok {
		t.Fatalf("partial file should be renamed away")
	}
	if got, want := w.Checksum(), xxh3.Hash(b); got != want {
		t.Fatalf("checksum=%x want %x", got, want)
	}
	if w.Rows() != 2 {
		t.Fatalf("rows=%d want 2", w.Rows())
	}
}

func TestWriter_AbortLeavesPartial(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := Create(fs, "report.csv", Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = w.WriteAll([][]string{{"a"}})
	if err := w.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if ok, _ := afero.Exists(fs, "report.csv"); ok {
		t.Fatalf("aborted report must not be published")
	}
	if ok, _ := afero.Exists(fs, "report.csv"+PartialSuffix); !ok {
		t.Fatalf("partial file should remain after abort")
	}
	// Close after Abort is a no-op.
	if err := w.Close(); err != nil {
		t.Fatalf("close after abort: %v", err)
	}
}

/*
TestWriter_UTF16RoundTrip writes a report as UTF-16LE with BOM and reads it
back with the default encoding; the BOM must switch the decoder.
*/
func TestWriter_UTF16RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	enc, err := LookupEncoding("unicode")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	w, err := Create(fs, "u.csv", Options{Encoding: enc})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.WriteAll([][]string{{"név", "város"}, {"Ádám", "Győr"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, _ := afero.ReadFile(fs, "u.csv")
	if len(raw) < 2 || raw[0] != 0xFF || raw[1] != 0xFE {
		t.Fatalf("missing UTF-16LE BOM: % x", raw)
	}

	f, err := fs.Open("u.csv")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r, err := NewReader(f, Options{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if got := strings.Join(r.Header(), ","); got != "név,város" {
		t.Fatalf("header=%q", got)
	}
	rows := readAll(t, r)
	if len(rows) != 1 || rows[0][1] != "Győr" {
		t.Fatalf("rows=%q", rows)
	}
}
