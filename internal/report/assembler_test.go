package report

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"csvreporter/internal/collate"
	"csvreporter/internal/compare"
	"csvreporter/internal/headers"
	"csvreporter/internal/join"
	"csvreporter/internal/parser/csv"
	"csvreporter/internal/transformer"
)

type runOpts struct {
	strategy      string
	detailed      bool
	caseSensitive bool
	batch         int
	rules         map[string]map[string]string
	mirror        Mirror
}

func runReport(t *testing.T, fs afero.Fs, prevText, currText string, o runOpts) (*Outcome, error) {
	t.Helper()
	pr, err := csv.NewReader(io.NopCloser(strings.NewReader(prevText)), csv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	cr, err := csv.NewReader(io.NopCloser(strings.NewReader(currText)), csv.Options{})
	if err != nil {
		t.Fatal(err)
	}
	l, err := headers.Reconcile(pr.Header(), cr.Header(), "ID", nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	cmp := collate.New(o.caseSensitive)
	var eng *transformer.Engine
	if o.rules != nil {
		if eng, _, err = transformer.NewEngine(o.rules, cmp); err != nil {
			t.Fatal(err)
		}
		if eng, _, err = eng.Bind(l); err != nil {
			t.Fatal(err)
		}
	}
	c := compare.New(l, cmp, eng, o.detailed)
	if o.strategy == "" {
		o.strategy = join.Memory
	}
	s, err := join.New(o.strategy, c, join.Options{TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	a := New(fs, c, l, Options{Path: "/out/report.csv", BatchSize: o.batch, Detailed: o.detailed}, o.mirror)
	ctx := context.Background()
	res, err := s.Run(ctx, join.NewSource(headers.Previous, pr, l), join.NewSource(headers.Current, cr, l), a.Emit(ctx))
	if err != nil {
		a.Abort()
		return nil, err
	}
	return a.Finish(ctx, res)
}

func readReport(t *testing.T, fs afero.Fs) [][]string {
	t.Helper()
	b, err := afero.ReadFile(fs, "/out/report.csv")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	rows, err := stdcsv.NewReader(strings.NewReader(string(b))).ReadAll()
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	return rows
}

const (
	prevText = "ID,Status,Salary\n1,Active,100\n2,Active,200\n3,Retired,300\n"
	currText = "id,status,salary\n2,Active,250\n1,1,100\n4,Active,400\n"
)

func TestReport_NonDetailed(t *testing.T) {
	fs := afero.NewMemMapFs()
	out, err := runReport(t, fs, prevText, currText, runOpts{batch: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Written || out.Rows != 4 || out.Batches != 4 || out.Checksum == 0 {
		t.Fatalf("outcome=%+v", out)
	}
	want := [][]string{
		{"ID", "Status", "old Salary", "new Salary", "old Status", "new Status"},
		{"1", "Update", "", "", "Active", "1"},
		{"2", "Update", "200", "250", "", ""},
		{"3", "Delete", "300", "", "Retired", ""},
		{"4", "Add", "", "400", "", "Active"},
	}
	if got := readReport(t, fs); !reflect.DeepEqual(got, want) {
		t.Fatalf("report=\n%v\nwant\n%v", got, want)
	}
	if ok, _ := afero.Exists(fs, "/out/report.csv"+csv.PartialSuffix); ok {
		t.Fatal("partial file left after publish")
	}
}

func TestReport_TransformScope(t *testing.T) {
	fs := afero.NewMemMapFs()
	out, err := runReport(t, fs, prevText, currText, runOpts{detailed: true, rules: map[string]map[string]string{"status": {"Active": "1"}}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Updated != 1 {
		t.Fatalf("outcome=%+v", out)
	}
	rows := readReport(t, fs)
	// rows[0] header, rows[1] summary, rows[2] anchor 1
	if got := rows[2]; got[0] != "1" || got[1] != "None" || got[5] != "Active" || got[6] != "1" || got[7] != "TRUE" {
		t.Fatalf("row for anchor 1 = %v", got)
	}
	if got := rows[1][5]; got != "Active -> 1: 2" {
		t.Fatalf("status digest = %q", got)
	}
}

func TestReport_DetailedSummaryCounts(t *testing.T) {
	var prev, curr strings.Builder
	prev.WriteString("ID,Name,Salary\n")
	curr.WriteString("ID,Name,Salary\n")
	for i := 10; i >= 1; i-- {
		fmt.Fprintf(&prev, "e%02d,n%d,%d\n", i, i, i*100)
		salary := i * 100
		if i%3 == 0 {
			salary++
		}
		fmt.Fprintf(&curr, "e%02d,n%d,%d\n", i, i, salary)
	}
	curr.WriteString("e11,new,1\n")

	for _, strategy := range []string{join.Memory, join.Streaming} {
		t.Run(strategy, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			out, err := runReport(t, fs, prev.String(), curr.String(), runOpts{detailed: true, strategy: strategy})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if out.Updated != 3 || out.Unchanged != 7 || out.Added != 1 || out.Rows != 11 {
				t.Fatalf("outcome=%+v", out)
			}
			rows := readReport(t, fs)
			wantHeader := []string{"ID", "Status", "old Name", "new Name", "match Name", "old Salary", "new Salary", "match Salary"}
			if !reflect.DeepEqual(rows[0], wantHeader) {
				t.Fatalf("header=%v", rows[0])
			}
			if want := []string{"SUMMARY", "---", "", "", "0 of 10 FALSE", "", "", "3 of 10 FALSE"}; !reflect.DeepEqual(rows[1], want) {
				t.Fatalf("summary=%v", rows[1])
			}
			var anchors []string
			for _, r := range rows[2:] {
				anchors = append(anchors, r[0])
			}
			want := []string{"e01", "e02", "e03", "e04", "e05", "e06", "e07", "e08", "e09", "e10", "e11"}
			if !reflect.DeepEqual(anchors, want) {
				t.Fatalf("detailed rows not sorted: %v", anchors)
			}
			if add := rows[len(rows)-1]; add[1] != "Add" || add[4] != "" || add[6] != "1" {
				t.Fatalf("add row=%v", add)
			}
		})
	}
}

func TestReport_DigestOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	prev := "ID,Code\n1,b\n2,a\n3,zz\n4,q\n"
	curr := "ID,Code\n1,B2\n2,A1\n3,zz!\n4,x\n"
	_, err := runReport(t, fs, prev, curr, runOpts{
		detailed: true,
		rules:    map[string]map[string]string{"code": {"*": ">>!", "b": "B2", "A": "A1"}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rows := readReport(t, fs)
	if got, want := rows[1][2], "A -> A1: 1; b -> B2: 1; * -> >>!: 2"; got != want {
		t.Fatalf("digest=%q want %q", got, want)
	}
	if got := rows[1][4]; got != "1 of 4 FALSE" {
		t.Fatalf("match=%q", got)
	}
}

func TestReport_NoChanges(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		for _, strategy := range join.Names {
			if detailed && strategy == join.SortMerge {
				continue
			}
			fs := afero.NewMemMapFs()
			text := "ID,A\nx,1\ny,2\n"
			out, err := runReport(t, fs, text, text, runOpts{strategy: strategy, detailed: detailed})
			if err != nil {
				t.Fatalf("%s: %v", strategy, err)
			}
			if out.Written || out.Unchanged != 2 {
				t.Fatalf("%s detailed=%v: outcome=%+v", strategy, detailed, out)
			}
			if ok, _ := afero.DirExists(fs, "/out"); ok {
				t.Fatalf("%s: output created for unchanged inputs", strategy)
			}
		}
	}
}

type recordingMirror struct {
	batches [][]compare.Change
	err     error
}

func (m *recordingMirror) WriteChanges(_ context.Context, batch []compare.Change) error {
	m.batches = append(m.batches, batch)
	return m.err
}

func TestReport_MirrorSeesEveryBatch(t *testing.T) {
	m := &recordingMirror{}
	out, err := runReport(t, afero.NewMemMapFs(), prevText, currText, runOpts{batch: 3, mirror: m})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(m.batches) != 2 || len(m.batches[0]) != 3 || len(m.batches[1]) != 1 || out.Batches != 2 {
		t.Fatalf("mirror batches=%d outcome=%+v", len(m.batches), out)
	}
	if m.batches[0][0].Anchor != "1" {
		t.Fatalf("first mirrored change=%+v", m.batches[0][0])
	}
}

func TestReport_MirrorFailureLeavesPartial(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("db down")
	_, err := runReport(t, fs, prevText, currText, runOpts{batch: 1, mirror: &recordingMirror{err: boom}})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if ok, _ := afero.Exists(fs, "/out/report.csv"); ok {
		t.Fatal("report published despite failure")
	}
	if ok, _ := afero.Exists(fs, "/out/report.csv"+csv.PartialSuffix); !ok {
		t.Fatal("expected staged partial file")
	}
}

func TestReport_HeaderAndLabels(t *testing.T) {
	t.Parallel()

	pr, _ := csv.NewReader(io.NopCloser(strings.NewReader(" id ,Salary , name\n")), csv.Options{})
	cr, _ := csv.NewReader(io.NopCloser(strings.NewReader("ID,NAME,salary\n")), csv.Options{})
	l, err := headers.Reconcile(pr.Header(), cr.Header(), "id", nil)
	if err != nil {
		t.Fatal(err)
	}
	c := compare.New(l, collate.New(false), nil, true)
	a := New(afero.NewMemMapFs(), c, l, Options{Path: "/r.csv", Detailed: true}, nil)

	if want := []string{"name", "Salary"}; !reflect.DeepEqual(a.Labels(), want) {
		t.Fatalf("Labels() = %q, want %q", a.Labels(), want)
	}
	want := []string{"id", "Status", "old name", "new name", "match name", "old Salary", "new Salary", "match Salary"}
	if !reflect.DeepEqual(a.Header(), want) {
		t.Fatalf("Header() = %q, want %q", a.Header(), want)
	}
}
