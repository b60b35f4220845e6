package join

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"testing"

	"csvreporter/internal/collate"
	"csvreporter/internal/compare"
	"csvreporter/internal/headers"
	"csvreporter/internal/parser/csv"
)

type fixture struct {
	prev, curr *Source
	cmp        *compare.Comparator
}

func newFixture(t *testing.T, prevText, currText string, caseSensitive bool) fixture {
	t.Helper()
	pr, err := csv.NewReader(io.NopCloser(strings.NewReader(prevText)), csv.Options{})
	if err != nil {
		t.Fatalf("previous reader: %v", err)
	}
	cr, err := csv.NewReader(io.NopCloser(strings.NewReader(currText)), csv.Options{})
	if err != nil {
		t.Fatalf("current reader: %v", err)
	}
	l, err := headers.Reconcile(pr.Header(), cr.Header(), "id", nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	return fixture{
		prev: NewSource(headers.Previous, pr, l),
		curr: NewSource(headers.Current, cr, l),
		cmp:  compare.New(l, collate.New(caseSensitive), nil, false),
	}
}

func run(t *testing.T, kind, prevText, currText string, caseSensitive bool) ([]compare.Change, *Result, error) {
	t.Helper()
	f := newFixture(t, prevText, currText, caseSensitive)
	s, err := New(kind, f.cmp, Options{BatchSize: 3, TempDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	var out []compare.Change
	res, err := s.Run(context.Background(), f.prev, f.curr, func(ch compare.Change) error {
		out = append(out, ch)
		return nil
	})
	return out, res, err
}

func pairs(chs []compare.Change) []string {
	out := make([]string, len(chs))
	for i, ch := range chs {
		out[i] = ch.Anchor + ":" + ch.Class.String()
	}
	return out
}

func sorted(s []string) []string {
	c := append([]string(nil), s...)
	sort.Strings(c)
	return c
}

const (
	prevBasic = "id,name,salary\nk1,Ann,100\nk2,Bob,200\nk3,Cid,300\nk5,Eve,500\n"
	currBasic = "id,name,salary\nk4,Dan,400\nk2,Bob,250\nk1,Ann,100\nk5,Eve,500\n"
)

func TestStrategies_Order(t *testing.T) {
	cases := []struct {
		kind string
		want []string
	}{
		{Memory, []string{"k1:None", "k2:Update", "k3:Delete", "k5:None", "k4:Add"}},
		{Streaming, []string{"k4:Add", "k2:Update", "k1:None", "k5:None", "k3:Delete"}},
		{SortMerge, []string{"k1:None", "k2:Update", "k3:Delete", "k4:Add", "k5:None"}},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			chs, res, err := run(t, tc.kind, prevBasic, currBasic, true)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if got := pairs(chs); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("order=%v\nwant  %v", got, tc.want)
			}
			if res.Added != 1 || res.Updated != 1 || res.Deleted != 1 || res.Unchanged != 2 {
				t.Fatalf("result %s", res)
			}
			if res.PreviousRows != 4 || res.CurrentRows != 4 || res.Strategy != tc.kind {
				t.Fatalf("result %s", res)
			}
			if res.Tally.Compared() != 3 {
				t.Fatalf("compared=%d", res.Tally.Compared())
			}
		})
	}
}

// genData builds n rows where the key space, values, and row order vary by
// seed so that the two sides overlap only partly.
func genData(n, seed int) string {
	var b strings.Builder
	b.WriteString("id,a,b\n")
	for i := 0; i < n; i++ {
		k := (i*7 + seed*3) % (n + n/2)
		if (k+seed)%5 == 0 {
			continue
		}
		fmt.Fprintf(&b, "key-%04d,%d,%s\n", k, (k*seed)%4, strings.Repeat("x", k%3))
	}
	return b.String()
}

func TestStrategies_EquivalentAndComplete(t *testing.T) {
	prev, curr := genData(300, 1), genData(300, 2)

	var base []string
	for _, kind := range Names {
		chs, res, err := run(t, kind, prev, curr, true)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		got := sorted(pairs(chs))
		seen := map[string]bool{}
		for _, ch := range chs {
			if seen[ch.Anchor] {
				t.Fatalf("%s: anchor %s emitted twice", kind, ch.Anchor)
			}
			seen[ch.Anchor] = true
		}
		if len(chs) != res.Keys() {
			t.Fatalf("%s: emitted %d, result keys %d", kind, len(chs), res.Keys())
		}
		if base == nil {
			base = got
			continue
		}
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("%s differs from %s", kind, Names[0])
		}
	}

	// Union of keys must equal what was emitted.
	union := map[string]bool{}
	for _, text := range []string{prev, curr} {
		for _, line := range strings.Split(strings.TrimSpace(text), "\n")[1:] {
			union[strings.SplitN(line, ",", 2)[0]] = true
		}
	}
	if len(union) != len(base) {
		t.Fatalf("union=%d emitted=%d", len(union), len(base))
	}
}

func TestStrategies_DirectionAsymmetry(t *testing.T) {
	a, b := genData(120, 3), genData(120, 4)
	for _, kind := range Names {
		_, ab, err := run(t, kind, a, b, true)
		if err != nil {
			t.Fatalf("%s a->b: %v", kind, err)
		}
		_, ba, err := run(t, kind, b, a, true)
		if err != nil {
			t.Fatalf("%s b->a: %v", kind, err)
		}
		if ab.Added != ba.Deleted || ab.Deleted != ba.Added || ab.Updated != ba.Updated || ab.Unchanged != ba.Unchanged {
			t.Fatalf("%s: a->b %s, b->a %s", kind, ab, ba)
		}
	}
}

func TestStrategies_CaseInsensitiveAnchors(t *testing.T) {
	prev := "id,v\nABC,1\nx,2\n"
	curr := "id,v\nabc,1\nX,3\n"
	for _, kind := range Names {
		chs, _, err := run(t, kind, prev, curr, false)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		got := sorted(pairs(chs))
		if want := []string{"ABC:None", "x:Update"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: %v", kind, got)
		}
	}
}

/*
TestStrategies_CaseInsensitiveNoExpansion checks that case-insensitive anchors
fold one rune at a time: ß matches ẞ but never SS.
*/
func TestStrategies_CaseInsensitiveNoExpansion(t *testing.T) {
	prev := "id,v\nStraße,1\nSTRAßE2,2\n"
	curr := "id,v\nSTRASSE,1\nstraße2,2\n"
	for _, kind := range Names {
		chs, res, err := run(t, kind, prev, curr, false)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		got := sorted(pairs(chs))
		if want := []string{"STRASSE:Add", "STRAßE2:None", "Straße:Delete"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: %v", kind, got)
		}
		if res.Duplicates() != 0 {
			t.Fatalf("%s: duplicates=%d, want 0", kind, res.Duplicates())
		}
	}
}

func TestDuplicateAnchorPolicy(t *testing.T) {
	prev := "id,v\nX,first\nY,1\nX,second\nX,third\n"
	curr := "id,v\nX,first\nY,1\n"

	for _, kind := range []string{Memory, Streaming} {
		chs, res, err := run(t, kind, prev, curr, true)
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if got := sorted(pairs(chs)); !reflect.DeepEqual(got, []string{"X:None", "Y:None"}) {
			t.Fatalf("%s: first occurrence should win: %v", kind, got)
		}
		want := []Conflict{{Anchor: "X", Lines: []int{2, 4, 5}}}
		if !reflect.DeepEqual(res.PreviousConflicts, want) {
			t.Fatalf("%s: conflicts=%+v", kind, res.PreviousConflicts)
		}
		if res.Duplicates() != 2 || len(res.Warnings()) != 1 {
			t.Fatalf("%s: duplicates=%d warnings=%v", kind, res.Duplicates(), res.Warnings())
		}
	}

	_, _, err := run(t, SortMerge, prev, curr, true)
	var dup *DuplicateAnchorError
	if !errors.As(err, &dup) {
		t.Fatalf("sortmerge: err=%v, want DuplicateAnchorError", err)
	}
	if dup.Source != headers.Previous || dup.Anchor != "X" || dup.FirstLine != 2 || dup.Line != 4 {
		t.Fatalf("sortmerge: %+v", dup)
	}
}

func TestStreaming_CurrentDuplicatesSkipped(t *testing.T) {
	prev := "id,v\nA,1\n"
	curr := "id,v\nB,1\nA,1\nb,2\nA,9\n"
	chs, res, err := run(t, Streaming, prev, curr, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := pairs(chs); !reflect.DeepEqual(got, []string{"B:Add", "A:None"}) {
		t.Fatalf("changes=%v", got)
	}
	want := []Conflict{{Anchor: "b", Lines: []int{2, 4}}, {Anchor: "A", Lines: []int{3, 5}}}
	if !reflect.DeepEqual(res.CurrentConflicts, want) {
		t.Fatalf("conflicts=%+v", res.CurrentConflicts)
	}
}

func TestRowErrors(t *testing.T) {
	cases := []struct {
		name, curr string
		line       int
	}{
		{"short row", "id,a,b\nk1,1\n", 2},
		{"long row", "id,a,b\nk1,1,2\nk2,1,2,3\n", 3},
		{"blank row", "id,a,b\nk1,1,2\n , ,\n", 3},
		{"blank anchor", "id,a,b\n  ,1,2\n", 2},
	}
	for _, tc := range cases {
		for _, kind := range Names {
			t.Run(tc.name+"/"+kind, func(t *testing.T) {
				_, _, err := run(t, kind, "id,a,b\nk1,1,2\n", tc.curr, true)
				var re *RowError
				if !errors.As(err, &re) {
					t.Fatalf("err=%v, want RowError", err)
				}
				if re.Source != headers.Current || re.Line != tc.line {
					t.Fatalf("got %+v", re)
				}
			})
		}
	}
}

func TestSortMerge_RemovesSpool(t *testing.T) {
	for _, tc := range []struct{ name, prev string }{
		{"success", prevBasic},
		{"failure", "id,name,salary\nk1,a,1\nk1,b,2\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tmp := t.TempDir()
			f := newFixture(t, tc.prev, currBasic, true)
			s, _ := New(SortMerge, f.cmp, Options{BatchSize: 2, TempDir: tmp})
			_, _ = s.Run(context.Background(), f.prev, f.curr, func(compare.Change) error { return nil })
			entries, err := os.ReadDir(tmp)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 0 {
				t.Fatalf("spool left behind: %v", entries)
			}
		})
	}
}

func TestRun_EmitErrorStops(t *testing.T) {
	boom := errors.New("boom")
	for _, kind := range Names {
		f := newFixture(t, prevBasic, currBasic, true)
		s, _ := New(kind, f.cmp, Options{TempDir: t.TempDir()})
		calls := 0
		_, err := s.Run(context.Background(), f.prev, f.curr, func(compare.Change) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Fatalf("%s: err=%v calls=%d", kind, err, calls)
		}
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, kind := range Names {
		f := newFixture(t, prevBasic, currBasic, true)
		s, _ := New(kind, f.cmp, Options{TempDir: t.TempDir()})
		if _, err := s.Run(ctx, f.prev, f.curr, func(compare.Change) error { return nil }); err == nil {
			t.Fatalf("%s: expected error on canceled context", kind)
		}
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t, prevBasic, currBasic, true)
	if _, err := New("hash", f.cmp, Options{}); err == nil {
		t.Fatal("expected unknown strategy error")
	}
	s, err := New(" SortMerge ", f.cmp, Options{})
	if err != nil || s.Name() != SortMerge {
		t.Fatalf("New: %v %v", s, err)
	}
	if !Valid("streaming") || Valid("nested-loop") {
		t.Fatal("Valid mismatch")
	}
}
