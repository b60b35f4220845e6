package audit

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"csvreporter/internal/compare"
)

type memRepo struct {
	mu   sync.Mutex
	rows [][]any
	err  error
}

func (m *memRepo) CopyFrom(_ context.Context, _ []string, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, r := range rows {
		m.rows = append(m.rows, append([]any(nil), r...))
	}
	return int64(len(rows)), nil
}
func (m *memRepo) Exec(context.Context, string) error { return nil }
func (m *memRepo) Close()                             {}

var changes = []compare.Change{
	{Anchor: "k1", Class: compare.Update, Fields: []compare.Field{
		{Old: "100", New: "200", Compared: true},
		{Match: true, Compared: true},
	}},
	{Anchor: "k2", Class: compare.Add, Fields: []compare.Field{{New: "5"}, {New: "x"}}},
}

func TestWriter_NonDetailed(t *testing.T) {
	repo := &memRepo{}
	w := NewWriter(context.Background(), repo, "run-1", []string{"Salary", "Status"}, false, 2)
	if err := w.WriteChanges(context.Background(), changes); err != nil {
		t.Fatalf("WriteChanges: %v", err)
	}
	n, err := w.Close()
	if err != nil || n != 3 {
		t.Fatalf("Close n=%d err=%v", n, err)
	}
	want := [][]any{
		{"run-1", "k1", "Update", "Salary", "100", "200", false},
		{"run-1", "k2", "Add", "Salary", "", "5", nil},
		{"run-1", "k2", "Add", "Status", "", "x", nil},
	}
	if !reflect.DeepEqual(repo.rows, want) {
		t.Fatalf("rows=%v\nwant %v", repo.rows, want)
	}
}

func TestWriter_DetailedKeepsMatches(t *testing.T) {
	repo := &memRepo{}
	w := NewWriter(context.Background(), repo, "r", []string{"a", "b"}, true, 10)
	if err := w.WriteChanges(context.Background(), changes[:1]); err != nil {
		t.Fatal(err)
	}
	if n, err := w.Close(); err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if got := repo.rows[1][6]; got != true {
		t.Fatalf("matched=%v", got)
	}
}

func TestWriter_BackendFailure(t *testing.T) {
	boom := errors.New("disk full")
	repo := &memRepo{err: boom}
	w := NewWriter(context.Background(), repo, "r", []string{"a", "b"}, true, 1)

	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = w.WriteChanges(context.Background(), changes)
	}
	if _, cerr := w.Close(); !errors.Is(cerr, boom) {
		t.Fatalf("Close err=%v", cerr)
	}
	if err != nil && !errors.Is(err, boom) {
		t.Fatalf("WriteChanges err=%v", err)
	}
	if err := w.WriteChanges(context.Background(), changes); err == nil {
		t.Fatal("expected error after Close")
	}
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 4 {
		t.Fatalf("run id %q: %v", id, err)
	}
}
