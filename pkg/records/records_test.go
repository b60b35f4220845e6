package records

import "testing"

func TestRecordGet(t *testing.T) {
	r := Record{Line: 2, Values: []string{"a", "b"}}
	if got := r.Get(1); got != "b" {
		t.Fatalf("Get(1)=%q want b", got)
	}
	if got := r.Get(5); got != "" {
		t.Fatalf("Get(5)=%q want empty", got)
	}
	if got := r.Get(-1); got != "" {
		t.Fatalf("Get(-1)=%q want empty", got)
	}
}

func TestRecordBlank(t *testing.T) {
	cases := []struct {
		name string
		vals []string
		want bool
	}{
		{"all_empty", []string{"", ""}, true},
		{"whitespace", []string{" ", "\t"}, true},
		{"one_value", []string{"", "x"}, false},
		{"no_values", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := (Record{Values: tc.vals}).Blank(); got != tc.want {
				t.Fatalf("Blank()=%v want %v", got, tc.want)
			}
		})
	}
}
