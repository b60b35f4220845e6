package config

import (
	"errors"
	"fmt"
	"strings"

	"csvreporter/internal/collate"
	"csvreporter/internal/join"
	"csvreporter/internal/parser/csv"
	"csvreporter/internal/transformer"
)

// IssueSeverity is the severity of a configuration issue.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path is dotted, e.g. "compare.anchor".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownStorage = map[string]struct{}{
	"postgres": {},
	"sqlite":   {},
	"mssql":    {},
	"mysql":    {},
}

// ValidateRun checks r before any file is opened. Call ApplyDefaults first.
func ValidateRun(r Run) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(r.Previous.Path) == "" {
		add(SeverityError, "previous.path", "previous.path must not be empty")
	}
	if strings.TrimSpace(r.Current.Path) == "" {
		add(SeverityError, "current.path", "current.path must not be empty")
	}
	if r.Previous.Path != "" && r.Previous.Path == r.Current.Path {
		add(SeverityWarning, "current.path", "previous and current are the same file")
	}
	if strings.TrimSpace(r.Report.Path) == "" {
		add(SeverityError, "report.path", "report.path must not be empty")
	}

	if _, err := ParseDelimiter(r.Parser.Delimiter); err != nil {
		add(SeverityError, "parser.delimiter", "%v", err)
	}
	if _, err := csv.LookupEncoding(r.Parser.Encoding); err != nil {
		add(SeverityError, "parser.encoding", "%v", err)
	}
	if _, err := csv.LookupEncoding(r.Report.Encoding); err != nil {
		add(SeverityError, "report.encoding", "%v", err)
	}

	issues = append(issues, validateCompare(r.Compare)...)
	issues = append(issues, validateStorage(r.Storage)...)

	if r.Runtime.BatchSize <= 0 {
		add(SeverityWarning, "runtime.batch_size", "batch_size=%d; using %d", r.Runtime.BatchSize, DefaultBatchSize)
	}
	return issues
}

func validateCompare(c Compare) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	anchor := collate.Normalize(c.Anchor)
	if anchor == "" {
		add(SeverityError, "compare.anchor", "compare.anchor must not be empty")
	}

	strategy := strings.ToLower(strings.TrimSpace(c.Strategy))
	if !join.Valid(strategy) {
		add(SeverityError, "compare.strategy", "unknown strategy %q (want %s)", c.Strategy, strings.Join(join.Names, ", "))
	}
	if c.Detailed && strategy == join.SortMerge {
		add(SeverityError, "compare.detailed", "detailed reports need the memory or streaming strategy")
	}

	seen := map[string]bool{}
	for i, col := range c.Ignore {
		path := fmt.Sprintf("compare.ignore[%d]", i)
		n := collate.Normalize(col)
		switch {
		case n == "":
			add(SeverityError, path, "ignored column name is blank")
		case n == anchor:
			add(SeverityError, path, "the anchor column %q cannot be ignored", col)
		case seen[n]:
			add(SeverityWarning, path, "column %q is listed more than once", col)
		}
		seen[n] = true
	}

	if len(c.Transforms) > 0 {
		_, warns, err := transformer.NewEngine(c.Transforms, collate.New(c.CaseSensitive))
		var ite *transformer.InvalidTransformError
		switch {
		case errors.As(err, &ite):
			add(SeverityError, "compare.transforms."+ite.Column, "%v", err)
		case err != nil:
			add(SeverityError, "compare.transforms", "%v", err)
		}
		for _, w := range warns {
			add(SeverityWarning, "compare.transforms."+w.Column, "%s", w.Message)
		}
		for col := range c.Transforms {
			n := collate.Normalize(col)
			if n != "" && n == anchor {
				add(SeverityError, "compare.transforms."+col, "the anchor column cannot be transformed")
			}
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	if !s.Enabled() {
		return nil
	}
	var issues []Issue
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	if _, ok := knownStorage[kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; want postgres, sqlite, mssql, mysql, or none", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.dsn", Message: "storage.db.dsn must not be empty"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.db.table", Message: "storage.db.table must not be empty"})
	}
	return issues
}
