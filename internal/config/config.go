// Package config defines the run file decoded by cmd/csvreporter. A run file
// is JSON, or YAML when its extension is .yaml or .yml, and mirrors the
// command-line flags, which override it.
//
// Example (trimmed):
//
//	{
//	  "job": "hr-cutover",
//	  "previous": { "path": "exports/legacy.csv" },
//	  "current":  { "path": "exports/new.csv" },
//	  "compare":  {
//	    "anchor": "EmployeeID",
//	    "ignore": ["LastModified"],
//	    "strategy": "streaming",
//	    "transforms": { "Status": { "Active": "1", "*": "0" } }
//	  },
//	  "report":   { "path": "out/changes.csv" },
//	  "storage":  { "kind": "sqlite", "db": { "dsn": "audit.db", "table": "changes", "auto_create_table": true } }
//	}
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Defaults.
const (
	DefaultStrategy  = "memory"
	DefaultDelimiter = ","
	DefaultEncoding  = "utf8"
	DefaultBatchSize = 10000
	DefaultJob       = "csvreporter"
)

// Run is one comparison.
type Run struct {
	// Job labels metrics and log lines.
	Job string `json:"job" yaml:"job"`

	Previous Input   `json:"previous" yaml:"previous"`
	Current  Input   `json:"current" yaml:"current"`
	Parser   Parser  `json:"parser" yaml:"parser"`
	Compare  Compare `json:"compare" yaml:"compare"`
	Report   Report  `json:"report" yaml:"report"`
	Storage  Storage `json:"storage" yaml:"storage"`
	Runtime  Runtime `json:"runtime" yaml:"runtime"`
}

// Input is one compared file.
type Input struct {
	Path string `json:"path" yaml:"path"`
}

// Parser applies to both inputs.
type Parser struct {
	// Delimiter is one of "," "\t" ";" "|", or the names comma, tab,
	// semicolon, pipe.
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Encoding names the text encoding, e.g. "utf8", "unicode", "latin1".
	Encoding string `json:"encoding" yaml:"encoding"`

	// LazyQuotes tolerates stray quotes in unquoted fields.
	LazyQuotes bool `json:"lazy_quotes" yaml:"lazy_quotes"`
}

// Compare configures matching and classification.
type Compare struct {
	Anchor        string   `json:"anchor" yaml:"anchor"`
	CaseSensitive bool     `json:"case_sensitive" yaml:"case_sensitive"`
	Ignore        []string `json:"ignore" yaml:"ignore"`

	// Strategy is memory, streaming, or sortmerge.
	Strategy string `json:"strategy" yaml:"strategy"`

	// Detailed writes every row with per-column match flags and a summary row.
	Detailed bool `json:"detailed" yaml:"detailed"`

	// Transforms maps column -> trigger -> directive.
	Transforms map[string]map[string]string `json:"transforms" yaml:"transforms"`
}

// Report configures the output file.
type Report struct {
	Path string `json:"path" yaml:"path"`

	// Encoding defaults to the parser encoding.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Storage selects the optional audit sink. An empty kind or "none" disables it.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the audit table.
type DBConfig struct {
	DSN             string `json:"dsn" yaml:"dsn"`
	Table           string `json:"table" yaml:"table"`
	AutoCreateTable bool   `json:"auto_create_table" yaml:"auto_create_table"`
}

// Runtime tunes batching.
type Runtime struct {
	// BatchSize bounds report flushes, audit batches, and spool transactions.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// TempDir holds sort-merge spools; empty means the system temp dir.
	TempDir string `json:"temp_dir" yaml:"temp_dir"`
}

// Enabled reports whether an audit sink is configured.
func (s Storage) Enabled() bool {
	k := strings.ToLower(strings.TrimSpace(s.Kind))
	return k != "" && k != "none"
}

// ApplyDefaults fills unset fields. BatchSize is left alone so validation can
// warn about an explicit non-positive value; callers fall back with
// EffectiveBatchSize.
func (r *Run) ApplyDefaults() {
	if strings.TrimSpace(r.Job) == "" {
		r.Job = DefaultJob
	}
	if r.Compare.Strategy == "" {
		r.Compare.Strategy = DefaultStrategy
	}
	if r.Parser.Delimiter == "" {
		r.Parser.Delimiter = DefaultDelimiter
	}
	if r.Parser.Encoding == "" {
		r.Parser.Encoding = DefaultEncoding
	}
	if r.Report.Encoding == "" {
		r.Report.Encoding = r.Parser.Encoding
	}
	if r.Report.Path == "" && r.Current.Path != "" {
		r.Report.Path = DefaultReportPath(r.Current.Path)
	}
}

// EffectiveBatchSize returns BatchSize or the default when it is not positive.
func (r Run) EffectiveBatchSize() int {
	if r.Runtime.BatchSize > 0 {
		return r.Runtime.BatchSize
	}
	return DefaultBatchSize
}

// DefaultReportPath places the report next to the current file:
// "data/new.csv" becomes "data/new.changes.csv".
func DefaultReportPath(current string) string {
	ext := filepath.Ext(current)
	return strings.TrimSuffix(current, ext) + ".changes" + nonEmpty(ext, ".csv")
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ParseDelimiter maps the configured delimiter text to a rune.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case ",", "comma":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q (want comma, tab, semicolon, or pipe)", s)
}
