// Command csvreporter compares a previous and a current version of a
// delimited export keyed by an anchor column and writes a change report.
//
//	csvreporter -previous old.csv -current new.csv -anchor EmployeeID -out changes.csv
//	csvreporter -config runs/hr.yaml -strategy sortmerge
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"csvreporter/internal/config"
	"csvreporter/internal/metrics"
	"csvreporter/internal/metrics/datadog"
	"csvreporter/internal/metrics/prompush"

	// register all audit backends with the storage factory.
	_ "csvreporter/internal/storage/all"
)

// cliFlags holds the command line. Run-file fields are overridden only by
// flags that were set explicitly.
type cliFlags struct {
	configPath string

	previous      string
	current       string
	anchor        string
	caseSensitive bool
	ignore        string
	strategy      string
	detailed      bool
	delimiter     string
	encoding      string
	out           string
	batchSize     int
	tempDir       string

	metricsBackend string
	pushGatewayURL string
	ddAddr         string

	validate bool
	verbose  bool

	set map[string]bool
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{set: map[string]bool{}}
	fs := flag.NewFlagSet("csvreporter", flag.ContinueOnError)

	fs.StringVar(&f.configPath, "config", "", "run file (JSON, or YAML by extension)")
	fs.StringVar(&f.previous, "previous", "", "previous version of the export")
	fs.StringVar(&f.current, "current", "", "current version of the export")
	fs.StringVar(&f.anchor, "anchor", "", "anchor (key) column name")
	fs.BoolVar(&f.caseSensitive, "case-sensitive", false, "compare values and anchors case-sensitively")
	fs.StringVar(&f.ignore, "ignore", "", "comma-separated columns to leave out of the comparison")
	fs.StringVar(&f.strategy, "strategy", "", "join strategy: memory, streaming, sortmerge")
	fs.BoolVar(&f.detailed, "detailed", false, "write every row with match flags and a summary row")
	fs.StringVar(&f.delimiter, "delimiter", "", "field delimiter: comma, tab, semicolon, pipe")
	fs.StringVar(&f.encoding, "encoding", "", "text encoding of inputs and report")
	fs.StringVar(&f.out, "out", "", "report path (default <current>.changes.csv)")
	fs.IntVar(&f.batchSize, "batch-size", 0, "rows per report flush and audit batch (env CSVREPORTER_BATCH_SIZE)")
	fs.StringVar(&f.tempDir, "temp-dir", "", "directory for sort-merge spools")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog (env METRICS_BACKEND)")
	fs.StringVar(&f.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	fs.StringVar(&f.ddAddr, "dd-addr", "", "DogStatsD address (env DD_AGENT_ADDR)")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVar(&f.verbose, "v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// buildRun loads the run file, if any, and layers flags and environment on
// top. Defaults are applied last.
func buildRun(fsys afero.Fs, f *cliFlags) (config.Run, error) {
	var r config.Run
	if f.configPath != "" {
		var err error
		if r, err = config.Load(fsys, f.configPath); err != nil {
			return r, err
		}
	}

	if f.set["previous"] {
		r.Previous.Path = f.previous
	}
	if f.set["current"] {
		r.Current.Path = f.current
	}
	if f.set["anchor"] {
		r.Compare.Anchor = f.anchor
	}
	if f.set["case-sensitive"] {
		r.Compare.CaseSensitive = f.caseSensitive
	}
	if f.set["ignore"] {
		r.Compare.Ignore = splitList(f.ignore)
	}
	if f.set["strategy"] {
		r.Compare.Strategy = f.strategy
	}
	if f.set["detailed"] {
		r.Compare.Detailed = f.detailed
	}
	if f.set["delimiter"] {
		r.Parser.Delimiter = f.delimiter
	}
	if f.set["encoding"] {
		r.Parser.Encoding = f.encoding
		r.Report.Encoding = f.encoding
	}
	if f.set["out"] {
		r.Report.Path = f.out
	}
	if f.set["temp-dir"] {
		r.Runtime.TempDir = f.tempDir
	}

	// Batch size: flag → env → run file → default.
	r.Runtime.BatchSize = pickInt(f.batchSize, pickInt(getenvInt("CSVREPORTER_BATCH_SIZE", 0), r.Runtime.BatchSize))
	switch {
	case f.set["batch-size"] && f.batchSize <= 0:
		r.Runtime.BatchSize = f.batchSize // surfaced by validation
	case r.Runtime.BatchSize == 0:
		r.Runtime.BatchSize = config.DefaultBatchSize
	}

	r.ApplyDefaults()
	return r, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	verbosef = newVerbosef(f.verbose, log.Default())

	r, err := buildRun(fsys, f)
	if err != nil {
		fatalf("config: %v", err)
	}

	issues := config.ValidateRun(r)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid")
		os.Exit(1)
	}
	if f.validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	flush := setupMetrics(f, r.Job)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	start := time.Now()

	verbosef("run: job=%s previous=%s current=%s anchor=%s strategy=%s detailed=%v out=%s",
		r.Job, r.Previous.Path, r.Current.Path, r.Compare.Anchor, r.Compare.Strategy, r.Compare.Detailed, r.Report.Path)

	_, err = runCompare(ctx, r)
	stop()
	flush()
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
	verbosef("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics installs the selected backend and returns its flush func.
// Backend choice: flag → env → none.
func setupMetrics(f *cliFlags, job string) func() {
	name := f.metricsBackend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}

	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(name) {
	case "pushgateway":
		gwURL := f.pushGatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = newPromBackendFn(job, gwURL)
		if err == nil {
			log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, job)
		}
	case "datadog":
		addr := f.ddAddr
		if addr == "" {
			addr = os.Getenv("DD_AGENT_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err = newDatadogBackendFn(datadog.Config{
			Addr:       addr,
			Namespace:  "csvreporter.",
			GlobalTags: []string{"job:" + job},
		})
		if err == nil {
			log.Printf("metrics: backend=datadog addr=%s job=%s", addr, job)
		}
	case "", "none":
		verbosef("metrics: disabled (backend=%q)", name)
		return func() {}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return func() {}
	}
	if err != nil {
		log.Printf("metrics: init %s backend: %v; using nop", name, err)
		return func() {}
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// newVerbosef returns a printf that writes to l only when verbose is set.
func newVerbosef(verbose bool, l *log.Logger) func(string, ...any) {
	if !verbose {
		return func(string, ...any) {}
	}
	return l.Printf
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// Test seams.
var (
	verbosef = newVerbosef(false, log.Default())

	newPromBackendFn = func(job, url string) (metrics.Backend, error) {
		return prompush.NewBackend(job, url)
	}
	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		return datadog.NewBackend(cfg)
	}
)
