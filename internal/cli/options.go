// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"flowsync/internal/version"
)

// Output formats
const (
	OutputText  = "text"
	OutputJSONL = "jsonl"
)

// Options holds all flags and arguments of the ingest subcommand.
// Registration, update, analysis and posting are enabled by default and
// switched off with the --no-* flags; the settings file can flip the
// defaults, flags always win.
type Options struct {
	// Run directories (positional)
	RunDirs []string

	// Settings file
	ConfigFile string

	// Tracking service connection
	URL      string
	Token    string
	LogToken bool
	Project  string
	Operator string

	// Reconciliation switches
	NoRegister      bool
	NoUpdate        bool
	UpdateIfFinal   bool
	NoAnalyze       bool
	ForceAnalyze    bool
	NoPostAdapters  bool
	DryRun          bool

	// Adapter sampling
	SampleReads      int
	MinIndexFraction float64

	// Performance
	Threads int

	// Output
	Output  string
	Verbose bool
	Quiet   bool

	Version bool
}

// NewFlagSet returns a clean FlagSet with ContinueOnError. Help text is
// printed explicitly through Usage so callers control the destination.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {}
	return fs
}

// Usage writes the full help text to w.
func Usage(w io.Writer, fs *pflag.FlagSet, name string) {
	fmt.Fprintf(w,
		`%s: ingest sequencer run folders into a flow-cell tracking service

Version: %s

Usage: %s ingest [flags] RUN_DIR [RUN_DIR...]

Flags:
%s`, name, version.Version, name, fs.FlagUsages())
}

// ParseArgs registers and parses the ingest flags, returns an Options
// struct. Values left at their zero default are later filled from the
// settings file and environment.
func ParseArgs(fs *pflag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	fs.StringVar(&opt.ConfigFile, "config", "", "settings file (default ~/.flowsyncrc.toml)")

	// Tracking service connection
	fs.StringVar(&opt.URL, "url", "", "base URL of the tracking service [*]")
	fs.StringVar(&opt.Token, "token", "", "API token (prefer the settings file)")
	fs.BoolVar(&opt.LogToken, "log-token", false, "include the API token in debug logs")
	fs.StringVar(&opt.Project, "project-uuid", "", "project UUID to register flow cells in [*]")
	fs.StringVar(&opt.Operator, "operator", "", "operator name recorded on registration")

	// Reconciliation switches
	fs.BoolVar(&opt.NoRegister, "no-register", false, "never register unknown flow cells")
	fs.BoolVar(&opt.NoUpdate, "no-update", false, "never update flow cells with non-final status")
	fs.BoolVar(&opt.UpdateIfFinal, "update-if-state-final", false, "update even when the remote status is final")
	fs.BoolVar(&opt.NoAnalyze, "no-analyze-adapters", false, "skip base-call sampling entirely")
	fs.BoolVar(&opt.ForceAnalyze, "force-analyze-adapters", false, "re-analyze even when remote histograms are complete")
	fs.BoolVar(&opt.NoPostAdapters, "no-post-adapters", false, "compute histograms but do not submit them")
	fs.BoolVar(&opt.DryRun, "dry-run", false, "decide and report but perform no writes")

	// Adapter sampling
	fs.IntVar(&opt.SampleReads, "sample-reads-per-tile", 0, "reads sampled per tile (0 = default 1000000)")
	fs.Float64Var(&opt.MinIndexFraction, "min-index-fraction", 0, "histogram retention threshold (0 = default 0.001)")

	// Performance
	fs.IntVar(&opt.Threads, "threads", 0, "lane worker threads (0 = default 4)")

	// Output
	fs.StringVar(&opt.Output, "output", OutputText, "output format: text | jsonl")
	fs.BoolVarP(&opt.Verbose, "verbose", "v", false, "debug logging")
	fs.BoolVarP(&opt.Quiet, "quiet", "q", false, "errors only")

	fs.BoolVar(&opt.Version, "version", false, "print version and exit")
	fs.BoolVarP(&help, "help", "h", false, "show this help message")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		return opt, pflag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.RunDirs = fs.Args()

	// Validation
	if len(opt.RunDirs) == 0 {
		return opt, errors.New("at least one run directory is required")
	}
	if opt.Verbose && opt.Quiet {
		return opt, errors.New("--verbose conflicts with --quiet")
	}
	if opt.Threads < 0 {
		return opt, errors.New("--threads must be >= 0")
	}
	if opt.SampleReads < 0 {
		return opt, errors.New("--sample-reads-per-tile must be >= 0")
	}
	if opt.MinIndexFraction < 0 || opt.MinIndexFraction >= 1 {
		return opt, errors.New("--min-index-fraction must be in [0, 1)")
	}
	if opt.Output != OutputText && opt.Output != OutputJSONL {
		return opt, fmt.Errorf("invalid --output %q", opt.Output)
	}
	if opt.ForceAnalyze && opt.NoAnalyze {
		return opt, errors.New("--force-analyze-adapters conflicts with --no-analyze-adapters")
	}
	return opt, nil
}
