// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"flowsync-core/flowcell"
	"flowsync-core/histogram"

	"flowsync/internal/api"
	"flowsync/internal/cli"
	"flowsync/internal/config"
	"flowsync/internal/ingest"
	"flowsync/internal/report"
	"flowsync/internal/version"
)

// RunContext dispatches the subcommand, wires the service client and runs
// the ingest flow. Exit codes: 0 ok, 1 at least one run directory failed,
// 2 usage or configuration error, 3 output error.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)
	defer func() { _ = outw.Flush() }()

	fs := cli.NewFlagSet("flowsync")
	fs.SetOutput(io.Discard)

	usage := func(w io.Writer) {
		// Register the flags so the usage text lists them.
		if fs.Lookup("config") == nil {
			_, _ = cli.ParseArgs(fs, []string{"-h"})
		}
		cli.Usage(w, fs, "flowsync")
	}

	if len(argv) == 0 {
		usage(outw)
		return 0
	}
	switch argv[0] {
	case "help", "-h", "--help":
		usage(outw)
		return 0
	case "version", "--version":
		_, _ = fmt.Fprintf(outw, "flowsync version %s\n", version.Version)
		return 0
	case "ingest":
		argv = argv[1:]
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", argv[0])
		usage(outw)
		return 2
	}

	opts, err := cli.ParseArgs(fs, argv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(outw)
			return 0
		}
		_, _ = fmt.Fprintln(stderr, err)
		usage(outw)
		return 2
	}
	if opts.Version {
		_, _ = fmt.Fprintf(outw, "flowsync version %s\n", version.Version)
		return 0
	}

	settings, err := config.Load(opts.ConfigFile)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	resolved := resolve(fs, opts, settings)

	if resolved.URL == "" {
		_, _ = fmt.Fprintln(stderr, "missing --url (or web.url in the settings file)")
		return 2
	}
	if resolved.Project == "" {
		_, _ = fmt.Fprintln(stderr, "missing --project-uuid (or ingest.project_uuid in the settings file)")
		return 2
	}

	log := newLogger(stderr, resolved.Verbose, resolved.Quiet)
	token := "<hidden>"
	if resolved.LogToken {
		token = resolved.Token
	}
	log.Debug("service client settings", "url", resolved.URL, "token", token,
		"project", resolved.Project)

	client, err := api.NewClient(api.Config{
		BaseURL:          resolved.URL,
		Token:            resolved.Token,
		Project:          resolved.Project,
		Operator:         resolved.Operator,
		MinIndexFraction: effectiveMinFraction(resolved.MinIndexFraction),
	})
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}

	return run(parent, outw, log, client, resolved)
}

// resolve overlays the settings file onto flags the user left unset and
// folds the tri-state config booleans into the final switch set.
// Precedence: built-in defaults < file < environment < flags.
func resolve(fs *pflag.FlagSet, opts cli.Options, s config.Settings) cli.Options {
	if !fs.Changed("url") && s.Web.URL != "" {
		opts.URL = s.Web.URL
	}
	if !fs.Changed("token") && s.Web.Token != "" {
		opts.Token = s.Web.Token
	}
	if !fs.Changed("project-uuid") && s.Ingest.Project != "" {
		opts.Project = s.Ingest.Project
	}
	if !fs.Changed("operator") && s.Ingest.Operator != "" {
		opts.Operator = s.Ingest.Operator
	}
	if !fs.Changed("threads") && s.Threads > 0 {
		opts.Threads = s.Threads
	}
	if !fs.Changed("sample-reads-per-tile") && s.Ingest.SampleReads > 0 {
		opts.SampleReads = s.Ingest.SampleReads
	}
	if !fs.Changed("min-index-fraction") && s.Ingest.MinIndexFraction > 0 {
		opts.MinIndexFraction = s.Ingest.MinIndexFraction
	}
	if !fs.Changed("no-register") {
		opts.NoRegister = !config.Enabled(s.Ingest.Register, true)
	}
	if !fs.Changed("no-update") {
		opts.NoUpdate = !config.Enabled(s.Ingest.Update, true)
	}
	if !fs.Changed("no-analyze-adapters") {
		opts.NoAnalyze = !config.Enabled(s.Ingest.AnalyzeAdapters, true)
	}
	if !fs.Changed("no-post-adapters") {
		opts.NoPostAdapters = !config.Enabled(s.Ingest.PostAdapters, true)
	}
	if !fs.Changed("update-if-state-final") {
		opts.UpdateIfFinal = !config.Enabled(s.Ingest.SkipIfStatusFinal, true)
	}
	return opts
}

// run is the post-wiring half, testable with a fake service.
func run(ctx context.Context, outw *bufio.Writer, log *slog.Logger, svc flowcell.Service, opts cli.Options) int {
	app := ingest.New(svc, log, ingest.Options{
		Flags: flowcell.Flags{
			Register:        !opts.NoRegister,
			Update:          !opts.NoUpdate,
			UpdateIfFinal:   opts.UpdateIfFinal,
			AnalyzeAdapters: !opts.NoAnalyze,
			ForceAnalyze:    opts.ForceAnalyze,
		},
		DryRun:   opts.DryRun,
		SkipPost: opts.NoPostAdapters,
		Threads:  opts.Threads,
		Sampling: histogram.Config{
			SampleReadsPerTile: opts.SampleReads,
			MinIndexFraction:   opts.MinIndexFraction,
		},
	})

	outcomes := app.Process(ctx, opts.RunDirs)

	if err := report.Write(opts.Output, outw, outcomes); err != nil {
		log.Error("write report", "err", err)
		return 3
	}
	if err := outw.Flush(); err != nil {
		log.Error("flush report", "err", err)
		return 3
	}
	for _, o := range outcomes {
		if o.Failed() {
			return 1
		}
	}
	return 0
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func effectiveMinFraction(f float64) float64 {
	if f == 0 {
		return histogram.DefaultMinIndexFraction
	}
	return f
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
