// internal/cli/options_test.go
package cli

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/pflag"
)

func parse(t *testing.T, argv ...string) (Options, error) {
	t.Helper()
	fs := NewFlagSet("flowsync")
	fs.SetOutput(io.Discard)
	return ParseArgs(fs, argv)
}

func TestParseMinimal(t *testing.T) {
	opt, err := parse(t, "/seq/runs/200115_NS500001_0017_AHFCXX")
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if len(opt.RunDirs) != 1 || opt.RunDirs[0] != "/seq/runs/200115_NS500001_0017_AHFCXX" {
		t.Errorf("RunDirs = %v", opt.RunDirs)
	}
	if opt.Output != OutputText {
		t.Errorf("Output = %q, want text default", opt.Output)
	}
	// Everything is on by default; the --no-* flags switch off.
	if opt.NoRegister || opt.NoUpdate || opt.NoAnalyze || opt.NoPostAdapters {
		t.Errorf("switches not default-on: %+v", opt)
	}
}

func TestParseAllFlags(t *testing.T) {
	opt, err := parse(t,
		"--url", "https://x",
		"--project-uuid", "11111111-2222-3333-4444-555555555555",
		"--operator", "demo",
		"--no-register", "--no-update", "--update-if-state-final",
		"--force-analyze-adapters", "--no-post-adapters",
		"--dry-run", "--log-token",
		"--threads", "8",
		"--sample-reads-per-tile", "50000",
		"--min-index-fraction", "0.01",
		"--output", "jsonl",
		"-v",
		"/runs/a", "/runs/b",
	)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !opt.NoRegister || !opt.NoUpdate || !opt.UpdateIfFinal || !opt.ForceAnalyze || !opt.NoPostAdapters || !opt.DryRun {
		t.Errorf("switches = %+v", opt)
	}
	if opt.URL != "https://x" || !opt.LogToken {
		t.Errorf("connection = %+v", opt)
	}
	if opt.Threads != 8 || opt.SampleReads != 50000 || opt.MinIndexFraction != 0.01 {
		t.Errorf("tuning = %+v", opt)
	}
	if len(opt.RunDirs) != 2 {
		t.Errorf("RunDirs = %v", opt.RunDirs)
	}
	if !opt.Verbose {
		t.Error("Verbose = false")
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		argv []string
	}{
		{"no_run_dirs", []string{"--no-register"}},
		{"verbose_and_quiet", []string{"-v", "-q", "/runs/a"}},
		{"fraction_out_of_range", []string{"--min-index-fraction", "1.5", "/runs/a"}},
		{"bad_output", []string{"--output", "xml", "/runs/a"}},
		{"force_conflicts_no_analyze", []string{"--force-analyze-adapters", "--no-analyze-adapters", "/runs/a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parse(t, tc.argv...); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseHelp(t *testing.T) {
	_, err := parse(t, "-h")
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("err = %v, want pflag.ErrHelp", err)
	}
}

func TestParseVersionSkipsValidation(t *testing.T) {
	opt, err := parse(t, "--version")
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !opt.Version {
		t.Error("Version = false")
	}
}
