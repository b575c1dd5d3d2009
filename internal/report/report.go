// internal/report/report.go
package report

import (
	"fmt"
	"io"
)

// Outcome is the per-run-directory summary emitted after reconciliation.
type Outcome struct {
	Path       string `json:"path"`
	Instrument string `json:"instrument,omitempty"`
	RunNumber  int    `json:"run_number,omitempty"`
	Flowcell   string `json:"flowcell,omitempty"`
	Status     string `json:"status,omitempty"`

	MetaAction    string `json:"meta_action"`
	MetaReason    string `json:"meta_reason,omitempty"`
	AdapterAction string `json:"adapter_action"`
	AdapterReason string `json:"adapter_reason,omitempty"`

	HistogramsSubmitted int    `json:"histograms_submitted"`
	FailedLanes         []int  `json:"failed_lanes,omitempty"`
	DryRun              bool   `json:"dry_run,omitempty"`
	Error               string `json:"error,omitempty"`
}

// Failed reports whether the directory counts against the exit code.
func (o Outcome) Failed() bool {
	return o.Error != "" || len(o.FailedLanes) > 0
}

// Writer renders a stream of outcomes to w.
type Writer func(w io.Writer, outcomes []Outcome) error

// writers is the format registry (format -> renderer). Registered from
// init() blocks in the per-format files.
var writers = map[string]Writer{}

// Register installs a renderer; last registration wins.
func Register(format string, fn Writer) { writers[format] = fn }

// Write dispatches to the renderer registered for format.
func Write(format string, w io.Writer, outcomes []Outcome) error {
	fn, ok := writers[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (no writer registered)", format)
	}
	return fn(w, outcomes)
}
