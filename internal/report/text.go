// internal/report/text.go
package report

import (
	"fmt"
	"io"
	"strings"
)

func init() { Register("text", writeText) }

// writeText renders one block per run directory, key: value lines.
func writeText(w io.Writer, outcomes []Outcome) error {
	for i, o := range outcomes {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := textBlock(w, o); err != nil {
			return err
		}
	}
	return nil
}

func textBlock(w io.Writer, o Outcome) error {
	lines := []string{fmt.Sprintf("run: %s", o.Path)}
	if o.Flowcell != "" {
		lines = append(lines, fmt.Sprintf("  flowcell:   %s/%d/%s", o.Instrument, o.RunNumber, o.Flowcell))
	}
	if o.Status != "" {
		lines = append(lines, fmt.Sprintf("  status:     %s", o.Status))
	}
	lines = append(lines,
		fmt.Sprintf("  metadata:   %s (%s)", o.MetaAction, o.MetaReason),
		fmt.Sprintf("  adapters:   %s (%s)", o.AdapterAction, o.AdapterReason),
	)
	if o.HistogramsSubmitted > 0 {
		lines = append(lines, fmt.Sprintf("  histograms: %d submitted", o.HistogramsSubmitted))
	}
	if len(o.FailedLanes) > 0 {
		parts := make([]string, len(o.FailedLanes))
		for i, l := range o.FailedLanes {
			parts[i] = fmt.Sprintf("%d", l)
		}
		lines = append(lines, fmt.Sprintf("  failed lanes: %s", strings.Join(parts, ", ")))
	}
	if o.DryRun {
		lines = append(lines, "  dry-run:    no writes performed")
	}
	if o.Error != "" {
		lines = append(lines, fmt.Sprintf("  error:      %s", o.Error))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
