// core/rundir/reader.go
package rundir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Read parses the metadata documents of the run directory at root and
// inspects its base-call tree, returning the canonical descriptor.
// It is a pure transformation of the directory contents: no remote state
// is consulted and nothing is written.
func Read(root string) (*Descriptor, error) {
	if _, err := os.Stat(filepath.Join(root, "RunInfo.xml")); err != nil {
		return nil, fmt.Errorf("rundir: %s: %w", root, err)
	}
	layout, err := DetectLayout(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, root)
	}

	infoData, err := os.ReadFile(filepath.Join(root, "RunInfo.xml"))
	if err != nil {
		return nil, fmt.Errorf("rundir: %w", err)
	}
	info, err := parseRunInfo(infoData)
	if err != nil {
		return nil, err
	}

	paramsData, err := os.ReadFile(filepath.Join(root, paramsDoc(layout)))
	if err != nil {
		return nil, fmt.Errorf("rundir: %w", err)
	}
	params, err := parseRunParams(paramsData, layout)
	if err != nil {
		return nil, err
	}

	planned := params.PlannedReads
	if len(planned) == 0 {
		planned = info.Reads
	}
	current := clipSegments(planned, producedCycles(root, layout))

	return &Descriptor{
		Path:           root,
		Layout:         layout,
		RunID:          info.RunID,
		RunNumber:      info.RunNumber,
		Flowcell:       info.Flowcell,
		Instrument:     info.Instrument,
		Date:           info.Date,
		LaneCount:      info.LaneCount,
		RTAVersion:     params.RTAVersion,
		RTAVersionFull: params.RTAVersionFull,
		FlowcellSlot:   params.FlowcellSlot,
		ExperimentName: params.ExperimentName,
		PlannedReads:   planned,
		CurrentReads:   current,
		RTAComplete:    exists(root, "RTAComplete.txt"),
	}, nil
}

// producedCycles counts how many cycles have written output files, probing
// the first lane directory. Cycles are counted contiguously from 1: a gap
// means later files belong to a previous, aborted run.
func producedCycles(root string, layout Layout) int {
	baseCalls := filepath.Join(root, "Data", "Intensities", "BaseCalls")
	lanes, _ := filepath.Glob(filepath.Join(baseCalls, "L???"))
	if len(lanes) == 0 {
		return 0
	}
	lane := lanes[0]

	n := 0
	if layout == LayoutMiniSeq {
		for {
			cycle := n + 1
			if !exists(lane, fmt.Sprintf("%04d.bcl.bgzf", cycle)) &&
				!exists(lane, fmt.Sprintf("%04d.bcl.gz", cycle)) &&
				!exists(lane, fmt.Sprintf("%04d.bcl", cycle)) {
				return n
			}
			n = cycle
		}
	}
	for {
		if !exists(lane, fmt.Sprintf("C%d.1", n+1)) {
			return n
		}
		n++
	}
}

// clipSegments truncates a read structure to the first `cycles` cycles,
// yielding the structure actually sequenced so far.
func clipSegments(segs []ReadSegment, cycles int) []ReadSegment {
	if cycles >= TotalCycles(segs) {
		out := make([]ReadSegment, len(segs))
		copy(out, segs)
		return out
	}
	var out []ReadSegment
	remaining := cycles
	for _, s := range segs {
		if remaining <= 0 {
			break
		}
		c := s.Cycles
		if c > remaining {
			c = remaining
		}
		out = append(out, ReadSegment{Number: s.Number, Cycles: c, IsIndex: s.IsIndex})
		remaining -= c
	}
	return out
}
