// core/rundir/descriptor.go
package rundir

import "strconv"

// Layout identifies the on-disk folder convention of a run directory.
// It decides which parameter document is parsed and how base-call files
// are laid out under Data/Intensities/BaseCalls.
type Layout string

const (
	// LayoutMiSeq covers MiSeq / HiSeq 2000 style runs (runParameters.xml,
	// per-tile s_<lane>_<tile>.bcl files under C<cycle>.1 directories).
	LayoutMiSeq Layout = "miseq"
	// LayoutMiniSeq covers MiniSeq / NextSeq style runs (RunParameters.xml,
	// one aggregated <cycle>.bcl.bgzf per lane and cycle).
	LayoutMiniSeq Layout = "miniseq"
	// LayoutHiSeqX covers HiSeq X runs (RunParameters.xml, s.locs marker).
	LayoutHiSeqX Layout = "hiseqx"
	// LayoutNovaSeq covers NovaSeq runs (RunParameters.xml, columnar
	// L<lane>_<surface>.cbcl files).
	LayoutNovaSeq Layout = "novaseq"
)

// ReadSegment is one planned or sequenced portion of the read structure.
type ReadSegment struct {
	Number  int // 1-based ordinal within the run
	Cycles  int
	IsIndex bool
}

// SegmentString renders segments in the compact instrument notation,
// e.g. "151T8B8B151T" (T = template, B = index/barcode).
func SegmentString(segs []ReadSegment) string {
	var b []byte
	for _, s := range segs {
		b = strconv.AppendInt(b, int64(s.Cycles), 10)
		if s.IsIndex {
			b = append(b, 'B')
		} else {
			b = append(b, 'T')
		}
	}
	return string(b)
}

// TotalCycles sums the cycle counts over segs.
func TotalCycles(segs []ReadSegment) int {
	n := 0
	for _, s := range segs {
		n += s.Cycles
	}
	return n
}

// SegmentsEqual reports whether two read structures are identical.
func SegmentsEqual(a, b []ReadSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Descriptor is the canonical description of one run directory, combining
// the run-info and run-parameters documents with filesystem inspection.
type Descriptor struct {
	Path       string
	Layout     Layout
	RunID      string
	RunNumber  int
	Flowcell   string // flow-cell vendor id
	Instrument string // sequencer vendor id
	Date       string // ISO date (yyyy-mm-dd)
	LaneCount  int

	RTAVersion     int    // major version (1, 2 or 3)
	RTAVersionFull string // as reported, e.g. "2.11.3"
	FlowcellSlot   string
	ExperimentName string

	// PlannedReads is the configured read structure; CurrentReads is the
	// structure clipped to the cycles that have actually produced output
	// files. They differ for an in-progress run.
	PlannedReads []ReadSegment
	CurrentReads []ReadSegment

	// RTAComplete is true once the instrument wrote its end-of-run marker.
	RTAComplete bool
}

// IndexSegments counts index reads in the planned structure (falling back
// to the current structure when no plan was recorded). One adapter
// histogram per lane is expected for each of them.
func (d *Descriptor) IndexSegments() int {
	segs := d.PlannedReads
	if len(segs) == 0 {
		segs = d.CurrentReads
	}
	n := 0
	for _, s := range segs {
		if s.IsIndex {
			n++
		}
	}
	return n
}
