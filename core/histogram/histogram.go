// core/histogram/histogram.go
package histogram

// Default sampling parameters, overridable through configuration.
const (
	DefaultSampleReadsPerTile = 1000000
	DefaultMinIndexFraction   = 0.001
)

// Config holds the sampling parameters. It is passed explicitly so tests
// can construct engines with arbitrary values.
type Config struct {
	// SampleReadsPerTile caps the reads decoded per tile; 0 picks the
	// default.
	SampleReadsPerTile int
	// MinIndexFraction is the retention threshold: an index sequence is
	// kept only when count/total is strictly greater than this.
	MinIndexFraction float64
}

// Histogram is the filtered index frequency table for one lane and one
// index read.
type Histogram struct {
	Lane       int
	IndexRead  int // 1-based ordinal among the index segments
	SampleSize int // pass-filter reads sampled (the denominator)
	Counts     map[string]int
}

// filter drops entries at or below the retention threshold. The sum of
// retained counts never exceeds total.
func filter(counts map[string]int, total int, minFraction float64) map[string]int {
	kept := make(map[string]int, len(counts))
	for seq, n := range counts {
		if float64(n) > float64(total)*minFraction {
			kept[seq] = n
		}
	}
	return kept
}
