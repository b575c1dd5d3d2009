// core/histogram/engine.go
package histogram

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"flowsync-core/bcl"
	"flowsync-core/rundir"
)

// Engine samples index reads from one representative tile per lane and
// builds the filtered frequency tables.
type Engine struct {
	cfg Config
	dec bcl.Decoder
	log *slog.Logger
}

// NewEngine fills unset config fields with the defaults. log may be nil.
func NewEngine(cfg Config, dec bcl.Decoder, log *slog.Logger) *Engine {
	if cfg.SampleReadsPerTile == 0 {
		cfg.SampleReadsPerTile = DefaultSampleReadsPerTile
	}
	if cfg.MinIndexFraction == 0 {
		cfg.MinIndexFraction = DefaultMinIndexFraction
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{cfg: cfg, dec: dec, log: log}
}

// SampleLane produces one Histogram per index segment for the given lane.
// The first tile in lane order is sampled — not a random one — so repeated
// invocations over the same data are reproducible.
func (e *Engine) SampleLane(desc *rundir.Descriptor, lane int) ([]Histogram, error) {
	tiles, err := e.dec.Tiles(lane)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("histogram: lane %d: no tiles found", lane)
	}
	tile := tiles[0]

	segs := desc.CurrentReads
	if len(segs) == 0 {
		segs = desc.PlannedReads
	}

	var out []Histogram
	indexNo := 0
	startCycle := 1
	for _, seg := range segs {
		if seg.IsIndex {
			indexNo++
			h, err := e.sampleSegment(tile, startCycle, seg.Cycles)
			if err != nil {
				return nil, err
			}
			h.Lane = lane
			h.IndexRead = indexNo
			out = append(out, *h)
		}
		startCycle += seg.Cycles
	}
	return out, nil
}

// sampleSegment decodes the cycles of one index segment and counts the
// concatenated index sequences. Reads failing the instrument filter are
// excluded from both numerator and denominator.
func (e *Engine) sampleSegment(tile bcl.TileUnit, startCycle, cycles int) (*Histogram, error) {
	var perCycle [][]bcl.Call
	for c := startCycle; c < startCycle+cycles; c++ {
		calls, err := e.dec.Decode(tile, c, e.cfg.SampleReadsPerTile)
		if err != nil {
			var miss *bcl.MissingCycleError
			if errors.As(err, &miss) {
				// In-progress run: sample what is there.
				e.log.Debug("cycle not yet written, truncating sample",
					"lane", tile.Lane, "tile", tile.Tile, "cycle", c)
				break
			}
			var corrupt *bcl.CorruptHeaderError
			if errors.As(err, &corrupt) {
				e.log.Warn("skipping corrupt cycle",
					"lane", tile.Lane, "tile", tile.Tile, "cycle", c, "reason", corrupt.Reason)
				continue
			}
			return nil, err
		}
		perCycle = append(perCycle, calls)
	}

	h := &Histogram{Counts: map[string]int{}}
	if len(perCycle) == 0 {
		return h, nil
	}

	n := len(perCycle[0])
	for _, calls := range perCycle {
		if len(calls) < n {
			n = len(calls)
		}
	}

	counts := make(map[string]int)
	total := 0
	seq := make([]byte, len(perCycle))
reads:
	for i := 0; i < n; i++ {
		for j, calls := range perCycle {
			if !calls[i].PassedFilter {
				continue reads
			}
			seq[j] = calls[i].Base
		}
		counts[string(seq)]++
		total++
	}

	h.SampleSize = total
	h.Counts = filter(counts, total, e.cfg.MinIndexFraction)
	return h, nil
}
