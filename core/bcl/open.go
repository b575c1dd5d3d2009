// core/bcl/open.go
package bcl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Open inspects the base-call tree of a run directory and constructs the
// decoder matching its encoding: raw per-record bytes, the same layout
// behind gzip, or the columnar multi-tile format.
func Open(root string) (Decoder, error) {
	baseCalls := filepath.Join(root, "Data", "Intensities", "BaseCalls")
	laneDirs, _ := filepath.Glob(filepath.Join(baseCalls, "L???"))
	if len(laneDirs) == 0 {
		return nil, fmt.Errorf("%w: no lane directories under %s", ErrUnsupportedFormat, baseCalls)
	}
	sort.Strings(laneDirs)
	first := laneDirs[0]

	if m, _ := filepath.Glob(filepath.Join(first, "C1.1", "*.cbcl")); len(m) > 0 {
		return &CBCLDecoder{baseCalls: baseCalls}, nil
	}
	if fi, err := os.Stat(filepath.Join(first, "C1.1")); err == nil && fi.IsDir() {
		if m, _ := filepath.Glob(filepath.Join(first, "C1.1", "s_*.bcl.gz")); len(m) > 0 {
			return &CompressedDecoder{paths: pathSet{baseCalls: baseCalls, perTile: true, suffix: ".bcl.gz"}}, nil
		}
		if m, _ := filepath.Glob(filepath.Join(first, "C1.1", "s_*.bcl")); len(m) > 0 {
			return &RawDecoder{paths: pathSet{baseCalls: baseCalls, perTile: true, suffix: ".bcl"}}, nil
		}
		return nil, fmt.Errorf("%w: empty cycle directory %s", ErrUnsupportedFormat, filepath.Join(first, "C1.1"))
	}
	for _, suffix := range []string{".bcl.bgzf", ".bcl.gz"} {
		if m, _ := filepath.Glob(filepath.Join(first, "*"+suffix)); len(m) > 0 {
			return &CompressedDecoder{paths: pathSet{baseCalls: baseCalls, suffix: suffix}}, nil
		}
	}
	if m, _ := filepath.Glob(filepath.Join(first, "*.bcl")); len(m) > 0 {
		return &RawDecoder{paths: pathSet{baseCalls: baseCalls, suffix: ".bcl"}}, nil
	}
	return nil, fmt.Errorf("%w: no base-call files under %s", ErrUnsupportedFormat, first)
}

// pathSet resolves (lane, tile, cycle) coordinates to file paths for the
// raw and compressed encodings. perTile selects the MiSeq-family layout
// (one file per tile and cycle under C<cycle>.1); otherwise one aggregated
// file per lane and cycle holds the whole lane as a single tile.
type pathSet struct {
	baseCalls string
	perTile   bool
	suffix    string
}

func (p *pathSet) laneDir(lane int) string {
	return filepath.Join(p.baseCalls, fmt.Sprintf("L%03d", lane))
}

func (p *pathSet) cyclePath(t TileUnit, cycle int) string {
	if p.perTile {
		return filepath.Join(p.laneDir(t.Lane), fmt.Sprintf("C%d.1", cycle),
			fmt.Sprintf("s_%d_%04d%s", t.Lane, t.Tile, p.suffix))
	}
	return filepath.Join(p.laneDir(t.Lane), fmt.Sprintf("%04d%s", cycle, p.suffix))
}

// cycleDirCount counts contiguous C<n>.1 directories from 1.
func cycleDirCount(laneDir string) int {
	n := 0
	for {
		fi, err := os.Stat(filepath.Join(laneDir, fmt.Sprintf("C%d.1", n+1)))
		if err != nil || !fi.IsDir() {
			return n
		}
		n++
	}
}

func (p *pathSet) tiles(lane int) ([]TileUnit, error) {
	dir := p.laneDir(lane)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("bcl: lane %d: %w", lane, err)
	}
	if !p.perTile {
		// One aggregated pseudo-tile; cycles are counted from the files.
		cycles := 0
		for {
			if _, err := os.Stat(filepath.Join(dir, fmt.Sprintf("%04d%s", cycles+1, p.suffix))); err != nil {
				break
			}
			cycles++
		}
		return []TileUnit{{Lane: lane, Tile: 1, Cycles: cycles}}, nil
	}

	cycles := cycleDirCount(dir)
	pattern := filepath.Join(dir, "C1.1", fmt.Sprintf("s_%d_*%s", lane, p.suffix))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bcl: lane %d: %w", lane, err)
	}
	var tiles []TileUnit
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), p.suffix)
		i := strings.LastIndexByte(name, '_')
		if i < 0 {
			continue
		}
		id, err := strconv.Atoi(name[i+1:])
		if err != nil {
			continue
		}
		tiles = append(tiles, TileUnit{Lane: lane, Tile: id, Cycles: cycles})
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Tile < tiles[j].Tile })
	return tiles, nil
}
