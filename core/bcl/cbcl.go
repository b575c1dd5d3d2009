// core/bcl/cbcl.go
package bcl

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// CBCLDecoder reads the columnar encoding: one file per (lane, cycle,
// surface) covering many tiles. The file starts with a header —
//
//	u16 format version (1)
//	u32 header size in bytes
//	u8  bits per base code (2)
//	u8  bits per quality code (2 or 6)
//	u32 quality-bin count, then (u32 code, u32 qscore) per bin
//	u32 tile count, then (u32 tile id, u32 record count) per tile
//	u8  filter-mask flag
//
// — followed by a u64 byte-offset index (one entry per tile) and the tile
// blocks themselves: bit-packed records, low bits first, plus one filter
// bit per read when the flag is set. Quality bin zero marks a no-call.
type CBCLDecoder struct {
	baseCalls string
}

type cbclTile struct {
	id      uint32
	records uint32
}

type cbclHeader struct {
	bitsPerBase uint8
	bitsPerQual uint8
	qualByCode  []byte // indexed by quality code
	tiles       []cbclTile
	hasFilter   bool
	offsets     []uint64
}

func (d *CBCLDecoder) laneDir(lane int) string {
	return filepath.Join(d.baseCalls, fmt.Sprintf("L%03d", lane))
}

// surfaceFiles lists the columnar files of one lane and cycle in surface
// order.
func (d *CBCLDecoder) surfaceFiles(lane, cycle int) []string {
	pattern := filepath.Join(d.laneDir(lane), fmt.Sprintf("C%d.1", cycle),
		fmt.Sprintf("L%03d_*.cbcl", lane))
	m, _ := filepath.Glob(pattern)
	sort.Strings(m)
	return m
}

func (d *CBCLDecoder) Tiles(lane int) ([]TileUnit, error) {
	dir := d.laneDir(lane)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("bcl: lane %d: %w", lane, err)
	}
	cycles := cycleDirCount(dir)
	var tiles []TileUnit
	for _, path := range d.surfaceFiles(lane, 1) {
		h, err := readCBCLHeader(path)
		if err != nil {
			return nil, err
		}
		for _, t := range h.tiles {
			tiles = append(tiles, TileUnit{Lane: lane, Tile: int(t.id), Cycles: cycles})
		}
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Tile < tiles[j].Tile })
	return tiles, nil
}

func (d *CBCLDecoder) Decode(t TileUnit, cycle, limit int) ([]Call, error) {
	files := d.surfaceFiles(t.Lane, cycle)
	if len(files) == 0 {
		return nil, &MissingCycleError{Lane: t.Lane, Tile: t.Tile, Cycle: cycle}
	}
	for _, path := range files {
		calls, err := decodeCBCLTile(path, uint32(t.Tile), limit)
		if err != nil {
			return nil, err
		}
		if calls != nil {
			return calls, nil
		}
	}
	// The cycle exists but no surface file carries this tile yet.
	return nil, &MissingCycleError{Lane: t.Lane, Tile: t.Tile, Cycle: cycle}
}

func readCBCLHeader(path string) (*cbclHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, _, err := parseCBCLHeader(f, path)
	return h, err
}

func parseCBCLHeader(f *os.File, path string) (*cbclHeader, int64, error) {
	corrupt := func(reason string) (*cbclHeader, int64, error) {
		return nil, 0, &CorruptHeaderError{Path: path, Reason: reason}
	}

	var fixed [8]byte
	if _, err := io.ReadFull(f, fixed[:]); err != nil {
		return corrupt("short header")
	}
	version := binary.LittleEndian.Uint16(fixed[0:2])
	if version != 1 {
		return nil, 0, fmt.Errorf("%w: %s: columnar format version %d", ErrUnsupportedFormat, path, version)
	}
	headerSize := binary.LittleEndian.Uint32(fixed[2:6])
	h := &cbclHeader{bitsPerBase: fixed[6], bitsPerQual: fixed[7]}
	if h.bitsPerBase != 2 {
		return corrupt(fmt.Sprintf("unsupported bits per base %d", h.bitsPerBase))
	}
	if h.bitsPerQual != 2 && h.bitsPerQual != 6 {
		return corrupt(fmt.Sprintf("unsupported bits per quality %d", h.bitsPerQual))
	}

	var count [4]byte
	if _, err := io.ReadFull(f, count[:]); err != nil {
		return corrupt("short quality-bin table")
	}
	nBins := binary.LittleEndian.Uint32(count[:])
	maxCode := uint32(1) << h.bitsPerQual
	if nBins > maxCode {
		return corrupt(fmt.Sprintf("%d quality bins for %d-bit codes", nBins, h.bitsPerQual))
	}
	h.qualByCode = make([]byte, maxCode)
	if h.bitsPerQual == 6 && nBins == 0 {
		// Identity mapping: the code is the quality.
		for i := range h.qualByCode {
			h.qualByCode[i] = byte(i)
		}
	}
	bins := make([]byte, 8*nBins)
	if _, err := io.ReadFull(f, bins); err != nil {
		return corrupt("short quality-bin table")
	}
	for i := uint32(0); i < nBins; i++ {
		code := binary.LittleEndian.Uint32(bins[8*i:])
		qual := binary.LittleEndian.Uint32(bins[8*i+4:])
		if code >= maxCode {
			return corrupt(fmt.Sprintf("quality bin code %d out of range", code))
		}
		h.qualByCode[code] = byte(qual)
	}

	if _, err := io.ReadFull(f, count[:]); err != nil {
		return corrupt("short tile table")
	}
	nTiles := binary.LittleEndian.Uint32(count[:])
	if nTiles == 0 || nTiles > 1<<20 {
		return corrupt(fmt.Sprintf("implausible tile count %d", nTiles))
	}
	table := make([]byte, 8*nTiles)
	if _, err := io.ReadFull(f, table); err != nil {
		return corrupt("short tile table")
	}
	h.tiles = make([]cbclTile, nTiles)
	for i := uint32(0); i < nTiles; i++ {
		h.tiles[i] = cbclTile{
			id:      binary.LittleEndian.Uint32(table[8*i:]),
			records: binary.LittleEndian.Uint32(table[8*i+4:]),
		}
	}

	var flag [1]byte
	if _, err := io.ReadFull(f, flag[:]); err != nil {
		return corrupt("short filter flag")
	}
	h.hasFilter = flag[0] != 0

	wantHeader := uint32(8 + 4 + 8*nBins + 4 + 8*nTiles + 1)
	if headerSize != wantHeader {
		return corrupt(fmt.Sprintf("header size %d, computed %d", headerSize, wantHeader))
	}

	index := make([]byte, 8*nTiles)
	if _, err := io.ReadFull(f, index); err != nil {
		return corrupt("short offset index")
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	size := uint64(fi.Size())
	h.offsets = make([]uint64, nTiles)
	for i := uint32(0); i < nTiles; i++ {
		off := binary.LittleEndian.Uint64(index[8*i:])
		if off > size {
			return corrupt(fmt.Sprintf("tile offset %d beyond file size %d", off, size))
		}
		h.offsets[i] = off
	}
	return h, int64(wantHeader) + int64(8*nTiles), nil
}

// decodeCBCLTile returns the calls for one tile, or (nil, nil) when the
// file does not carry that tile.
func decodeCBCLTile(path string, tileID uint32, limit int) ([]Call, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, _, err := parseCBCLHeader(f, path)
	if err != nil {
		return nil, err
	}
	for i, t := range h.tiles {
		if t.id != tileID {
			continue
		}
		return readCBCLBlock(f, path, h, i, limit)
	}
	return nil, nil
}

func readCBCLBlock(f *os.File, path string, h *cbclHeader, tileIdx, limit int) ([]Call, error) {
	t := h.tiles[tileIdx]
	records := int(t.records)
	bitsPer := int(h.bitsPerBase + h.bitsPerQual)
	packed := (records*bitsPer + 7) / 8

	if _, err := f.Seek(int64(h.offsets[tileIdx]), io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, packed)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, &CorruptHeaderError{Path: path, Reason: fmt.Sprintf("truncated block for tile %d", t.id)}
	}
	var mask []byte
	if h.hasFilter {
		mask = make([]byte, (records+7)/8)
		if _, err := io.ReadFull(f, mask); err != nil {
			return nil, &CorruptHeaderError{Path: path, Reason: fmt.Sprintf("truncated filter mask for tile %d", t.id)}
		}
	}

	n := records
	if limit > 0 && n > limit {
		n = limit
	}
	calls := make([]Call, n)
	for i := 0; i < n; i++ {
		var rec byte
		if bitsPer == 4 {
			b := buf[i>>1]
			if i&1 == 1 {
				b >>= 4
			}
			rec = b & 0x0f
		} else {
			rec = buf[i]
		}
		baseCode := rec & 3
		qualCode := rec >> 2
		qual := h.qualByCode[qualCode]

		c := Call{Base: baseTable[baseCode], Qual: qual, PassedFilter: true}
		if qual == 0 {
			c.Base = 'N'
		}
		if mask != nil {
			c.PassedFilter = mask[i>>3]>>(uint(i)&7)&1 == 1
		}
		calls[i] = c
	}
	return calls, nil
}
