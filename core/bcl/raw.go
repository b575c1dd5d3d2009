// core/bcl/raw.go
package bcl

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// RawDecoder reads the uncompressed per-record encoding: a little-endian
// u32 record count followed by one byte per read.
type RawDecoder struct {
	paths pathSet
}

func (d *RawDecoder) Tiles(lane int) ([]TileUnit, error) { return d.paths.tiles(lane) }

func (d *RawDecoder) Decode(t TileUnit, cycle, limit int) ([]Call, error) {
	path := d.paths.cyclePath(t, cycle)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingCycleError{Lane: t.Lane, Tile: t.Tile, Cycle: cycle}
		}
		return nil, err
	}
	defer f.Close()
	return readRecordBlock(f, path, limit)
}

// CompressedDecoder reads the identical logical layout wrapped in a
// (possibly multi-member) gzip stream, as written for the bgzf variants.
type CompressedDecoder struct {
	paths pathSet
}

func (d *CompressedDecoder) Tiles(lane int) ([]TileUnit, error) { return d.paths.tiles(lane) }

func (d *CompressedDecoder) Decode(t TileUnit, cycle, limit int) ([]Call, error) {
	path := d.paths.cyclePath(t, cycle)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingCycleError{Lane: t.Lane, Tile: t.Tile, Cycle: cycle}
		}
		return nil, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, &CorruptHeaderError{Path: path, Reason: "bad gzip stream: " + err.Error()}
	}
	defer gz.Close()
	return readRecordBlock(gz, path, limit)
}

// readRecordBlock decodes the shared record layout from an already
// transparent reader.
func readRecordBlock(r io.Reader, path string, limit int) ([]Call, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, &CorruptHeaderError{Path: path, Reason: "short record count"}
	}
	n := int(binary.LittleEndian.Uint32(head[:]))
	if limit > 0 && n > limit {
		n = limit
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &CorruptHeaderError{Path: path, Reason: "truncated payload"}
	}
	calls := make([]Call, n)
	for i, b := range buf {
		calls[i] = callFromByte(b)
	}
	return calls, nil
}
