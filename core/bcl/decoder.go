// core/bcl/decoder.go
package bcl

import (
	"errors"
	"fmt"
)

// Call is one decoded base call.
type Call struct {
	Base         byte // 'A', 'C', 'G', 'T' or 'N' for a no-call
	Qual         byte // Phred-scaled quality, 0 for a no-call
	PassedFilter bool
}

// TileUnit identifies one decodable tile of a lane together with the cycle
// range that has produced data for it. Immutable once constructed by a
// decoder's source inspection.
type TileUnit struct {
	Lane   int
	Tile   int
	Cycles int // cycles 1..Cycles are available
}

// Decoder yields base calls for (tile, cycle) coordinates. Implementations
// are stateless between calls: identical file bytes always decode to
// identical call sequences.
type Decoder interface {
	// Tiles inspects the sources for one lane, in lane order.
	Tiles(lane int) ([]TileUnit, error)
	// Decode returns the calls of one tile at one cycle. limit > 0 caps the
	// number of records read; 0 reads all of them.
	Decode(t TileUnit, cycle, limit int) ([]Call, error)
}

// ErrUnsupportedFormat is returned when a run directory holds no base-call
// encoding this package understands. Fatal for the whole run directory.
var ErrUnsupportedFormat = errors.New("bcl: unsupported base-call format")

// CorruptHeaderError reports an unreadable file header or truncated
// payload. Fatal only for the affected tile/cycle: callers skip and log.
type CorruptHeaderError struct {
	Path   string
	Reason string
}

func (e *CorruptHeaderError) Error() string {
	return fmt.Sprintf("bcl: corrupt %s: %s", e.Path, e.Reason)
}

// MissingCycleError reports that a cycle has not produced data yet. It is
// the expected signal of an in-progress run and is never fatal: sampling
// simply proceeds with the cycles available.
type MissingCycleError struct {
	Lane  int
	Tile  int
	Cycle int
}

func (e *MissingCycleError) Error() string {
	return fmt.Sprintf("bcl: lane %d tile %d: no data for cycle %d", e.Lane, e.Tile, e.Cycle)
}

var baseTable = [4]byte{'A', 'C', 'G', 'T'}

// callFromByte decodes the classic one-byte record: 2-bit base code in the
// low bits, 6-bit quality above. The zero byte is the no-call sentinel.
func callFromByte(b byte) Call {
	if b == 0 {
		return Call{Base: 'N', Qual: 0, PassedFilter: true}
	}
	return Call{Base: baseTable[b&3], Qual: b >> 2, PassedFilter: true}
}
