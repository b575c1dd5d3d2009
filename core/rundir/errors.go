// core/rundir/errors.go
package rundir

import (
	"errors"
	"fmt"
)

// ErrUnknownLayout is returned when a directory matches none of the known
// instrument folder conventions.
var ErrUnknownLayout = errors.New("rundir: unknown folder layout")

// ParseError reports a missing or malformed field in one of the run
// metadata documents. It is fatal for that run directory only.
type ParseError struct {
	Doc string // document name, e.g. "RunInfo.xml"
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rundir: parse %s: %s", e.Doc, e.Msg)
}

func parseErrf(doc, format string, args ...interface{}) error {
	return &ParseError{Doc: doc, Msg: fmt.Sprintf(format, args...)}
}
