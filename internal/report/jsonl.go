// internal/report/jsonl.go
package report

import (
	"encoding/json"
	"io"
)

func init() { Register("jsonl", writeJSONL) }

// writeJSONL streams each outcome as one JSON line.
func writeJSONL(w io.Writer, outcomes []Outcome) error {
	enc := json.NewEncoder(w)
	for _, o := range outcomes {
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
