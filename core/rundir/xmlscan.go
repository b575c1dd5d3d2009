// core/rundir/xmlscan.go
package rundir

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// The instrument XML documents nest their fields at vendor-specific depths
// (RunParameters/Setup/..., RunParameters/...). Rather than one struct per
// vendor shape, these helpers scan the token stream for named elements
// anywhere in the document, first occurrence wins.

// collectText returns the direct character data of the first element with
// each of the given local names.
func collectText(data []byte, names ...string) (map[string]string, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make(map[string]string, len(names))

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := se.Name.Local
		if !want[name] {
			continue
		}
		if _, seen := out[name]; seen {
			if err := dec.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		var sb strings.Builder
		depth := 1
		for depth > 0 {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch tt := t.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				depth--
			case xml.CharData:
				if depth == 1 {
					sb.Write(tt)
				}
			}
		}
		out[name] = strings.TrimSpace(sb.String())
	}
}

// xmlRead is a <Read>/<RunInfoRead> element carrying a read description.
type xmlRead struct {
	Number    int
	NumCycles int
	IsIndex   bool
}

// collectReads gathers every Read or RunInfoRead element that carries a
// NumCycles attribute, in document order. Zero-cycle entries are dropped
// (some instruments emit them for unused index reads).
func collectReads(data []byte) ([]xmlRead, error) {
	var reads []xmlRead
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return reads, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "Read" && se.Name.Local != "RunInfoRead" {
			continue
		}
		var r xmlRead
		hasCycles := false
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Number":
				r.Number = atoiOr(a.Value, 0)
			case "NumCycles":
				r.NumCycles = atoiOr(a.Value, -1)
				hasCycles = r.NumCycles >= 0
			case "IsIndexedRead":
				r.IsIndex = a.Value == "Y" || a.Value == "y"
			}
		}
		if hasCycles && r.NumCycles > 0 {
			reads = append(reads, r)
		}
	}
}

func atoiOr(s string, def int) int {
	n := 0
	if s == "" {
		return def
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
