// core/rundir/runparams.go
package rundir

import (
	"strconv"
	"strings"
)

// runParams is the parsed content of runParameters.xml / RunParameters.xml.
type runParams struct {
	PlannedReads   []ReadSegment
	RTAVersionFull string
	RTAVersion     int // major
	RunNumber      int
	FlowcellSlot   string
	ExperimentName string
}

// paramsDoc returns the parameter document filename for a layout. The
// capitalization is vendor-specific and load-bearing.
func paramsDoc(layout Layout) string {
	if layout == LayoutMiSeq {
		return "runParameters.xml"
	}
	return "RunParameters.xml"
}

// parseRunParams handles both parameter document shapes: the MiSeq family
// lists Read elements like RunInfo.xml does, the MiniSeq/NovaSeq family
// spells the plan out in PlannedRead*/PlannedIndex* elements.
func parseRunParams(data []byte, layout Layout) (*runParams, error) {
	doc := paramsDoc(layout)

	text, err := collectText(data,
		"RTAVersion", "RtaVersion", "ScanNumber", "RunNumber",
		"FCPosition", "ExperimentName",
		"PlannedRead1Cycles", "PlannedRead2Cycles",
		"PlannedIndex1ReadCycles", "PlannedIndex2ReadCycles",
	)
	if err != nil {
		return nil, parseErrf(doc, "malformed XML: %v", err)
	}

	p := &runParams{FlowcellSlot: "A", ExperimentName: text["ExperimentName"]}

	// RTA 3 spells the element RtaVersion and prefixes the value with "v".
	full := text["RtaVersion"]
	if full != "" {
		full = strings.TrimPrefix(full, "v")
	} else {
		full = text["RTAVersion"]
	}
	if full == "" {
		return nil, parseErrf(doc, "missing RTAVersion element")
	}
	major, err := strconv.Atoi(strings.SplitN(full, ".", 2)[0])
	if err != nil {
		return nil, parseErrf(doc, "malformed RTAVersion %q", full)
	}
	p.RTAVersionFull = full
	p.RTAVersion = major

	switch layout {
	case LayoutMiSeq:
		xr, err := collectReads(data)
		if err != nil {
			return nil, parseErrf(doc, "malformed Reads: %v", err)
		}
		for i, r := range xr {
			number := r.Number
			if number == 0 {
				number = i + 1
			}
			p.PlannedReads = append(p.PlannedReads, ReadSegment{Number: number, Cycles: r.NumCycles, IsIndex: r.IsIndex})
		}
		if n, err := strconv.Atoi(text["ScanNumber"]); err == nil {
			p.RunNumber = n
		}
		if pos := text["FCPosition"]; pos != "" {
			p.FlowcellSlot = pos
		}
	default:
		// Physical sequencing order: read 1, index 1, index 2, read 2.
		planned := []struct {
			key     string
			isIndex bool
		}{
			{"PlannedRead1Cycles", false},
			{"PlannedIndex1ReadCycles", true},
			{"PlannedIndex2ReadCycles", true},
			{"PlannedRead2Cycles", false},
		}
		number := 1
		for _, pl := range planned {
			v, ok := text[pl.key]
			if !ok || v == "" {
				continue
			}
			cycles, err := strconv.Atoi(v)
			if err != nil {
				return nil, parseErrf(doc, "malformed %s %q", pl.key, v)
			}
			if cycles == 0 {
				continue
			}
			p.PlannedReads = append(p.PlannedReads, ReadSegment{Number: number, Cycles: cycles, IsIndex: pl.isIndex})
			number++
		}
		if n, err := strconv.Atoi(text["RunNumber"]); err == nil {
			p.RunNumber = n
		}
	}

	return p, nil
}
