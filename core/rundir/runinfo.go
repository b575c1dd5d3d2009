// core/rundir/runinfo.go
package rundir

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"time"
)

// runInfo is the parsed content of RunInfo.xml.
type runInfo struct {
	RunID      string
	RunNumber  int
	Flowcell   string
	Instrument string
	Date       string // normalized to yyyy-mm-dd
	LaneCount  int
	Reads      []ReadSegment
}

type runInfoXML struct {
	Run struct {
		ID         string `xml:"Id,attr"`
		Number     string `xml:"Number,attr"`
		Flowcell   string `xml:"Flowcell"`
		Instrument string `xml:"Instrument"`
		Date       string `xml:"Date"`
		Layout     struct {
			LaneCount string `xml:"LaneCount,attr"`
		} `xml:"FlowcellLayout"`
	} `xml:"Run"`
}

const runInfoDoc = "RunInfo.xml"

// Instruments have written the run date in several shapes over the RTA
// generations; all are normalized to ISO.
var dateLayouts = []string{
	"060102",
	"1/2/2006 3:04:05 PM",
	time.RFC3339,
	"2006-01-02",
}

func normalizeDate(s string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func parseRunInfo(data []byte) (*runInfo, error) {
	var doc runInfoXML
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, parseErrf(runInfoDoc, "malformed XML: %v", err)
	}
	if doc.Run.Flowcell == "" {
		return nil, parseErrf(runInfoDoc, "missing Flowcell element")
	}
	if doc.Run.Instrument == "" {
		return nil, parseErrf(runInfoDoc, "missing Instrument element")
	}
	number, err := strconv.Atoi(doc.Run.Number)
	if err != nil {
		return nil, parseErrf(runInfoDoc, "missing or malformed Run Number attribute %q", doc.Run.Number)
	}
	laneCount, err := strconv.Atoi(doc.Run.Layout.LaneCount)
	if err != nil || laneCount < 1 {
		return nil, parseErrf(runInfoDoc, "missing or malformed FlowcellLayout LaneCount %q", doc.Run.Layout.LaneCount)
	}
	date, ok := normalizeDate(doc.Run.Date)
	if !ok {
		return nil, parseErrf(runInfoDoc, "unrecognized Date %q", doc.Run.Date)
	}

	xr, err := collectReads(data)
	if err != nil {
		return nil, parseErrf(runInfoDoc, "malformed Reads: %v", err)
	}
	if len(xr) == 0 {
		return nil, parseErrf(runInfoDoc, "no Read elements")
	}
	reads := make([]ReadSegment, len(xr))
	for i, r := range xr {
		number := r.Number
		if number == 0 {
			number = i + 1
		}
		reads[i] = ReadSegment{Number: number, Cycles: r.NumCycles, IsIndex: r.IsIndex}
	}

	return &runInfo{
		RunID:      doc.Run.ID,
		RunNumber:  number,
		Flowcell:   doc.Run.Flowcell,
		Instrument: doc.Run.Instrument,
		Date:       date,
		LaneCount:  laneCount,
		Reads:      reads,
	}, nil
}
