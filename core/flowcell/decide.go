// core/flowcell/decide.go
package flowcell

// The reconciliation decisions are pure functions of the observed remote
// state and the invocation flags; nothing here performs I/O. Transitions
// are computed per invocation, never stored.

// MetaAction is the metadata reconciliation verb.
type MetaAction int

const (
	MetaSkip MetaAction = iota
	MetaRegister
	MetaUpdate
)

func (a MetaAction) String() string {
	switch a {
	case MetaRegister:
		return "register"
	case MetaUpdate:
		return "update"
	default:
		return "skip"
	}
}

// AdapterAction is the adapter-analysis verb.
type AdapterAction int

const (
	AdapterSkip AdapterAction = iota
	AdapterAnalyze
)

func (a AdapterAction) String() string {
	if a == AdapterAnalyze {
		return "analyze"
	}
	return "skip"
}

// Flags are the resolved invocation switches that steer reconciliation.
type Flags struct {
	Register        bool // allow registering unknown flow cells
	Update          bool // allow updating non-final flow cells
	UpdateIfFinal   bool // update even when the remote status is final
	AnalyzeAdapters bool // allow adapter analysis at all
	ForceAnalyze    bool // re-analyze despite complete remote histograms
}

// MetaDecision is the metadata verdict with its reason.
type MetaDecision struct {
	Action MetaAction
	Reason string
}

// AdapterDecision is the adapter-analysis verdict with its reason.
type AdapterDecision struct {
	Action AdapterAction
	Reason string
}

// DecideMetadata computes the metadata action for the observed state.
// st == nil means no record matched the identity key.
func DecideMetadata(st *State, f Flags) MetaDecision {
	if st == nil {
		if !f.Register {
			return MetaDecision{MetaSkip, "registration disabled"}
		}
		return MetaDecision{MetaRegister, "no record for identity key"}
	}
	if st.Status.Final() {
		if f.UpdateIfFinal {
			return MetaDecision{MetaUpdate, "update forced despite final status"}
		}
		return MetaDecision{MetaSkip, "status " + string(st.Status) + " is final"}
	}
	if !f.Update {
		return MetaDecision{MetaSkip, "update disabled"}
	}
	return MetaDecision{MetaUpdate, "status " + string(st.Status) + " is not final"}
}

// ExpectedHistograms is the completeness target: one histogram per lane
// and index segment.
func ExpectedHistograms(laneCount, indexSegments int) int {
	return laneCount * indexSegments
}

// DecideAdapters computes the adapter-analysis action. expected is the
// ExpectedHistograms value for the run.
func DecideAdapters(st *State, expected int, f Flags) AdapterDecision {
	if !f.AnalyzeAdapters {
		return AdapterDecision{AdapterSkip, "adapter analysis disabled"}
	}
	if st == nil {
		return AdapterDecision{AdapterSkip, "flow cell not registered"}
	}
	if expected == 0 {
		return AdapterDecision{AdapterSkip, "run has no index reads"}
	}
	if st.HistogramCount == expected && !f.ForceAnalyze {
		return AdapterDecision{AdapterSkip, "remote histograms already complete"}
	}
	return AdapterDecision{AdapterAnalyze, "remote histograms incomplete or re-analysis forced"}
}
