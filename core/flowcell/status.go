// core/flowcell/status.go
package flowcell

import "flowsync-core/rundir"

// DeriveStatus computes the sequencing status to report for a run.
//
// Run completeness (did the instrument finish, did every planned cycle
// produce data) and the remote status being final are two independent
// signals; conflating them once flagged perfectly fine runs as failed.
// A run that is merely still sequencing is always InProgress, and a read
// structure mismatch only fails a run the instrument itself finished.
func DeriveStatus(d *rundir.Descriptor, remote Status) Status {
	if remote.Final() {
		return remote
	}
	if d.RTAComplete {
		if len(d.PlannedReads) > 0 && !rundir.SegmentsEqual(d.CurrentReads, d.PlannedReads) {
			return StatusFailed
		}
		return StatusComplete
	}
	return StatusInProgress
}
