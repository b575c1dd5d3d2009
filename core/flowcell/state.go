// core/flowcell/state.go
package flowcell

import (
	"context"
	"errors"
	"fmt"

	"flowsync-core/histogram"
	"flowsync-core/rundir"
)

// Key identifies a flow cell in the tracking service.
type Key struct {
	Instrument string
	RunNumber  int
	Flowcell   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s", k.Instrument, k.RunNumber, k.Flowcell)
}

// KeyOf derives the identity key from a run descriptor.
func KeyOf(d *rundir.Descriptor) Key {
	return Key{Instrument: d.Instrument, RunNumber: d.RunNumber, Flowcell: d.Flowcell}
}

// Status is the sequencing status tracked by the remote service.
type Status string

const (
	StatusInitial    Status = "initial"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
	StatusClosed     Status = "closed"
)

// Final reports whether the status terminates the normal update flow.
func (s Status) Final() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusClosed
}

// State is the remote record for one flow cell, observed read-only.
type State struct {
	UUID           string
	Status         Status
	HistogramCount int // index histogram entries already stored remotely
	NumLanes       int
	PlannedReads   string
}

// ErrNotFound is returned by Service.Find when no record matches the key.
var ErrNotFound = errors.New("flowcell: not found")

// UnavailableError wraps a transport-level failure. Retrying is the
// caller's collaborator's business, never the core's.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("flowcell: service unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError reports that the service refused a request. Fatal for the
// current decision.
type RejectedError struct {
	Code int
	Msg  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("flowcell: service rejected request (%d): %s", e.Code, e.Msg)
}

// Service is the remote tracking API consumed by the reconciliation flow.
// Implementations must be safe to share across sequential calls; calls for
// one flow cell are never issued concurrently.
type Service interface {
	Find(ctx context.Context, key Key) (*State, error)
	Create(ctx context.Context, d *rundir.Descriptor, status Status) (*State, error)
	Update(ctx context.Context, uuid string, d *rundir.Descriptor, status Status) (*State, error)
	// SubmitHistograms overwrites any prior entries for the same lane and
	// index read, making re-submission idempotent.
	SubmitHistograms(ctx context.Context, uuid string, hs []histogram.Histogram) error
}
