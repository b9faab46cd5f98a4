package fleetapi

import (
	"sync"
	"time"
)

// FailureRecord is the diagnostic snapshot of a failed request.
type FailureRecord struct {
	RequestID string        `json:"requestId"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    OutcomeStatus `json:"status"`
	Failure   Failure       `json:"failure"`
	Attempts  int           `json:"attempts"`
	Time      time.Time     `json:"time"`
}

// Diagnostics captures the most recent failure and running outcome counts
// for support tooling. Each Executor owns its own Diagnostics, so concurrent
// executors never trample each other's state.
type Diagnostics struct {
	mu          sync.Mutex
	lastFailure *FailureRecord
	counts      map[OutcomeStatus]int
}

func newDiagnostics() *Diagnostics {
	return &Diagnostics{
		counts: make(map[OutcomeStatus]int),
	}
}

// record folds one outcome into the diagnostic state. A successful outcome
// clears the last failure, so LastFailure always reflects the most recent
// execution.
func (d *Diagnostics) record(desc Descriptor, o Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.counts[o.Status]++
	if o.Failure == nil {
		if o.Status != StatusDryRun {
			d.lastFailure = nil
		}
		return
	}
	d.lastFailure = &FailureRecord{
		RequestID: o.RequestID,
		Method:    desc.Method,
		Path:      desc.Path,
		Status:    o.Status,
		Failure:   *o.Failure,
		Attempts:  o.Attempts,
		Time:      time.Now().UTC(),
	}
}

// LastFailure returns the most recent failure, if any request has failed.
func (d *Diagnostics) LastFailure() (FailureRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastFailure == nil {
		return FailureRecord{}, false
	}
	return *d.lastFailure, true
}

// Counts returns a copy of the outcome counts by status.
func (d *Diagnostics) Counts() map[OutcomeStatus]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[OutcomeStatus]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
