package ntuple

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/ntuple/pkg/metrics"
)

// NextEvent loads the next event and runs the registered functions. It
// returns false once the dataset is exhausted, leaving every column as it
// was.
func (r *Reader) NextEvent() bool {
	return r.goToEvent(r.nevt)
}

// GoToEvent loads the event with 0-based index i and runs the registered
// functions. An index outside [0, GetNEntries()) returns false and changes
// nothing.
func (r *Reader) GoToEvent(i int) bool {
	return r.goToEvent(i)
}

// DisableUpdate stops running registered functions on later advances.
// Columns are still refreshed from the dataset.
func (r *Reader) DisableUpdate() {
	r.updateDisabled = true
}

func (r *Reader) goToEvent(i int) bool {
	if r.closed || i < 0 || i >= r.ds.NumEntries() {
		return false
	}

	if err := r.ds.Load(i); err != nil {
		r.log.Error("failed to load event", zap.Int("event", i+1), zap.Error(err))
		return false
	}

	r.nevt = i + 1
	r.evtProcessed++
	r.started = true
	r.metrics.EventProcessed()

	if !r.updateDisabled {
		r.calculateDerivedVariables()
	}
	return true
}

// calculateDerivedVariables runs every registered function in order
func (r *Reader) calculateDerivedVariables() {
	if len(r.updaters) == 0 {
		return
	}
	timer := metrics.NewTimer("update")
	for _, u := range r.updaters {
		u.Update(r)
	}
	r.metrics.ObserveUpdate(timer.Stop())
}
