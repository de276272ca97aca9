package pxc

import (
	"fmt"
	"time"
)

// Wait is a bare wait: either a coarse-polled time delay, or a condition
// wait identical in semantics to CMeas's condition mode but with only the
// wait parameter logged (spec §4.4.5).
type Wait struct {
	base

	Wait    WaitMode
	Timeout time.Duration
	Poll    time.Duration

	WaitInst   InstrumentRef
	WaitParam  string
	Target     float64
	Stability  float64
	StableTime time.Duration
}

// NewWait constructs a Wait step.
func NewWait() *Wait {
	w := &Wait{base: newBase(KindWait), Poll: MinPollInterval}
	w.title = enumerateTitle(0, "Wait")
	return w
}

// UpdateTitle implements Step.
func (w *Wait) UpdateTitle(seq []Step) {
	w.title = enumerateTitle(w.pos, "Wait")
}

// MeasurementHeaders implements Step: only the wait parameter, and only in
// condition mode (spec §4.4.5).
func (w *Wait) MeasurementHeaders() []string {
	if w.Wait != WaitCondition {
		return nil
	}
	return staticHeaders(w.WaitInst, w.WaitParam)
}

// BindInstrumentRefs implements Step.
func (w *Wait) BindInstrumentRefs(byName map[string]InstrumentRef) {
	rebindRef(&w.WaitInst, byName)
}

// Copy implements Step.
func (w *Wait) Copy() Step {
	cp := *w
	return &cp
}

// Describe implements Step.
func (w *Wait) Describe() string {
	out := fmt.Sprintf("    enabled = %s\n    wait = %s\n    timeout = %s\n    poll = %s\n",
		formatBool(w.enabled), w.Wait, formatSeconds(w.Timeout), formatSeconds(w.Poll))
	out += fmt.Sprintf("    waitInst = %s\n    waitParam = %s\n    target = %v\n    stability = %v\n    stableTime = %s\n",
		w.WaitInst.Name, w.WaitParam, w.Target, w.Stability, formatSeconds(w.StableTime))
	return out
}

// Execute blocks until the time or condition termination rule is satisfied
// (spec §4.4.5), checking Abort before every sleep and every record.
func (w *Wait) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	if rc.Abort.IsRaised() {
		return 0, false, ErrAbort
	}
	rc.Status.Publish([4]string{"Waiting", w.Title(), "", ""})

	err := runWait(rc, app, w.Wait, w.Poll, w.Timeout, w.WaitInst, w.WaitParam, w.Target, w.Stability, w.StableTime)
	if err != nil {
		if IsCode(err, CodeAbortRequested) {
			return 0, false, ErrAbort
		}
		return 0, false, err
	}
	return 0, false, nil
}
