package pxc

import "fmt"

// MeasEntry is one (instrument, parameter) pair a measurement step reads.
type MeasEntry struct {
	Inst  InstrumentRef
	Param string
}

// SMeas reads N parameters into one Record stamped with a fresh Timestamp
// and emits one Write Line request (spec §4.4.2).
type SMeas struct {
	base
	Entries []MeasEntry
}

// NewSMeas constructs a SingleMeasurement step over entries.
func NewSMeas(entries []MeasEntry) *SMeas {
	s := &SMeas{base: newBase(KindSMeas), Entries: entries}
	s.title = enumerateTitle(0, "Measure")
	return s
}

// UpdateTitle implements Step.
func (s *SMeas) UpdateTitle(seq []Step) {
	s.title = enumerateTitle(s.pos, "Measure")
}

// MeasurementHeaders implements Step.
func (s *SMeas) MeasurementHeaders() []string {
	var out []string
	for _, e := range s.Entries {
		out = append(out, staticHeaders(e.Inst, e.Param)...)
	}
	return out
}

// BindInstrumentRefs implements Step.
func (s *SMeas) BindInstrumentRefs(byName map[string]InstrumentRef) {
	for i := range s.Entries {
		rebindRef(&s.Entries[i].Inst, byName)
	}
}

// Copy implements Step.
func (s *SMeas) Copy() Step {
	cp := *s
	cp.Entries = append([]MeasEntry{}, s.Entries...)
	return &cp
}

// Describe implements Step.
func (s *SMeas) Describe() string {
	out := fmt.Sprintf("    enabled = %s\n    count = %d\n", formatBool(s.enabled), len(s.Entries))
	for i, e := range s.Entries {
		out += fmt.Sprintf("    inst%d = %s\n    param%d = %s\n", i, e.Inst.Name, i, e.Param)
	}
	return out
}

// Execute reads every entry into one Record and emits it (spec §4.4.2). A
// parameter that fails to resolve or read is logged and its column is left
// missing in the emitted row, rather than aborting the whole measurement.
func (s *SMeas) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	if rc.Abort.IsRaised() {
		return 0, false, ErrAbort
	}

	rec := NewRecord()
	rc.Status.Publish([4]string{"Measuring", s.Title(), "", ""})

	for _, e := range s.Entries {
		inst, err := resolveInst("SMeas", e.Inst, app)
		if err != nil {
			rc.Logger.Errorf("SMeas: %v", err)
			continue
		}
		if err := recordMeasurement(rc, inst, e.Param, rec); err != nil {
			rc.Logger.Errorf("SMeas %s.%s: %v", inst.Name, e.Param, err)
		}
	}

	rc.Status.PublishLatest(rec.values)
	rc.emitRecord(app.GetVarsList(), rec)
	return 0, false, nil
}
