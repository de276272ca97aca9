package pxc

import (
	"fmt"
	"strconv"
	"strings"
)

// SetEntry is one (instrument, parameter, value) triple a Set step writes,
// in declaration order (spec §4.4.1). Value is the raw user/editor input:
// float text for continuous, a wire token or label for discrete, ignored
// for action.
type SetEntry struct {
	Inst  InstrumentRef
	Param string
	Value string
}

// Set writes up to N (instrument, parameter, value) triples and produces no
// file record (spec §4.4.1).
type Set struct {
	base
	Entries []SetEntry
}

// NewSet constructs a Set step over entries.
func NewSet(entries []SetEntry) *Set {
	s := &Set{base: newBase(KindSet), Entries: entries}
	s.title = enumerateTitle(0, "Set")
	return s
}

// UpdateTitle implements Step.
func (s *Set) UpdateTitle(seq []Step) {
	s.title = enumerateTitle(s.pos, "Set")
}

// MeasurementHeaders implements Step: Set contributes no columns.
func (s *Set) MeasurementHeaders() []string { return nil }

// BindInstrumentRefs implements Step.
func (s *Set) BindInstrumentRefs(byName map[string]InstrumentRef) {
	for i := range s.Entries {
		rebindRef(&s.Entries[i].Inst, byName)
	}
}

// Copy implements Step.
func (s *Set) Copy() Step {
	cp := *s
	cp.Entries = append([]SetEntry{}, s.Entries...)
	return &cp
}

// Describe implements Step.
func (s *Set) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "    enabled = %s\n", formatBool(s.enabled))
	fmt.Fprintf(&b, "    count = %d\n", len(s.Entries))
	for i, e := range s.Entries {
		fmt.Fprintf(&b, "    inst%d = %s\n", i, e.Inst.Name)
		fmt.Fprintf(&b, "    param%d = %s\n", i, e.Param)
		fmt.Fprintf(&b, "    value%d = %s\n", i, e.Value)
	}
	return b.String()
}

// Execute writes every entry in order, coercing through the instrument's
// parameter kind (spec §4.4.1), logging and skipping an entry whose
// instrument or parameter can't be resolved rather than aborting the step.
func (s *Set) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	for _, e := range s.Entries {
		if rc.Abort.IsRaised() {
			return 0, false, ErrAbort
		}
		inst, err := resolveInst("Set", e.Inst, app)
		if err != nil {
			rc.Logger.Errorf("Set: %v", err)
			continue
		}
		if err := s.writeEntry(rc, inst, e); err != nil {
			rc.Logger.Errorf("Set %s.%s: %v", inst.Name, e.Param, err)
		}
	}
	return 0, false, nil
}

func (s *Set) writeEntry(rc *RunContext, inst *Instrument, e SetEntry) error {
	if inst.Model == nil {
		return NewParamError("Set", inst.Name, e.Param, CodeBadParameter, "instrument has no model")
	}
	p, ok := inst.Model.Parameter(e.Param)
	if !ok {
		return NewParamError("Set", inst.Name, e.Param, CodeBadParameter, fmt.Sprintf("unknown parameter %q", e.Param))
	}

	rc.Status.Publish([4]string{
		"Setting Values",
		fmt.Sprintf("Instrument: %s", inst.Name),
		fmt.Sprintf("Parameter: %s = %s %s", e.Param, e.Value, p.UnitFor(0)),
		"",
	})

	switch p.Kind {
	case Action:
		return inst.WriteAction(e.Param, inst.defaultTimeout, rc.Observer)
	case Discrete:
		return inst.WriteDiscrete(e.Param, e.Value, inst.defaultTimeout, rc.Observer)
	case Continuous:
		if p.IsCompound() {
			parts := strings.Split(e.Value, ",")
			values := make([]float64, len(parts))
			for i, part := range parts {
				v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
				if err != nil {
					return NewParamError("Set", inst.Name, e.Param, CodeBadValue,
						fmt.Sprintf("non-numeric component %q", part))
				}
				values[i] = v
			}
			return inst.WriteContinuousMulti(e.Param, values, inst.defaultTimeout, rc.Observer)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(e.Value), 64)
		if err != nil {
			return NewParamError("Set", inst.Name, e.Param, CodeBadValue, fmt.Sprintf("%q is not a float", e.Value))
		}
		return inst.WriteContinuous(e.Param, v, inst.defaultTimeout, rc.Observer)
	default:
		return NewParamError("Set", inst.Name, e.Param, CodeBadValue, "unknown parameter kind")
	}
}
