package pxc

import (
	"fmt"
	"strconv"
)

// StepKind discriminates the five sequence-step variants (spec §4.4). It
// replaces the original's runtime class dispatch with a compile-time tagged
// sum: Deserialize's buildStep switches on the persisted type name
// (Kind.String()) to construct the right struct.
type StepKind int

const (
	KindSet StepKind = iota
	KindSMeas
	KindCMeas
	KindLoop
	KindLoopEnd
	KindWait
)

func (k StepKind) String() string {
	switch k {
	case KindSet:
		return "SetCommand"
	case KindSMeas:
		return "SingleMeasurementCommand"
	case KindCMeas:
		return "ContinuousMeasurementCommand"
	case KindLoop:
		return "LoopCommand"
	case KindLoopEnd:
		return "LoopEndCommand"
	case KindWait:
		return "WaitCommand"
	default:
		return "UnknownCommand"
	}
}

// WaitMode selects how a CMeas/Loop/Wait step decides it is done.
type WaitMode int

const (
	WaitTime WaitMode = iota
	WaitCondition
)

func (m WaitMode) String() string {
	if m == WaitCondition {
		return "Condition"
	}
	return "Time"
}

// Step is the shared contract every sequence-step variant implements (spec
// §4.4). Execute runs the step against a live Apparatus, emitting records
// onto the RunContext's FileRequests channel; only LoopEnd reports a jump.
type Step interface {
	Kind() StepKind
	Position() int
	SetPosition(int)
	Title() string
	Enabled() bool
	SetEnabled(bool)
	Status() [4]string

	// UpdateTitle refreshes the step's display title from its current
	// fields and position (spec §4.4).
	UpdateTitle(seq []Step)
	// MeasurementHeaders returns the canonical column headers this step
	// contributes when enabled (spec §4.3 getVarsList).
	MeasurementHeaders() []string
	// Copy returns a deep-enough copy for duplication (spec §4.3).
	Copy() Step
	// BindInstrumentRefs rebinds every InstrumentRef this step holds against
	// byName (keyed by instrument name), filling in Model/Address. Steps
	// built by Deserialize only know each reference's Name (spec §6.3's
	// COMMANDS: section persists instrument names, not models); this is the
	// "rebound each run" half of spec §3's "weak reference via name lookup."
	BindInstrumentRefs(byName map[string]InstrumentRef)
	// Execute runs the step. A LoopEnd whose Loop has iterations left
	// returns that Loop's sequence index as jump with hasJump true; every
	// other call returns hasJump false.
	Execute(rc *RunContext, app *Apparatus) (jump int, hasJump bool, err error)
	// Describe renders the step's §6.3 "Sequence Command N:" descriptor
	// block, including the trailing blank-line-free attribute list.
	Describe() string
}

// base holds the attributes shared by every Step variant (spec §3: "Shared
// attributes: position, title, enabled, status, variant").
type base struct {
	kind     StepKind
	pos      int
	title    string
	enabled  bool
	status   [4]string
}

func newBase(kind StepKind) base {
	return base{kind: kind, enabled: true}
}

func (b *base) Kind() StepKind     { return b.kind }
func (b *base) Position() int      { return b.pos }
func (b *base) SetPosition(p int)  { b.pos = p }
func (b *base) Title() string      { return b.title }
func (b *base) Enabled() bool      { return b.enabled }
func (b *base) SetEnabled(e bool)  { b.enabled = e }
func (b *base) Status() [4]string  { return b.status }

// BindInstrumentRefs is a no-op default for steps that hold no
// InstrumentRef (LoopEnd); steps that do override it.
func (b *base) BindInstrumentRefs(byName map[string]InstrumentRef) {}

func (b *base) setStatus(lines ...string) {
	var s [4]string
	for i := 0; i < len(lines) && i < 4; i++ {
		s[i] = lines[i]
	}
	b.status = s
}

// enumerateTitle prefixes a step's title with its 1-based sequence position,
// matching HelperFunctions.enumSequence in the original source.
func enumerateTitle(pos int, title string) string {
	return fmt.Sprintf("%d: %s", pos+1, title)
}

// stepInstRef pairs an instrument reference with the parameter name in use,
// the shared shape Set/SMeas/CMeas/Loop/Wait all need for their per-row
// instrument/parameter selections.
type stepInstRef struct {
	Inst  InstrumentRef
	Param string
}

// resolveInst looks up ref's live *Instrument in app, returning
// ref.Resolve's error unchanged (op is not added to it).
func resolveInst(op string, ref InstrumentRef, app *Apparatus) (*Instrument, error) {
	inst, err := ref.Resolve(app)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// rebindRef fills in ref's Model/Address from byName (keyed by instrument
// name), leaving it untouched if no entry matches — an unresolvable name
// surfaces downstream as InstrumentMissing (spec §7), not here.
func rebindRef(ref *InstrumentRef, byName map[string]InstrumentRef) {
	if full, ok := byName[ref.Name]; ok {
		ref.Model = full.Model
		ref.Address = full.Address
	}
}

// staticHeaders computes the canonical column headers a (instrument, param)
// pair contributes, resolved against the registered model by name rather
// than a live Instrument, so a step can declare its headers before a run
// has bound anything (spec §4.3 getVarsList, §3 canonical header form).
func staticHeaders(ref InstrumentRef, param string) []string {
	model := ModelByName(ref.Model)
	if model == nil {
		return nil
	}
	p, ok := model.Parameter(param)
	if !ok {
		return nil
	}
	fields := p.FieldNames()
	out := make([]string, len(fields))
	for i, f := range fields {
		if p.Kind == Continuous {
			out[i] = ContinuousHeader(ref.Name, f, p.UnitFor(i))
		} else {
			out[i] = DiscreteHeader(ref.Name, f)
		}
	}
	return out
}

// recordMeasurement reads one parameter off inst and stores its value(s)
// into rec under the canonical headers, the shared shape SMeas, CMeas, and
// Loop/Wait condition logging all need (spec §4.4.2/.3/.4).
func recordMeasurement(rc *RunContext, inst *Instrument, param string, rec *Record) error {
	if inst.Model == nil {
		return NewParamError("Measure", inst.Name, param, CodeBadParameter, "instrument has no model")
	}
	p, ok := inst.Model.Parameter(param)
	if !ok {
		return NewParamError("Measure", inst.Name, param, CodeBadParameter, fmt.Sprintf("unknown parameter %q", param))
	}

	fields := p.FieldNames()
	switch p.Kind {
	case Continuous:
		values, err := inst.ReadContinuous(param, inst.defaultTimeout, rc.Observer)
		if err != nil {
			return err
		}
		for i, f := range fields {
			header := ContinuousHeader(inst.Name, f, p.UnitFor(i))
			if i < len(values) {
				rec.Set(header, strconv.FormatFloat(values[i], 'f', -1, 64))
			}
		}
	case Discrete:
		_, label, err := inst.ReadDiscrete(param, inst.defaultTimeout, rc.Observer)
		if err != nil {
			return err
		}
		header := DiscreteHeader(inst.Name, fields[0])
		rec.Set(header, label)
	default:
		return NewParamError("Measure", inst.Name, param, CodeBadValue, "parameter is not readable")
	}
	return nil
}
