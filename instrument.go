package pxc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InstrumentRef is a lightweight, serializable reference to an instrument —
// name, address, and model name — distinct from a live *Instrument. Steps
// store an InstrumentRef at edit time; the executor resolves it against the
// current Apparatus snapshot at run start (spec §3: "weak reference via name
// lookup, rebound each run").
type InstrumentRef struct {
	Name    string
	Address string
	Model   string
}

// Resolve looks the reference up in app, returning *Error(CodeInstrumentMissing)
// if no active instrument with this name is currently bound.
func (r InstrumentRef) Resolve(app *Apparatus) (*Instrument, error) {
	inst := app.InstrumentByName(r.Name)
	if inst == nil {
		return nil, NewParamError("Resolve", r.Name, "", CodeInstrumentMissing,
			fmt.Sprintf("instrument %q is not bound", r.Name))
	}
	return inst, nil
}

// Instrument binds an apparatus-local name to a bus address and a model. A
// nameless Instrument is a discovery candidate; naming it makes it active
// (spec §3).
type Instrument struct {
	Name    string
	Address string
	Model   *InstrumentModel

	handle     Handle
	defaultTimeout time.Duration
}

// NewInstrument constructs an (as yet unbound) Instrument.
func NewInstrument(name, address string, model *InstrumentModel) *Instrument {
	return &Instrument{
		Name:           name,
		Address:        address,
		Model:          model,
		defaultTimeout: time.Second,
	}
}

// Bind attaches an open transport Handle, making the instrument live for the
// duration of one run.
func (i *Instrument) Bind(h Handle) {
	i.handle = h
}

// SetDefaultTimeout overrides the per-call timeout used when a caller
// doesn't supply one explicitly.
func (i *Instrument) SetDefaultTimeout(d time.Duration) {
	i.defaultTimeout = d
}

// Ref returns the serializable reference to this instrument.
func (i *Instrument) Ref() InstrumentRef {
	model := ""
	if i.Model != nil {
		model = i.Model.Name
	}
	return InstrumentRef{Name: i.Name, Address: i.Address, Model: model}
}

// param resolves a parameter by name or returns *Error(CodeBadParameter).
func (i *Instrument) param(op, name string) (*Parameter, error) {
	if i.Model == nil {
		return nil, NewParamError(op, i.Name, name, CodeBadParameter, "instrument has no model")
	}
	p, ok := i.Model.Parameter(name)
	if !ok {
		return nil, NewParamError(op, i.Name, name, CodeBadParameter, fmt.Sprintf("unknown parameter %q", name))
	}
	return p, nil
}

// readWithRetry implements the §4.2 query algorithm: issue attempt, and on
// any error (Timeout included) or an invalid discrete response, clear the
// bus and try again, making at most ParamRetryLimit attempts in all.
func (i *Instrument) readWithRetry(attempt func() (string, error), valid func(string) bool, obs MetricsObserver) (string, int, error) {
	var lastErr error
	for n := 0; n < ParamRetryLimit; n++ {
		wire, err := attempt()
		if err == nil && (valid == nil || valid(wire)) {
			return wire, n, nil
		}
		if err != nil {
			lastErr = err
			if IsCode(err, CodeTransportTimeout) && obs != nil {
				obs.ObserveTimeout()
			}
		} else {
			lastErr = NewParamError("ReadParameter", i.Name, "", CodeBadValue, fmt.Sprintf("unrecognized wire value %q", wire))
		}
		if i.handle != nil {
			_ = i.handle.Clear()
		}
	}
	return "", ParamRetryLimit, lastErr
}

// ReadDiscrete reads a discrete parameter, returning its wire token and
// human label.
func (i *Instrument) ReadDiscrete(name string, timeout time.Duration, obs MetricsObserver) (wire, label string, err error) {
	p, err := i.param("ReadParameter", name)
	if err != nil {
		return "", "", err
	}
	if p.Kind != Discrete {
		return "", "", NewParamError("ReadParameter", i.Name, name, CodeBadValue, "not a discrete parameter")
	}
	if !p.IsReadable() {
		return "", "", NewParamError("ReadParameter", i.Name, name, CodeWriteOnly, "parameter is write-only")
	}

	var resolvedLabel string
	wireVal, retries, err := i.readWithRetry(func() (string, error) {
		return i.issueRead(p, timeout)
	}, func(w string) bool {
		l, ok := p.CoerceDiscreteWire(w)
		resolvedLabel = l
		return ok
	}, obs)
	if err != nil {
		if obs != nil {
			obs.ObserveReadError()
		}
		return "", "", err
	}
	if obs != nil {
		obs.ObserveRead(retries)
	}
	return wireVal, resolvedLabel, nil
}

// ReadContinuous reads a continuous parameter, returning one float per
// declared component (a single-element slice for a scalar parameter).
func (i *Instrument) ReadContinuous(name string, timeout time.Duration, obs MetricsObserver) ([]float64, error) {
	p, err := i.param("ReadParameter", name)
	if err != nil {
		return nil, err
	}
	if p.Kind != Continuous {
		return nil, NewParamError("ReadParameter", i.Name, name, CodeBadValue, "not a continuous parameter")
	}
	if !p.IsReadable() {
		return nil, NewParamError("ReadParameter", i.Name, name, CodeWriteOnly, "parameter is write-only")
	}

	wire, retries, err := i.readWithRetry(func() (string, error) {
		return i.issueRead(p, timeout)
	}, nil, obs)
	if err != nil {
		if obs != nil {
			obs.ObserveReadError()
		}
		return nil, err
	}

	parts := strings.Split(wire, ",")
	out := make([]float64, len(parts))
	for idx, part := range parts {
		v, perr := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if perr != nil {
			if obs != nil {
				obs.ObserveReadError()
			}
			return nil, NewParamError("ReadParameter", i.Name, name, CodeBadValue,
				fmt.Sprintf("non-numeric component %q in response %q", part, wire))
		}
		out[idx] = v
	}
	if obs != nil {
		obs.ObserveRead(retries)
	}
	return out, nil
}

// issueRead dispatches either the read macro (if declared) or the plain
// read command for p.
func (i *Instrument) issueRead(p *Parameter, timeout time.Duration) (string, error) {
	if p.ReadMacro != nil {
		return p.ReadMacro(i)
	}
	if i.handle == nil {
		return "", NewParamError("ReadParameter", i.Name, p.Name, CodeInstrumentMissing, "instrument has no open handle")
	}
	return i.handle.Query(p.ReadCommand, timeout)
}

// WriteAction issues an action parameter's command with no argument.
func (i *Instrument) WriteAction(name string, timeout time.Duration, obs MetricsObserver) error {
	p, err := i.param("WriteParameter", name)
	if err != nil {
		return err
	}
	if p.Kind != Action {
		return NewParamError("WriteParameter", i.Name, name, CodeBadValue, "not an action parameter")
	}
	if err := i.issueWrite(p, nil, timeout); err != nil {
		if obs != nil {
			obs.ObserveWriteError()
		}
		return err
	}
	i.settle()
	if obs != nil {
		obs.ObserveSet(0)
	}
	return nil
}

// WriteDiscrete coerces input (a wire token or a label) and writes it.
func (i *Instrument) WriteDiscrete(name, input string, timeout time.Duration, obs MetricsObserver) error {
	p, err := i.param("WriteParameter", name)
	if err != nil {
		return err
	}
	if p.Kind != Discrete {
		return NewParamError("WriteParameter", i.Name, name, CodeBadValue, "not a discrete parameter")
	}
	if !p.IsWritable() {
		return NewParamError("WriteParameter", i.Name, name, CodeReadOnly, "parameter is read-only")
	}
	wire, err := p.CoerceDiscreteWrite(input)
	if err != nil {
		if obs != nil {
			obs.ObserveWriteError()
		}
		return err
	}
	if err := i.issueWrite(p, []string{wire}, timeout); err != nil {
		if obs != nil {
			obs.ObserveWriteError()
		}
		return err
	}
	i.settle()
	if obs != nil {
		obs.ObserveSet(0)
	}
	return nil
}

// WriteContinuous coerces value (clamp/round) and writes it. For a compound
// parameter, use WriteContinuousMulti instead.
func (i *Instrument) WriteContinuous(name string, value float64, timeout time.Duration, obs MetricsObserver) error {
	return i.writeContinuous(name, []float64{value}, timeout, obs)
}

// WriteContinuousMulti coerces one value per declared component and writes
// them as a single comma-separated argument.
func (i *Instrument) WriteContinuousMulti(name string, values []float64, timeout time.Duration, obs MetricsObserver) error {
	return i.writeContinuous(name, values, timeout, obs)
}

func (i *Instrument) writeContinuous(name string, values []float64, timeout time.Duration, obs MetricsObserver) error {
	p, err := i.param("WriteParameter", name)
	if err != nil {
		return err
	}
	if p.Kind != Continuous {
		return NewParamError("WriteParameter", i.Name, name, CodeBadValue, "not a continuous parameter")
	}
	if !p.IsWritable() {
		return NewParamError("WriteParameter", i.Name, name, CodeReadOnly, "parameter is read-only")
	}
	arg := p.CoerceContinuousWriteMulti(values)
	if err := i.issueWrite(p, []string{arg}, timeout); err != nil {
		if obs != nil {
			obs.ObserveWriteError()
		}
		return err
	}
	i.settle()
	if obs != nil {
		obs.ObserveSet(0)
	}
	return nil
}

// issueWrite dispatches either the write macro (if declared) or the plain
// write command, with args joined by whitespace after the command text.
func (i *Instrument) issueWrite(p *Parameter, args []string, timeout time.Duration) error {
	if p.WriteMacro != nil {
		return p.WriteMacro(i, args)
	}
	if i.handle == nil {
		return NewParamError("WriteParameter", i.Name, p.Name, CodeInstrumentMissing, "instrument has no open handle")
	}
	text := p.WriteCommand
	if len(args) > 0 {
		text = text + " " + strings.Join(args, " ")
	}
	return i.handle.Write(text, timeout)
}

// settle sleeps for the model's declared WriteDelay, the hardware-settling
// accommodation described in spec §4.2 (not a retry).
func (i *Instrument) settle() {
	if i.Model != nil && i.Model.WriteDelay > 0 {
		time.Sleep(i.Model.WriteDelay)
	}
}
