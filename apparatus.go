package pxc

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Apparatus is the editable bench configuration: the bound instruments and
// the ordered sequence of steps (spec §3, §4.3). The editor mutates an
// Apparatus; at run start it is serialized to a textual descriptor and
// deserialized again inside the executor, which then drives RunSequence.
type Apparatus struct {
	mu          sync.RWMutex
	instruments []*Instrument
	sequence    []Step

	transport Transport
}

// NewApparatus creates an empty Apparatus bound to transport. transport may
// be nil for apparatuses that only edit/serialize a sequence (tests, the
// editor before a bus is attached).
func NewApparatus(transport Transport) *Apparatus {
	return &Apparatus{transport: transport}
}

// Transport returns the bus this apparatus discovers instruments against.
func (a *Apparatus) Transport() Transport { return a.transport }

// SetTransport rebinds the apparatus to a different bus, used by the
// executor when rehydrating a deserialized snapshot against a live
// transport (spec §4.5).
func (a *Apparatus) SetTransport(t Transport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transport = t
}

// Instruments returns every bound instrument (active and candidate), in
// discovery order.
func (a *Apparatus) Instruments() []*Instrument {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Instrument, len(a.instruments))
	copy(out, a.instruments)
	return out
}

// ActiveInstruments returns every named (active) instrument.
func (a *Apparatus) ActiveInstruments() []*Instrument {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*Instrument
	for _, inst := range a.instruments {
		if inst.Name != "" {
			out = append(out, inst)
		}
	}
	return out
}

// AvailableInstruments returns every nameless (candidate) instrument.
func (a *Apparatus) AvailableInstruments() []*Instrument {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*Instrument
	for _, inst := range a.instruments {
		if inst.Name == "" {
			out = append(out, inst)
		}
	}
	return out
}

// InstrumentByName returns the active instrument bound to name, or nil.
func (a *Apparatus) InstrumentByName(name string) *Instrument {
	if name == "" {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, inst := range a.instruments {
		if inst.Name == name {
			return inst
		}
	}
	return nil
}

// AddInstrument binds inst into the apparatus, replacing any existing
// binding at the same address.
func (a *Apparatus) AddInstrument(inst *Instrument) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.instruments {
		if existing.Address == inst.Address {
			a.instruments[i] = inst
			return
		}
	}
	a.instruments = append(a.instruments, inst)
}

// Rename gives the instrument at address a new active name, or clears it
// (making it a candidate again) when name == "". Returns *Error(CodeBadValue)
// if name collides with another active instrument (spec §3 uniqueness
// invariant, §8 property 2).
func (a *Apparatus) Rename(address, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name != "" {
		for _, inst := range a.instruments {
			if inst.Address != address && inst.Name == name {
				return NewError("Rename", CodeBadValue, fmt.Sprintf("name %q is already active", name))
			}
		}
	}
	for _, inst := range a.instruments {
		if inst.Address == address {
			inst.Name = name
			return nil
		}
	}
	return NewError("Rename", CodeInstrumentMissing, fmt.Sprintf("no instrument bound at %q", address))
}

// DisconnectInstrument purges every reference to addr from the apparatus.
func (a *Apparatus) DisconnectInstrument(addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.instruments[:0]
	for _, inst := range a.instruments {
		if inst.Address != addr {
			out = append(out, inst)
		}
	}
	a.instruments = out
}

// FindInstruments refreshes bindings from the bus (spec §4.3
// findInstruments): enumerate addresses, probe each with an identity query,
// and replace the instrument list with the newly observed set, preserving
// the *name* of any address whose model is unchanged. Addresses no longer
// present are dropped.
func (a *Apparatus) FindInstruments(timeout time.Duration) error {
	a.mu.Lock()
	transport := a.transport
	previous := make(map[string]*Instrument, len(a.instruments))
	for _, inst := range a.instruments {
		previous[inst.Address] = inst
	}
	a.mu.Unlock()

	if transport == nil {
		return NewError("FindInstruments", CodeInstrumentMissing, "no transport bound")
	}

	addrs, err := transport.Enumerate()
	if err != nil {
		return err
	}

	var found []*Instrument
	for _, addr := range addrs {
		h, err := transport.Open(addr)
		if err != nil {
			continue
		}
		num := addressNumber(addr)
		identity, err := h.Query(IdentityProbe(num), timeout)
		_ = h.Close()
		if err != nil {
			continue
		}
		model := IdentifyModel(identity)
		if model == nil {
			continue
		}
		inst := NewInstrument("", addr, model)
		if prev, ok := previous[addr]; ok && prev.Model != nil && prev.Model.Name == model.Name {
			inst.Name = prev.Name
		}
		found = append(found, inst)
	}

	a.mu.Lock()
	a.instruments = found
	a.mu.Unlock()
	return nil
}

// Sequence returns the ordered steps.
func (a *Apparatus) Sequence() []Step {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Step, len(a.sequence))
	copy(out, a.sequence)
	return out
}

// SetSequence replaces the sequence wholesale (used by deserialize).
func (a *Apparatus) SetSequence(seq []Step) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequence = seq
}

// AppendSequence inserts step at pos, the position above which it is
// inserted (spec §4.3 appendSequence).
func (a *Apparatus) AppendSequence(step Step, pos int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > len(a.sequence) {
		pos = len(a.sequence)
	}
	a.sequence = append(a.sequence, nil)
	copy(a.sequence[pos+1:], a.sequence[pos:])
	a.sequence[pos] = step
	a.renumberLocked()
}

// GetVarsList returns ['Timestamp'] followed by the ordered-unique union of
// every enabled step's declared headers, in declaration order (spec §4.3).
func (a *Apparatus) GetVarsList() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.getVarsListLocked()
}

func (a *Apparatus) getVarsListLocked() []string {
	vars := []string{"Timestamp"}
	seen := map[string]bool{"Timestamp": true}
	for _, step := range a.sequence {
		if !step.Enabled() {
			continue
		}
		for _, h := range step.MeasurementHeaders() {
			if !seen[h] {
				seen[h] = true
				vars = append(vars, h)
			}
		}
	}
	return vars
}

// UpdateTitles refreshes every step's position and display title (spec §4.3
// updateTitles).
func (a *Apparatus) UpdateTitles() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.renumberLocked()
}

func (a *Apparatus) renumberLocked() {
	for i, step := range a.sequence {
		step.SetPosition(i)
		step.UpdateTitle(a.sequence)
	}
}

// RunSequence drives the engine loop described in spec §4.3's pseudocode:
// one pass through the sequence, honoring enabled flags, abort, and
// LoopEnd's jump-back protocol. Records flow onto rc.FileRequests; status
// publishes onto rc.Status.
func (a *Apparatus) RunSequence(rc *RunContext) error {
	seq := a.Sequence()
	position := 0

	for !rc.Abort.IsRaised() {
		for position < len(seq) {
			if rc.Abort.IsRaised() {
				break
			}
			step := seq[position]
			if !step.Enabled() {
				position++
				continue
			}
			rc.Status.Publish(step.Status())

			jump, hasJump, err := step.Execute(rc, a)
			if err != nil && !IsCode(err, CodeAbortRequested) {
				rc.Logger.Errorf("step %d (%s) failed: %v", position, step.Kind(), err)
			}
			rc.Metrics.RecordStep()

			if step.Kind() == KindLoopEnd {
				if hasJump {
					position = jump
				} else {
					position++
				}
			} else {
				position++
			}
		}
		rc.Abort.Raise() // single-pass: spec §9 open question, decided in SPEC_FULL.md §6
	}
	return nil
}

// indexOf returns the sequence position of s by pointer identity, or -1.
// LoopEnd.Execute uses this to resolve its paired Loop's jump target without
// either step needing to know its own index ahead of time.
func (a *Apparatus) indexOf(s Step) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i, st := range a.sequence {
		if st == s {
			return i
		}
	}
	return -1
}

// sortedIndices returns a sorted copy of idx for descending-order deletes.
func sortedIndices(idx []int) []int {
	out := make([]int, len(idx))
	copy(out, idx)
	sort.Ints(out)
	return out
}
