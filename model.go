package pxc

import "time"

// InstrumentModel is a static, declarative parameter table for one
// instrument model. Tables are registered once, at init time, and shared by
// every Instrument constructed against that model.
type InstrumentModel struct {
	Name string

	// IdentityPrefix is matched against the leading text of an *IDN?/ID
	// response during discovery; the first registered model whose prefix
	// matches wins.
	IdentityPrefix string

	// WriteDelay is the settling time applied after every successful write
	// issued against this model, a hardware accommodation rather than a
	// retry (spec §4.2).
	WriteDelay time.Duration

	Parameters []*Parameter
}

// Parameter looks up a declared parameter by name.
func (m *InstrumentModel) Parameter(name string) (*Parameter, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Readable returns every parameter that can be read.
func (m *InstrumentModel) Readable() []*Parameter {
	return m.filter(func(p *Parameter) bool { return p.IsReadable() })
}

// Writable returns every parameter that can be written.
func (m *InstrumentModel) Writable() []*Parameter {
	return m.filter(func(p *Parameter) bool { return p.IsWritable() })
}

// ReadableContinuousScalar returns every readable, scalar continuous
// parameter — the set a Step offers for a single-value measurement.
func (m *InstrumentModel) ReadableContinuousScalar() []*Parameter {
	return m.filter(func(p *Parameter) bool {
		return p.IsReadable() && p.IsContinuousScalar()
	})
}

// WritableContinuousScalar returns every writable, scalar continuous
// parameter — the set a Loop or Set step offers as a sweep/set target.
func (m *InstrumentModel) WritableContinuousScalar() []*Parameter {
	return m.filter(func(p *Parameter) bool {
		return p.IsWritable() && p.Kind == Continuous && !p.IsCompound()
	})
}

// ReadableContinuous returns every readable continuous parameter, scalar or
// compound.
func (m *InstrumentModel) ReadableContinuous() []*Parameter {
	return m.filter(func(p *Parameter) bool {
		return p.IsReadable() && p.Kind == Continuous
	})
}

// ReadableDiscrete returns every readable discrete parameter.
func (m *InstrumentModel) ReadableDiscrete() []*Parameter {
	return m.filter(func(p *Parameter) bool {
		return p.IsReadable() && p.Kind == Discrete
	})
}

func (m *InstrumentModel) filter(keep func(*Parameter) bool) []*Parameter {
	var out []*Parameter
	for _, p := range m.Parameters {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// modelRegistry holds every InstrumentModel registered via RegisterModel,
// in registration order (first match wins during discovery, per spec §4.2).
var modelRegistry []*InstrumentModel

// RegisterModel adds a model to the discovery registry. Intended to be
// called from package init() by instrument-model libraries external to this
// core (spec §1: "instrument model libraries... interfaces only").
func RegisterModel(m *InstrumentModel) {
	modelRegistry = append(modelRegistry, m)
}

// RegisteredModels returns every registered model, in registration order.
func RegisteredModels() []*InstrumentModel {
	out := make([]*InstrumentModel, len(modelRegistry))
	copy(out, modelRegistry)
	return out
}

// ModelByName returns the registered model with the given Name, or nil. Used
// to resolve a step's static InstrumentRef.Model (a model name persisted at
// edit time) into its parameter table without needing a live Instrument,
// e.g. to compute a step's declared measurement headers before a run starts.
func ModelByName(name string) *InstrumentModel {
	for _, m := range modelRegistry {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// IdentifyModel returns the first registered model whose IdentityPrefix is a
// prefix of identity, or nil if none match.
func IdentifyModel(identity string) *InstrumentModel {
	for _, m := range modelRegistry {
		if len(m.IdentityPrefix) == 0 {
			continue
		}
		if len(identity) >= len(m.IdentityPrefix) && identity[:len(m.IdentityPrefix)] == m.IdentityPrefix {
			return m
		}
	}
	return nil
}
