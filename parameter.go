package pxc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind classifies how a Parameter's value is read, written, and coerced.
type Kind int

const (
	// Continuous parameters carry one or more floating-point components,
	// optionally clamped to [Min, Max] and rounded to Precision digits.
	Continuous Kind = iota
	// Discrete parameters accept one of a declared set of wire tokens, each
	// paired with a human-readable label.
	Discrete
	// Action parameters take no argument; writing one simply issues the
	// command text.
	Action
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Action:
		return "action"
	default:
		return "unknown"
	}
}

// ReadMacro performs a multi-step device dialogue in place of a single read
// command, returning the same comma-joined wire text a plain read_command
// would produce.
type ReadMacro func(inst *Instrument) (string, error)

// WriteMacro performs a multi-step device dialogue in place of a single
// write command.
type WriteMacro func(inst *Instrument, args []string) error

// Parameter is a declarative descriptor attached to an Instrument model.
type Parameter struct {
	Name string
	Kind Kind

	ReadCommand  string
	WriteCommand string
	ReadMacro    ReadMacro
	WriteMacro   WriteMacro

	// Units is either a single-element slice (scalar) or one unit per
	// Components entry (compound). May be empty for discrete/action.
	Units []string

	// Continuous-only. Min/Max/Precision are pointers so "unset" is
	// distinguishable from "zero".
	Min       *float64
	Max       *float64
	Precision *int

	// Discrete-only. Parallel lists: Values are wire tokens, Labels their
	// human-readable counterparts.
	Values []string
	Labels []string

	// Components names each sub-field of a compound reading/write. Empty
	// for a scalar parameter.
	Components []string
}

// IsReadable reports whether the parameter can be read.
func (p *Parameter) IsReadable() bool {
	return p.ReadCommand != "" || p.ReadMacro != nil
}

// IsWritable reports whether the parameter can be written.
func (p *Parameter) IsWritable() bool {
	return p.Kind == Action || p.WriteCommand != "" || p.WriteMacro != nil
}

// IsCompound reports whether the parameter has more than one component.
func (p *Parameter) IsCompound() bool {
	return len(p.Components) > 1
}

// IsContinuousScalar reports whether this is a single-valued continuous
// parameter.
func (p *Parameter) IsContinuousScalar() bool {
	return p.Kind == Continuous && !p.IsCompound()
}

// FieldNames returns the component names to use as record header fields:
// Components if declared, otherwise the parameter's own Name.
func (p *Parameter) FieldNames() []string {
	if len(p.Components) > 0 {
		return p.Components
	}
	return []string{p.Name}
}

// UnitFor returns the unit string for the component at index i, or "" if
// none is declared.
func (p *Parameter) UnitFor(i int) string {
	if i < len(p.Units) {
		return p.Units[i]
	}
	if len(p.Units) == 1 {
		return p.Units[0]
	}
	return ""
}

// CoerceContinuousWrite rounds v to Precision (if set) and clamps it to
// [Min, Max] (if set), returning the wire text to send.
func (p *Parameter) CoerceContinuousWrite(v float64) string {
	if p.Min != nil && v < *p.Min {
		v = *p.Min
	}
	if p.Max != nil && v > *p.Max {
		v = *p.Max
	}
	if p.Precision != nil {
		scale := math.Pow(10, float64(*p.Precision))
		v = math.Round(v*scale) / scale
		return strconv.FormatFloat(v, 'f', *p.Precision, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CoerceContinuousWriteMulti coerces one value per declared Component, in
// declaration order, and joins them with commas for a compound write.
func (p *Parameter) CoerceContinuousWriteMulti(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = p.CoerceContinuousWrite(v)
	}
	return strings.Join(parts, ",")
}

// CoerceDiscreteWrite accepts either a wire token or a label and returns the
// wire token to send, or a *Error(CodeBadValue) if input matches neither.
func (p *Parameter) CoerceDiscreteWrite(input string) (string, error) {
	for _, v := range p.Values {
		if v == input {
			return v, nil
		}
	}
	for i, l := range p.Labels {
		if l == input {
			return p.Values[i], nil
		}
	}
	return "", NewParamError("WriteParameter", "", p.Name, CodeBadValue,
		fmt.Sprintf("%q is not a declared value or label", input))
}

// CoerceDiscreteWire maps a value read back off the wire to its declared
// label, normalizing through an integer comparison (so "00" matches "0", as
// the original device dialogues did) when an exact string match fails.
func (p *Parameter) CoerceDiscreteWire(wire string) (label string, ok bool) {
	for i, v := range p.Values {
		if v == wire {
			return p.Labels[i], true
		}
	}
	if n, err := strconv.Atoi(wire); err == nil {
		for i, v := range p.Values {
			if vn, err := strconv.Atoi(v); err == nil && vn == n {
				return p.Labels[i], true
			}
		}
	}
	return "", false
}
