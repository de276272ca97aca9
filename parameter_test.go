package pxc

import "testing"

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestCoerceContinuousWriteClampAndRound(t *testing.T) {
	p := &Parameter{
		Name:      "Voltage",
		Kind:      Continuous,
		Min:       floatPtr(0),
		Max:       floatPtr(10),
		Precision: intPtr(2),
	}

	if got := p.CoerceContinuousWrite(15.4321); got != "10.00" {
		t.Errorf("clamp to max: got %q, want %q", got, "10.00")
	}
	if got := p.CoerceContinuousWrite(-3); got != "0.00" {
		t.Errorf("clamp to min: got %q, want %q", got, "0.00")
	}
	if got := p.CoerceContinuousWrite(3.14159); got != "3.14" {
		t.Errorf("round: got %q, want %q", got, "3.14")
	}
}

func TestCoerceContinuousWriteNoPrecision(t *testing.T) {
	p := &Parameter{Name: "Freq", Kind: Continuous}
	if got := p.CoerceContinuousWrite(1.5); got != "1.5" {
		t.Errorf("got %q, want %q", got, "1.5")
	}
}

func TestCoerceContinuousWriteMulti(t *testing.T) {
	p := &Parameter{
		Name:       "XY",
		Kind:       Continuous,
		Precision:  intPtr(1),
		Components: []string{"X", "Y"},
	}
	got := p.CoerceContinuousWriteMulti([]float64{1.25, 2.75})
	if got != "1.3,2.8" {
		t.Errorf("got %q, want %q", got, "1.3,2.8")
	}
}

func TestCoerceDiscreteWrite(t *testing.T) {
	p := &Parameter{
		Name:   "Mode",
		Kind:   Discrete,
		Values: []string{"0", "1"},
		Labels: []string{"Off", "On"},
	}

	wire, err := p.CoerceDiscreteWrite("On")
	if err != nil || wire != "1" {
		t.Errorf("label lookup: got (%q, %v), want (\"1\", nil)", wire, err)
	}

	wire, err = p.CoerceDiscreteWrite("0")
	if err != nil || wire != "0" {
		t.Errorf("wire passthrough: got (%q, %v), want (\"0\", nil)", wire, err)
	}

	if _, err := p.CoerceDiscreteWrite("Sideways"); err == nil {
		t.Error("expected BadValue error for unrecognized input")
	} else if !IsCode(err, CodeBadValue) {
		t.Errorf("expected CodeBadValue, got %v", err)
	}
}

func TestCoerceDiscreteWireExactMatch(t *testing.T) {
	p := &Parameter{
		Values: []string{"0", "1"},
		Labels: []string{"Off", "On"},
	}
	label, ok := p.CoerceDiscreteWire("1")
	if !ok || label != "On" {
		t.Errorf("got (%q, %v), want (\"On\", true)", label, ok)
	}
}

func TestCoerceDiscreteWireNumericFallback(t *testing.T) {
	p := &Parameter{
		Values: []string{"0", "1"},
		Labels: []string{"Off", "On"},
	}
	label, ok := p.CoerceDiscreteWire("00")
	if !ok || label != "Off" {
		t.Errorf("got (%q, %v), want (\"Off\", true)", label, ok)
	}
}

func TestCoerceDiscreteWireUnrecognized(t *testing.T) {
	p := &Parameter{Values: []string{"0"}, Labels: []string{"Off"}}
	if _, ok := p.CoerceDiscreteWire("xyz"); ok {
		t.Error("expected no match for an unrecognized, non-numeric wire value")
	}
}

func TestParameterAccessors(t *testing.T) {
	readOnly := &Parameter{Name: "Temp", Kind: Continuous, ReadCommand: "TEMP?"}
	writeOnly := &Parameter{Name: "Setpoint", Kind: Continuous, WriteCommand: "SET"}
	action := &Parameter{Name: "Reset", Kind: Action, WriteCommand: "*RST"}
	compound := &Parameter{Name: "XY", Kind: Continuous, Components: []string{"X", "Y"}}

	if !readOnly.IsReadable() || readOnly.IsWritable() {
		t.Error("expected read-only parameter to be readable, not writable")
	}
	if writeOnly.IsReadable() || !writeOnly.IsWritable() {
		t.Error("expected write-only parameter to be writable, not readable")
	}
	if !action.IsWritable() {
		t.Error("expected action parameter to be writable")
	}
	if !compound.IsCompound() || compound.IsContinuousScalar() {
		t.Error("expected compound parameter to not be a continuous scalar")
	}
}

func TestParameterFieldNames(t *testing.T) {
	scalar := &Parameter{Name: "Voltage"}
	if got := scalar.FieldNames(); len(got) != 1 || got[0] != "Voltage" {
		t.Errorf("scalar FieldNames = %v", got)
	}

	compound := &Parameter{Name: "XY", Components: []string{"X", "Y"}}
	if got := compound.FieldNames(); len(got) != 2 || got[0] != "X" || got[1] != "Y" {
		t.Errorf("compound FieldNames = %v", got)
	}
}

func TestParameterUnitFor(t *testing.T) {
	p := &Parameter{Units: []string{"V"}}
	if got := p.UnitFor(0); got != "V" {
		t.Errorf("single shared unit: got %q, want %q", got, "V")
	}

	compound := &Parameter{Units: []string{"V", "A"}}
	if got := compound.UnitFor(1); got != "A" {
		t.Errorf("per-component unit: got %q, want %q", got, "A")
	}

	none := &Parameter{}
	if got := none.UnitFor(0); got != "" {
		t.Errorf("no unit: got %q, want empty", got)
	}
}
