package pxc

import "testing"

func newSetTestApparatus(t *testing.T) (*Apparatus, *MockTransport) {
	t.Helper()
	before := len(modelRegistry)
	RegisterModel(mockDiscreteModel())
	t.Cleanup(func() { modelRegistry = modelRegistry[:before] })

	mt := NewMockTransport("GPIB0::1::INSTR")
	app := NewApparatus(mt)
	h, err := mt.Open("GPIB0::1::INSTR")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	inst := NewInstrument("dmm", "GPIB0::1::INSTR", mockDiscreteModel())
	inst.Bind(h)
	app.AddInstrument(inst)
	return app, mt
}

func TestSetExecuteWritesContinuousAndDiscrete(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	s := NewSet([]SetEntry{
		{Inst: ref, Param: "OutputVoltage", Value: "3.3"},
		{Inst: ref, Param: "Mode", Value: "AC"},
		{Inst: ref, Param: "Reset"},
	})

	rc := newTestRunContext()
	if _, _, err := s.Execute(rc, app); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := mt.WrittenTo("GPIB0::1::INSTR")
	if len(got) != 3 {
		t.Fatalf("WrittenTo = %v, want 3 writes", got)
	}
}

func TestSetExecuteSkipsUnresolvableInstrument(t *testing.T) {
	app, _ := newSetTestApparatus(t)
	missing := InstrumentRef{Name: "nonexistent", Model: "MockDMM"}

	s := NewSet([]SetEntry{{Inst: missing, Param: "Mode", Value: "AC"}})
	rc := newTestRunContext()

	if _, _, err := s.Execute(rc, app); err != nil {
		t.Errorf("Execute should not fail the step for one bad entry, got %v", err)
	}
}

func TestSetExecuteRejectsNonNumericValue(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	s := NewSet([]SetEntry{{Inst: ref, Param: "OutputVoltage", Value: "abc"}})
	rc := newTestRunContext()

	if _, _, err := s.Execute(rc, app); err != nil {
		t.Errorf("a rejected entry should be logged, not returned as a step error, got %v", err)
	}
	if len(mt.WrittenTo("GPIB0::1::INSTR")) != 0 {
		t.Error("expected no write dispatched for a non-numeric continuous value")
	}
}

func TestSetMeasurementHeadersEmpty(t *testing.T) {
	s := NewSet(nil)
	if h := s.MeasurementHeaders(); h != nil {
		t.Errorf("Set.MeasurementHeaders() = %v, want nil", h)
	}
}

func TestSetCopyIsIndependent(t *testing.T) {
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}
	s := NewSet([]SetEntry{{Inst: ref, Param: "Mode", Value: "AC"}})
	cp := s.Copy().(*Set)
	cp.Entries[0].Value = "DC"
	if s.Entries[0].Value != "AC" {
		t.Error("Copy must not alias the original Entries slice")
	}
}
