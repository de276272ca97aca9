package pxc

import (
	"testing"
	"time"
)

func TestCMeasExecuteTimeModeStopsAtTimeout(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	for i := 0; i < 10; i++ {
		mt.QueueResponse("GPIB0::1::INSTR", "1.0")
	}
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	c := NewCMeas([]MeasEntry{{Inst: ref, Param: "Voltage"}})
	c.Wait = WaitTime
	c.Poll = MinPollInterval
	c.Timeout = 150 * time.Millisecond

	rc := newTestRunContext()
	start := time.Now()
	if _, _, err := c.Execute(rc, app); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("CMeas in time mode should stop near its timeout")
	}
	if snap := rc.Metrics.Snapshot(); snap.RowsWritten == 0 {
		t.Error("expected at least one emitted row before timeout")
	}
}

func TestCMeasExecuteConditionModeStopsWhenStable(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	for i := 0; i < 20; i++ {
		mt.QueueResponse("GPIB0::1::INSTR", "5.0")
	}
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	c := NewCMeas([]MeasEntry{{Inst: ref, Param: "Voltage"}})
	c.Wait = WaitCondition
	c.Poll = MinPollInterval
	c.WaitInst = ref
	c.WaitParam = "Voltage"
	c.Target = 5.0
	c.Stability = 0.5
	c.StableTime = 2 * MinPollInterval
	c.Timeout = 5 * time.Second

	rc := newTestRunContext()
	done := make(chan error, 1)
	go func() { _, _, err := c.Execute(rc, app); done <- err }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("CMeas condition mode never stabilized")
	}
}

func TestCMeasExecuteHonorsAbort(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	for i := 0; i < 100; i++ {
		mt.QueueResponse("GPIB0::1::INSTR", "1.0")
	}
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	c := NewCMeas([]MeasEntry{{Inst: ref, Param: "Voltage"}})
	c.Wait = WaitTime
	c.Poll = MinPollInterval
	c.Timeout = 0

	rc := newTestRunContext()
	go func() {
		time.Sleep(20 * time.Millisecond)
		rc.RequestAbort()
	}()

	_, _, err := c.Execute(rc, app)
	if !IsCode(err, CodeAbortRequested) {
		t.Errorf("Execute = %v, want CodeAbortRequested", err)
	}
}

func TestCMeasMeasurementHeadersIncludesWaitParamInConditionMode(t *testing.T) {
	before := len(modelRegistry)
	RegisterModel(mockDiscreteModel())
	defer func() { modelRegistry = modelRegistry[:before] }()

	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}
	c := NewCMeas([]MeasEntry{{Inst: ref, Param: "Mode"}})
	c.Wait = WaitCondition
	c.WaitInst = ref
	c.WaitParam = "Voltage"

	headers := c.MeasurementHeaders()
	if len(headers) != 2 {
		t.Errorf("MeasurementHeaders = %v, want 2 headers (Mode + Voltage)", headers)
	}
}
