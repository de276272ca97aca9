package pxc

import (
	"testing"
	"time"
)

func TestWaitExecuteTimeModeHonorsTimeout(t *testing.T) {
	app, _ := newSetTestApparatus(t)
	w := NewWait()
	w.Wait = WaitTime
	w.Timeout = 50 * time.Millisecond

	rc := newTestRunContext()
	start := time.Now()
	if _, _, err := w.Execute(rc, app); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait in time mode should return promptly after its timeout elapses")
	}
}

func TestWaitExecuteTimeModeHonorsAbort(t *testing.T) {
	app, _ := newSetTestApparatus(t)
	w := NewWait()
	w.Wait = WaitTime
	w.Timeout = 0 // indefinite

	rc := newTestRunContext()
	go func() {
		time.Sleep(10 * time.Millisecond)
		rc.RequestAbort()
	}()

	_, _, err := w.Execute(rc, app)
	if !IsCode(err, CodeAbortRequested) {
		t.Errorf("Execute = %v, want CodeAbortRequested", err)
	}
}

func TestWaitExecuteConditionModeStopsWhenStable(t *testing.T) {
	app, mt := newSetTestApparatus(t)
	for i := 0; i < 20; i++ {
		mt.QueueResponse("GPIB0::1::INSTR", "2.0")
	}
	ref := InstrumentRef{Name: "dmm", Model: "MockDMM"}

	w := NewWait()
	w.Wait = WaitCondition
	w.Poll = MinPollInterval
	w.WaitInst = ref
	w.WaitParam = "Voltage"
	w.Target = 2.0
	w.Stability = 0.5
	w.StableTime = 2 * MinPollInterval
	w.Timeout = 5 * time.Second

	rc := newTestRunContext()
	done := make(chan error, 1)
	go func() { _, _, err := w.Execute(rc, app); done <- err }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Wait condition mode never stabilized")
	}
}

func TestWaitMeasurementHeadersOnlyInConditionMode(t *testing.T) {
	before := len(modelRegistry)
	RegisterModel(mockDiscreteModel())
	defer func() { modelRegistry = modelRegistry[:before] }()

	w := NewWait()
	if h := w.MeasurementHeaders(); h != nil {
		t.Errorf("time-mode Wait.MeasurementHeaders() = %v, want nil", h)
	}

	w.Wait = WaitCondition
	w.WaitInst = InstrumentRef{Name: "dmm", Model: "MockDMM"}
	w.WaitParam = "Voltage"
	if h := w.MeasurementHeaders(); len(h) != 1 {
		t.Errorf("condition-mode Wait.MeasurementHeaders() = %v, want 1 header", h)
	}
}
