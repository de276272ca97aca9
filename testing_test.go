package pxc

import (
	"errors"
	"testing"
	"time"
)

func TestMockTransportEnumerate(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR", "GPIB0::2::INSTR")

	addrs, err := mt.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(addrs) != 2 {
		t.Errorf("Enumerate = %v, want 2 addresses", addrs)
	}
}

func TestMockTransportQueuedResponses(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	mt.QueueResponse("GPIB0::1::INSTR", "1.0")
	mt.QueueResponse("GPIB0::1::INSTR", "2.0")

	h, err := mt.Open("GPIB0::1::INSTR")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first, _ := h.Query("VOLT?", time.Second)
	second, _ := h.Query("VOLT?", time.Second)
	third, _ := h.Query("VOLT?", time.Second)

	if first != "1.0" || second != "2.0" {
		t.Errorf("got %q, %q, want 1.0, 2.0", first, second)
	}
	if third != "2.0" {
		t.Errorf("last queued response should repeat, got %q", third)
	}
}

func TestMockTransportFailNextQuery(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	injected := errors.New("bus fault")
	mt.FailNextQuery("GPIB0::1::INSTR", injected)

	h, _ := mt.Open("GPIB0::1::INSTR")
	_, err := h.Query("VOLT?", time.Second)
	if err != injected {
		t.Errorf("expected injected error, got %v", err)
	}

	mt.QueueResponse("GPIB0::1::INSTR", "ok")
	resp, err := h.Query("VOLT?", time.Second)
	if err != nil || resp != "ok" {
		t.Errorf("expected recovered query to succeed, got (%q, %v)", resp, err)
	}
}

func TestMockTransportOpenTwiceFails(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	if _, err := mt.Open("GPIB0::1::INSTR"); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := mt.Open("GPIB0::1::INSTR"); err == nil {
		t.Error("expected second Open to fail")
	}
}

func TestMockTransportCallCounts(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	h, _ := mt.Open("GPIB0::1::INSTR")

	h.Query("VOLT?", time.Second)
	h.Write("VOLT 1.0", time.Second)
	h.Clear()
	h.Close()

	counts := mt.CallCounts()
	if counts["query"] != 1 || counts["write"] != 1 || counts["clear"] != 1 || counts["close"] != 1 {
		t.Errorf("CallCounts = %v, want one of each", counts)
	}
}

func TestMockTransportWrittenTo(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	h, _ := mt.Open("GPIB0::1::INSTR")
	h.Write("VOLT 1.0", time.Second)
	h.Query("VOLT?", time.Second)

	got := mt.WrittenTo("GPIB0::1::INSTR")
	if len(got) != 2 || got[0] != "VOLT 1.0" || got[1] != "VOLT?" {
		t.Errorf("WrittenTo = %v", got)
	}
}

func TestMockTransportReset(t *testing.T) {
	mt := NewMockTransport("GPIB0::1::INSTR")
	h, _ := mt.Open("GPIB0::1::INSTR")
	h.Write("VOLT 1.0", time.Second)
	mt.Reset()

	counts := mt.CallCounts()
	if counts["write"] != 0 {
		t.Errorf("expected call counts cleared after Reset, got %v", counts)
	}
	if got := mt.WrittenTo("GPIB0::1::INSTR"); len(got) != 0 {
		t.Errorf("expected written log cleared after Reset, got %v", got)
	}
}

// mockDiscreteModel returns an InstrumentModel with one discrete and one
// continuous parameter, used across instrument_test.go and apparatus_test.go.
func mockDiscreteModel() *InstrumentModel {
	return &InstrumentModel{
		Name:           "MockDMM",
		IdentityPrefix: "MOCK,DMM",
		Parameters: []*Parameter{
			{
				Name: "Voltage", Kind: Continuous,
				ReadCommand: "VOLT?", Units: []string{"V"},
				Precision: intPtr(3),
			},
			{
				Name: "OutputVoltage", Kind: Continuous,
				WriteCommand: "VOLT", Units: []string{"V"},
				Min: floatPtr(0), Max: floatPtr(10), Precision: intPtr(2),
			},
			{
				Name: "Mode", Kind: Discrete,
				ReadCommand: "MODE?", WriteCommand: "MODE",
				Values: []string{"0", "1"}, Labels: []string{"DC", "AC"},
			},
			{
				Name: "Reset", Kind: Action,
				WriteCommand: "*RST",
			},
		},
	}
}
