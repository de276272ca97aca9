package pxc

import (
	"sync"
	"time"
)

// MockTransport is an in-memory, call-counting stand-in for a real bus
// driver, for unit-testing instrument and step logic without hardware. Each
// address can be pre-loaded with a queue of query responses, and a one-shot
// failure can be injected for the next Query or Write.
type MockTransport struct {
	mu sync.Mutex

	addresses []string
	responses map[string][]string
	failNext  map[string]error
	written   map[string][]string
	openAddr  map[string]bool

	queryCalls int
	writeCalls int
	clearCalls int
	closeCalls int
}

// NewMockTransport creates a MockTransport whose Enumerate reports the given
// addresses.
func NewMockTransport(addresses ...string) *MockTransport {
	return &MockTransport{
		addresses: addresses,
		responses: make(map[string][]string),
		failNext:  make(map[string]error),
		written:   make(map[string][]string),
		openAddr:  make(map[string]bool),
	}
}

// QueueResponse appends a response that the next unanswered Query against
// address will return, in FIFO order. Once exhausted, the last queued
// response repeats.
func (t *MockTransport) QueueResponse(address, response string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[address] = append(t.responses[address], response)
}

// FailNextQuery causes the next Query against address to return err instead
// of a queued response.
func (t *MockTransport) FailNextQuery(address string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext[address] = err
}

// Enumerate implements Transport.
func (t *MockTransport) Enumerate() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.addresses))
	copy(out, t.addresses)
	return out, nil
}

// Open implements Transport.
func (t *MockTransport) Open(address string) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openAddr[address] {
		return nil, NewError("Open", CodeTransportIO, "address already open")
	}
	t.openAddr[address] = true
	return &mockHandle{transport: t, address: address}, nil
}

// WrittenTo returns every write/query command text sent to address, in
// order, for test assertions.
func (t *MockTransport) WrittenTo(address string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.written[address]))
	copy(out, t.written[address])
	return out
}

// CallCounts returns how many times each Transport operation has been
// invoked across every handle.
func (t *MockTransport) CallCounts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]int{
		"query": t.queryCalls,
		"write": t.writeCalls,
		"clear": t.clearCalls,
		"close": t.closeCalls,
	}
}

// Reset clears call counters, queued responses, and recorded writes.
func (t *MockTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = make(map[string][]string)
	t.failNext = make(map[string]error)
	t.written = make(map[string][]string)
	t.queryCalls = 0
	t.writeCalls = 0
	t.clearCalls = 0
	t.closeCalls = 0
}

// mockHandle is the Handle a MockTransport hands out from Open.
type mockHandle struct {
	transport *MockTransport
	address   string
}

func (h *mockHandle) Address() string { return h.address }

func (h *mockHandle) Query(text string, timeout time.Duration) (string, error) {
	t := h.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	t.queryCalls++
	t.written[h.address] = append(t.written[h.address], text)

	if err := t.failNext[h.address]; err != nil {
		delete(t.failNext, h.address)
		return "", err
	}

	queue := t.responses[h.address]
	if len(queue) == 0 {
		return "", nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		t.responses[h.address] = queue[1:]
	}
	return resp, nil
}

func (h *mockHandle) Write(text string, timeout time.Duration) error {
	t := h.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	t.writeCalls++
	t.written[h.address] = append(t.written[h.address], text)

	if err := t.failNext[h.address]; err != nil {
		delete(t.failNext, h.address)
		return err
	}
	return nil
}

func (h *mockHandle) Clear() error {
	t := h.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearCalls++
	return nil
}

func (h *mockHandle) Close() error {
	t := h.transport
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeCalls++
	delete(t.openAddr, h.address)
	return nil
}

var _ Transport = (*MockTransport)(nil)
var _ Handle = (*mockHandle)(nil)
