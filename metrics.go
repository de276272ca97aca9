package pxc

import (
	"sync/atomic"
	"time"
)

// RunMetrics tracks operational statistics for one sequence run: how many
// parameter reads/writes happened, how many of each failed or had to be
// retried, and how much data the file writer produced.
type RunMetrics struct {
	// Instrument I/O counters
	SetCount   atomic.Uint64 // Successful parameter writes
	ReadCount  atomic.Uint64 // Successful parameter reads
	RetryCount atomic.Uint64 // Read/write attempts beyond the first

	// Error counters
	WriteErrors atomic.Uint64 // Writes that failed (writes are not retried)
	ReadErrors  atomic.Uint64 // Reads that exhausted retries
	Timeouts    atomic.Uint64 // Transport timeouts encountered (retried or not)
	FileErrors  atomic.Uint64 // File writer errors (open/write/close)

	// Data production
	RowsWritten atomic.Uint64 // Records appended to the data file
	StepsRun    atomic.Uint64 // Steps completed (Loop/LoopEnd count once per pass)

	// Run lifecycle
	StartTime atomic.Int64 // Run start timestamp (UnixNano)
	StopTime  atomic.Int64 // Run stop timestamp (UnixNano)
}

// NewMetrics creates a metrics instance with its start time set to now.
func NewMetrics() *RunMetrics {
	m := &RunMetrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSet records a successful parameter write, after any retries taken.
func (m *RunMetrics) RecordSet(retries int) {
	m.SetCount.Add(1)
	m.RetryCount.Add(uint64(retries))
}

// RecordRead records a successful parameter read, after any retries taken.
func (m *RunMetrics) RecordRead(retries int) {
	m.ReadCount.Add(1)
	m.RetryCount.Add(uint64(retries))
}

// RecordWriteError records a failed parameter write (writes make one attempt).
func (m *RunMetrics) RecordWriteError() {
	m.WriteErrors.Add(1)
}

// RecordReadError records a parameter read that exhausted its retry budget.
func (m *RunMetrics) RecordReadError() {
	m.ReadErrors.Add(1)
}

// RecordTimeout records one transport timeout, whatever operation triggered it.
func (m *RunMetrics) RecordTimeout() {
	m.Timeouts.Add(1)
}

// RecordFileError records a file writer failure.
func (m *RunMetrics) RecordFileError() {
	m.FileErrors.Add(1)
}

// RecordRow records one record appended to the data file.
func (m *RunMetrics) RecordRow() {
	m.RowsWritten.Add(1)
}

// RecordStep records one completed step.
func (m *RunMetrics) RecordStep() {
	m.StepsRun.Add(1)
}

// Stop marks the run as finished.
func (m *RunMetrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of RunMetrics suitable
// for logging or display.
type MetricsSnapshot struct {
	SetCount    uint64
	ReadCount   uint64
	RetryCount  uint64
	WriteErrors uint64
	ReadErrors  uint64
	Timeouts    uint64
	FileErrors  uint64
	RowsWritten uint64
	StepsRun    uint64
	UptimeNs    uint64
	ErrorRate   float64 // percentage of set+read attempts that errored out
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *RunMetrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SetCount:    m.SetCount.Load(),
		ReadCount:   m.ReadCount.Load(),
		RetryCount:  m.RetryCount.Load(),
		WriteErrors: m.WriteErrors.Load(),
		ReadErrors:  m.ReadErrors.Load(),
		Timeouts:    m.Timeouts.Load(),
		FileErrors:  m.FileErrors.Load(),
		RowsWritten: m.RowsWritten.Load(),
		StepsRun:    m.StepsRun.Load(),
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	totalAttempts := snap.SetCount + snap.ReadCount + snap.WriteErrors + snap.ReadErrors
	totalErrors := snap.WriteErrors + snap.ReadErrors
	if totalAttempts > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(totalAttempts) * 100.0
	}

	return snap
}

// Reset zeroes all counters and restarts the clock. Useful for reusing a
// RunMetrics instance across tests.
func (m *RunMetrics) Reset() {
	m.SetCount.Store(0)
	m.ReadCount.Store(0)
	m.RetryCount.Store(0)
	m.WriteErrors.Store(0)
	m.ReadErrors.Store(0)
	m.Timeouts.Store(0)
	m.FileErrors.Store(0)
	m.RowsWritten.Store(0)
	m.StepsRun.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// MetricsObserver is the pluggable hook the runtime workers report through,
// so the RunMetrics bookkeeping can be swapped out in tests.
type MetricsObserver interface {
	ObserveSet(retries int)
	ObserveRead(retries int)
	ObserveWriteError()
	ObserveReadError()
	ObserveTimeout()
	ObserveFileError()
	ObserveRow()
	ObserveStep()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSet(int)     {}
func (NoOpObserver) ObserveRead(int)    {}
func (NoOpObserver) ObserveWriteError() {}
func (NoOpObserver) ObserveReadError()  {}
func (NoOpObserver) ObserveTimeout()    {}
func (NoOpObserver) ObserveFileError()  {}
func (NoOpObserver) ObserveRow()        {}
func (NoOpObserver) ObserveStep()       {}

// metricsObserver implements MetricsObserver on top of a RunMetrics.
type metricsObserver struct {
	metrics *RunMetrics
}

// NewMetricsObserver creates an observer that records into the given metrics.
func NewMetricsObserver(m *RunMetrics) MetricsObserver {
	return &metricsObserver{metrics: m}
}

func (o *metricsObserver) ObserveSet(retries int)  { o.metrics.RecordSet(retries) }
func (o *metricsObserver) ObserveRead(retries int) { o.metrics.RecordRead(retries) }
func (o *metricsObserver) ObserveWriteError()      { o.metrics.RecordWriteError() }
func (o *metricsObserver) ObserveReadError()       { o.metrics.RecordReadError() }
func (o *metricsObserver) ObserveTimeout()         { o.metrics.RecordTimeout() }
func (o *metricsObserver) ObserveFileError()       { o.metrics.RecordFileError() }
func (o *metricsObserver) ObserveRow()             { o.metrics.RecordRow() }
func (o *metricsObserver) ObserveStep()            { o.metrics.RecordStep() }

var _ MetricsObserver = (*metricsObserver)(nil)
var _ MetricsObserver = NoOpObserver{}
