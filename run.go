package pxc

import (
	"context"
	"time"

	"github.com/jstraq/go-pxc/internal/logging"
	"github.com/jstraq/go-pxc/internal/runtime"
)

// RunContext is the one owned struct passed explicitly to every run
// participant (spec §9 design note: "global mutable state in a
// multiprocessing manager" becomes one owned RunContext, no shared
// process-wide singleton). It bundles the shared-controller primitives of
// spec §5: the one-shot abort/kill flags, the status board, the file
// request channel, the logger, and the run's metrics.
type RunContext struct {
	Abort  *runtime.Flag
	Kill   *runtime.Flag
	Status *runtime.StatusBoard

	FileRequests chan *runtime.FileRequest

	Logger   *logging.Logger
	Metrics  *RunMetrics
	Observer MetricsObserver
}

// RequestAbort raises the cooperative stop flag (spec §5: checked at every
// loop iteration, before every sleep, and on every record boundary).
func (rc *RunContext) RequestAbort() {
	rc.Abort.Raise()
}

// RequestKill raises the kill flag. Kill implies abort: the executor stops
// the same way, and the file writer additionally closes its file on exit
// (spec §5).
func (rc *RunContext) RequestKill() {
	rc.Kill.Raise()
	rc.Abort.Raise()
}

// emitRecord sends rec onto the file channel as a Write Line request,
// rendered against plan (the column order from Apparatus.GetVarsList). It
// never blocks indefinitely: a stalled file writer surfaces as a recorded
// FileError rather than wedging the executor (spec §7 IoError policy).
func (rc *RunContext) emitRecord(plan []string, rec *Record) {
	values := make(map[string]string, len(plan))
	for _, h := range plan {
		if h == "Timestamp" {
			values[h] = rec.Timestamp.Format(TimestampLayout)
			continue
		}
		values[h] = rec.Get(h)
	}
	req := &runtime.FileRequest{
		Type:   runtime.ReqWriteLine,
		Line:   rec.Row(plan),
		Values: values,
	}
	select {
	case rc.FileRequests <- req:
		rc.Metrics.RecordRow()
	case <-time.After(5 * time.Second):
		rc.Metrics.RecordFileError()
		rc.Logger.Errorf("file writer did not accept a Write Line request within 5s")
	}
}

// sleepInterruptible sleeps for d in short ticks, returning early the
// moment Abort is raised (spec §5 cancellation: "checked... before every
// sleep").
func (rc *RunContext) sleepInterruptible(d time.Duration) {
	const tick = 50 * time.Millisecond
	deadline := time.Now().Add(d)
	for {
		if rc.Abort.IsRaised() {
			return
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if remaining > tick {
			remaining = tick
		}
		time.Sleep(remaining)
	}
}

// RunOptions configures one invocation of Run.
type RunOptions struct {
	Logger *logging.Logger
	// FileQueueSize bounds the file-request channel; 0 selects a default.
	FileQueueSize int
	// StatusSink, if set, receives every Observer poll (spec §4.5's "up to
	// 2Hz" UI/plotter poll); nil discards snapshots. The CLI's httpstatus
	// surface reads rc.Status through OnStart instead of this sink.
	StatusSink func(runtime.Snapshot)
	// DataPath, if set, opens a new data file before the sequence starts
	// and closes it after (spec §6.1/§6.2).
	DataPath string
	// OnStart, if set, is called once the file writer and observer
	// goroutines are running but before the sequence starts executing. It
	// hands the caller the live RunContext so an external boundary (e.g.
	// the CLI's status/plot HTTP surface) can read rc.Status and enqueue
	// onto rc.FileRequests for the remainder of the run (spec §4.5's
	// Observer: "UI paint and plot refresh").
	OnStart func(*RunContext)
}

// Run wires the executor (Apparatus.RunSequence), the file writer, and the
// observer together and blocks until the sequence finishes, mirroring the
// original's three-participant concurrency model (spec §4.5) while keeping
// everything in one process as three goroutines instead of three OS
// processes — the teacher's internal/queue.Runner goroutine-with-logger
// shape, generalized to three participants instead of one.
func Run(app *Apparatus, opts RunOptions) *RunContext {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	queueSize := opts.FileQueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	metrics := NewMetrics()
	rc := &RunContext{
		Abort:        &runtime.Flag{},
		Kill:         &runtime.Flag{},
		Status:       runtime.NewStatusBoard(),
		FileRequests: make(chan *runtime.FileRequest, queueSize),
		Logger:       logger,
		Metrics:      metrics,
		Observer:     NewMetricsObserver(metrics),
	}

	fw := runtime.NewFileWriter(logger.WithTag("filewriter"))
	fwDone := make(chan struct{})
	go func() {
		fw.Run(rc.FileRequests)
		close(fwDone)
	}()

	if opts.DataPath != "" {
		rc.FileRequests <- &runtime.FileRequest{
			Type:    runtime.ReqNewFile,
			Path:    opts.DataPath,
			Headers: app.GetVarsList(),
		}
	}

	obsCtx, cancelObserver := context.WithCancel(context.Background())
	observer := runtime.NewObserver(rc.Status, logger.WithTag("observer"))
	sink := opts.StatusSink
	if sink == nil {
		sink = func(runtime.Snapshot) {}
	}
	go observer.Run(obsCtx, sink)

	metaLog := logger.WithTag(logging.MetaTag)
	metaLog.Infof("run started")

	if opts.OnStart != nil {
		opts.OnStart(rc)
	}

	if err := app.RunSequence(rc); err != nil {
		logger.Errorf("run failed: %v", err)
	}

	metrics.Stop()
	cancelObserver()

	rc.FileRequests <- &runtime.FileRequest{Type: runtime.ReqTerminateFile}
	<-fwDone

	metaLog.Infof("run finished: %+v", metrics.Snapshot())
	return rc
}
