package runtime

import (
	"context"
	"time"
)

// ObserverPollInterval is how often the Observer samples the StatusBoard for
// a UI or plotter poll, matching the controller's "observer" role in spec §5.
const ObserverPollInterval = 500 * time.Millisecond

// Observer periodically samples a StatusBoard and hands the snapshot to a
// sink, standing in for the original's Tk polling loop. Grounded on the
// teacher's goroutine-with-context-and-logger worker shape
// (internal/queue.Runner), generalized to a read-only poll instead of an
// io_uring completion loop.
type Observer struct {
	board  *StatusBoard
	logger Logger
}

// NewObserver creates an Observer over board.
func NewObserver(board *StatusBoard, logger Logger) *Observer {
	return &Observer{board: board, logger: logger}
}

// Snapshot is one poll's worth of observable state.
type Snapshot struct {
	Lines  [4]string
	Latest map[string]string
}

// Run polls the board at ObserverPollInterval until ctx is done, handing
// each snapshot to sink. sink must not block for long; it runs on the
// Observer's own goroutine.
func (o *Observer) Run(ctx context.Context, sink func(Snapshot)) {
	ticker := time.NewTicker(ObserverPollInterval)
	defer ticker.Stop()

	if o.logger != nil {
		o.logger.Debugf("observer started")
	}
	for {
		select {
		case <-ctx.Done():
			if o.logger != nil {
				o.logger.Debugf("observer stopped: %v", ctx.Err())
			}
			return
		case <-ticker.C:
			sink(Snapshot{Lines: o.board.Lines(), Latest: o.board.Latest()})
		}
	}
}
