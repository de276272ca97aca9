package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jstraq/go-pxc"
	"github.com/jstraq/go-pxc/internal/httpstatus"
	"github.com/jstraq/go-pxc/internal/logging"
)

var (
	dataPath  string
	logLevel  string
	queueSize int
	httpAddr  string
)

// RunCmd loads a descriptor file, binds its instruments over TCP, and runs
// the sequence to completion, reporting the process exit status — the
// "load a descriptor, run it headlessly, report exit status" entry point
// the GUI's Run button calls in-process (spec §4.5).
var RunCmd = &cobra.Command{
	Use:   "run <descriptor-file>",
	Short: "Run a sequence descriptor headlessly",
	Args:  cobra.ExactArgs(1),
	RunE:  runSequence,
}

func init() {
	RunCmd.Flags().StringVar(&dataPath, "data", "", "data file to write measurements to")
	RunCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warning, error, critical")
	RunCmd.Flags().IntVar(&queueSize, "queue-size", 0, "file-request queue size (0 selects the default)")
	RunCmd.Flags().StringVar(&httpAddr, "http", "", "serve /status, /metrics, and /plot on this address while the run is live (disabled if empty)")
}

func runSequence(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading descriptor: %w", err)
	}

	app, err := pxc.Deserialize(string(text), nil)
	if err != nil {
		return fmt.Errorf("parsing descriptor: %w", err)
	}

	addresses := make([]string, 0, len(app.Instruments()))
	for _, inst := range app.Instruments() {
		addresses = append(addresses, inst.Address)
	}
	transport := newTCPTransport(addresses)
	app.SetTransport(transport)

	for _, inst := range app.Instruments() {
		h, err := transport.Open(inst.Address)
		if err != nil {
			return fmt.Errorf("connecting to %s (%s): %w", inst.Name, inst.Address, err)
		}
		inst.Bind(h)
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	logger := logging.NewLogger(cfg)

	var statusSrv *http.Server
	rc := pxc.Run(app, pxc.RunOptions{
		Logger:        logger,
		FileQueueSize: queueSize,
		DataPath:      dataPath,
		OnStart: func(rc *pxc.RunContext) {
			if httpAddr == "" {
				return
			}
			handler := httpstatus.NewServer(rc.Status, rc.FileRequests, func() any { return rc.Metrics.Snapshot() }, logger.WithTag("httpstatus"))
			statusSrv = &http.Server{Addr: httpAddr, Handler: handler}
			go func() {
				if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("status server: %v", err)
				}
			}()
			logger.Infof("status server listening on %s", httpAddr)
		},
	})

	if statusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := statusSrv.Shutdown(ctx); err != nil {
			logger.Errorf("status server shutdown: %v", err)
		}
	}

	snap := rc.Metrics.Snapshot()
	if snap.ReadErrors > 0 || snap.WriteErrors > 0 || snap.FileErrors > 0 {
		return fmt.Errorf("run completed with errors: %+v", snap)
	}
	return nil
}

func parseLevel(s string) (logging.Level, error) {
	switch s {
	case "debug":
		return logging.LevelDebug, nil
	case "info":
		return logging.LevelInfo, nil
	case "warning", "warn":
		return logging.LevelWarning, nil
	case "error":
		return logging.LevelError, nil
	case "critical":
		return logging.LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
