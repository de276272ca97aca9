package logging

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerDefaultConfig(t *testing.T) {
	logger := NewLogger(nil)
	require.NotNil(t, logger)
}

func TestLoggerDetailedFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf, Process: "executor"})

	logger.WithTag("executor").WithInstrument("dmm").Infof("set Voltage = %v", 1.0)

	out := buf.String()
	require.Contains(t, out, "tag=executor")
	require.Contains(t, out, "inst=dmm")
	require.Contains(t, out, "process=executor")
	require.Contains(t, out, "set Voltage = 1")
}

func TestLoggerMetaBanner(t *testing.T) {
	var detailed, banner bytes.Buffer

	detailedLogger := NewLogger(&Config{Level: LevelInfo, Output: &detailed})
	detailedLogger.WithTag("executor").Infof("ordinary record")

	bannerLogger := NewLogger(&Config{Level: LevelInfo, Output: &banner})
	bannerLogger.WithTag(MetaTag).Infof("run started")

	require.NotEqual(t, detailed.String(), banner.String())
	require.Contains(t, banner.String(), "run started")
}

func TestLoggerListenMultiplexesWorkers(t *testing.T) {
	logger := NewLogger(&Config{Level: LevelDebug, Output: &bytes.Buffer{}})

	var received []string
	var mu sync.Mutex
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		logger.Listen(stop, func(e *logrus.Entry) {
			mu.Lock()
			received = append(received, e.Message)
			mu.Unlock()
		})
		close(done)
	}()

	logger.WithTag("executor").Infof("executor record")
	logger.WithTag("filewriter").Infof("filewriter record")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 2
	}, time.Second, 5*time.Millisecond)

	close(stop)
	<-done
}

func TestDefaultLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	Default().WithTag(MetaTag).Infof("banner line")
	require.Contains(t, buf.String(), "banner line")
}
