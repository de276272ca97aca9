// Package logging provides the leveled, tagged event log described in spec
// §6.4: every record carries a source tag, timestamp, process name, level,
// and message; the "meta" tag gets a distinct banner format, everything else
// gets the detailed format; and worker-goroutine records are forwarded
// through a channel to one listener.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is one of the five levels spec §6.4 requires.
type Level = logrus.Level

const (
	LevelDebug    = logrus.DebugLevel
	LevelInfo     = logrus.InfoLevel
	LevelWarning  = logrus.WarnLevel
	LevelError    = logrus.ErrorLevel
	LevelCritical = logrus.FatalLevel
)

// MetaTag is the source tag that receives the banner format instead of the
// detailed per-field format.
const MetaTag = "meta"

// Config configures a Logger.
type Config struct {
	Level   Level
	Output  io.Writer
	Process string // process name attached to every record
}

// DefaultConfig returns Info level, stderr output, process name "pxc".
func DefaultConfig() *Config {
	return &Config{Level: LevelInfo, Output: os.Stderr, Process: "pxc"}
}

// bannerFormatter renders "meta"-tagged records as a standalone banner line;
// every other tag is rendered with the detailed format (timestamp, level,
// message and key=value fields on one line).
type bannerFormatter struct {
	detailed logrus.Formatter
	banner   logrus.Formatter
}

func (f *bannerFormatter) Format(e *logrus.Entry) ([]byte, error) {
	if tag, _ := e.Data["tag"].(string); tag == MetaTag {
		return f.banner.Format(e)
	}
	return f.detailed.Format(e)
}

// Logger wraps a *logrus.Logger with the source-tag/process fields spec
// §6.4 names, and fans records from worker goroutines into one queue so a
// single listener multiplexes the executor's and file writer's log lines.
type Logger struct {
	entry *logrus.Entry
	queue chan *logrus.Entry
}

// NewLogger builds a Logger from Config, defaulting a nil Config.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	base := logrus.New()
	base.SetOutput(output)
	base.SetLevel(config.Level)
	base.SetFormatter(&bannerFormatter{
		detailed: &logrus.TextFormatter{FullTimestamp: true, DisableColors: true},
		banner: &logrus.TextFormatter{
			FullTimestamp:          true,
			DisableColors:          true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
		},
	})

	process := config.Process
	if process == "" {
		process = "pxc"
	}

	return &Logger{
		entry: base.WithFields(logrus.Fields{"process": process}),
		queue: make(chan *logrus.Entry, 256),
	}
}

// WithTag scopes subsequent records to the given source tag (e.g.
// "executor", "filewriter", "meta").
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{entry: l.entry.WithField("tag", tag), queue: l.queue}
}

// WithInstrument additionally scopes records to one instrument name.
func (l *Logger) WithInstrument(name string) *Logger {
	return &Logger{entry: l.entry.WithField("inst", name), queue: l.queue}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarning, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.log(LevelCritical, format, args...)
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	e := l.entry.WithField("level_name", level.String())
	e.Logf(level, format, args...)
	select {
	case l.queue <- e:
	default:
	}
}

// Listen drains every record forwarded onto the shared queue and hands it to
// sink, until stop is closed. Intended to run as the single listener
// goroutine multiplexing records from the executor and file writer workers.
func (l *Logger) Listen(stop <-chan struct{}, sink func(*logrus.Entry)) {
	for {
		select {
		case e := <-l.queue:
			sink(e)
		case <-stop:
			return
		}
	}
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// Default returns the process-wide default Logger, creating it on first use.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default Logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
