// Package interfaces provides internal interface definitions shared between the
// runtime workers and the rest of go-pxc. Kept separate from the public package to
// avoid circular imports between internal/runtime and the root package.
package interfaces

import "time"

// Transport is the narrow, opaque request/response contract internal/runtime needs
// from a bus driver. The public Transport in the root package is the same shape;
// this copy exists so internal/runtime doesn't import the root package.
type Transport interface {
	Enumerate() ([]string, error)
	Open(address string) (Handle, error)
}

// Handle is one exclusively-owned bus address.
type Handle interface {
	Query(text string, timeout time.Duration) (string, error)
	Write(text string, timeout time.Duration) error
	Clear() error
	Close() error
}

// Logger is the minimal leveled-logging contract internal/runtime depends on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// StatusPublisher receives the up-to-four observable status lines a running step
// publishes, plus the latest-value map the Observer exposes to a UI/plotter.
type StatusPublisher interface {
	PublishStatus(lines [4]string)
	PublishLatest(values map[string]string)
}
