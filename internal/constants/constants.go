// Package constants holds the shared numeric and string defaults used across the
// transport, instrument, step, and runtime layers.
package constants

import "time"

// Parameter read/write retry behavior (spec §4.2).
const (
	// ParamRetryLimit is the number of attempts a Parameter read makes before
	// surfacing the last error; writes make a single attempt. A read is retried
	// after any failed attempt (Timeout included) and after a discrete reading
	// that doesn't appear in the declared value set.
	ParamRetryLimit = 10

	// DefaultWriteDelay is the per-model settling delay applied after a write when
	// the model declares none.
	DefaultWriteDelay = 0 * time.Second
)

// Transport identity-probe selection (spec §4.1).
const (
	// LegacyIDQueryThreshold is the address number above which `ID` is sent instead
	// of `*IDN?` during discovery and identity probing.
	LegacyIDQueryThreshold = 20

	// ReservedAddressPrefix marks bus addresses (e.g. virtual serial ports) that
	// enumerate() omits from discovery.
	ReservedAddressPrefix = "ASRL"
)

// Polling and wait bounds (spec §4.4.3, §4.4.4, §4.4.5).
const (
	// MinPollInterval is the floor every CMeas/Loop/Wait poll period is coerced to.
	MinPollInterval = 100 * time.Millisecond

	// CoarseWaitPoll is the abort-check granularity for a bare time-only Wait.
	CoarseWaitPoll = 200 * time.Millisecond

	// IndefiniteTimeout is the largest representable duration ("wait forever").
	// The steps do not substitute it: they treat a declared timeout of zero as
	// no deadline, still interruptible by abort.
	IndefiniteTimeout = 1<<63 - 1
)

// Observer and file-protocol bounds (spec §4.5, §6.1).
const (
	// ObserverPollInterval is the UI/plot refresh cadence ceiling (up to 2Hz).
	ObserverPollInterval = 500 * time.Millisecond

	// StatusLineCount is the number of observable status strings a Step publishes.
	StatusLineCount = 4

	// ReadAllDownsampleTarget is the length Read All decimates toward.
	ReadAllDownsampleTarget = 2000
)

// TimestampLayout is the canonical, local-timezone, microsecond-precision layout used
// for the Timestamp column (spec §3, §6.2).
const TimestampLayout = "2006-01-02 15:04:05.000000"
