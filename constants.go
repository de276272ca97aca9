package pxc

import "github.com/jstraq/go-pxc/internal/constants"

// Re-export constants for public API
const (
	ParamRetryLimit        = constants.ParamRetryLimit
	DefaultWriteDelay      = constants.DefaultWriteDelay
	LegacyIDQueryThreshold = constants.LegacyIDQueryThreshold
	ReservedAddressPrefix  = constants.ReservedAddressPrefix
	MinPollInterval        = constants.MinPollInterval
	CoarseWaitPoll         = constants.CoarseWaitPoll
	IndefiniteTimeout      = constants.IndefiniteTimeout
	ObserverPollInterval   = constants.ObserverPollInterval
	StatusLineCount        = constants.StatusLineCount
	ReadAllDownsampleTarget = constants.ReadAllDownsampleTarget
	TimestampLayout        = constants.TimestampLayout
)
