// Package config holds the defaults shared by the convbench tools.
package config

// Timing protocol
const (
	// DefaultWarmup is the number of untimed passes before measuring.
	DefaultWarmup = 3

	// DefaultRepeat is the number of timed passes that are averaged.
	DefaultRepeat = 10
)

// Output files
const (
	// DefaultOutCSV is where the batch tools write their table.
	DefaultOutCSV = "results.csv"

	// SessionLogName prefixes JSON session logs written by the batch tools.
	SessionLogName = "convbench"
)

// Driver conventions
const (
	// DriverProgram is the program name emitted in logged driver commands
	// and searched for when scraping logs.
	DriverProgram = "MIOpenDriver"

	// DirectionFlag selects the pass an external driver run measures.
	DirectionFlag = "-F"

	// CommandLogPrefix precedes every driver command the single-command
	// tool logs.
	CommandLogPrefix = "MIOpen(HIP): Command [LogCmdConvolution]"
)

// Environment variables passed to the single-command tool by the validator.
const (
	EnvLogCmd         = "MIOPEN_ENABLE_LOGGING_CMD"
	EnvForceImmediate = "MIOPEN_DEBUG_FORCE_IMMED_MODE_FALLBACK"
)

// Device parameters
const (
	// DefaultDeviceID selects the first device.
	DefaultDeviceID = 0

	// MemoryAlignment is the allocation granularity in bytes.
	MemoryAlignment = 64

	// StreamQueueDepth bounds the number of queued tasks per stream.
	StreamQueueDepth = 1000
)
