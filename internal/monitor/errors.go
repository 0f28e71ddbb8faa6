package monitor

import "errors"

// Domain errors for the monitor package.
var (
	// ErrClosed is returned when starting a session after Close.
	ErrClosed = errors.New("monitor: manager closed")

	// ErrInvalidTuner is returned for a negative tuner index.
	ErrInvalidTuner = errors.New("monitor: invalid tuner index")

	// ErrInvalidTunerCount is returned when antenna mode is asked for fewer
	// than one tuner or more than MaxAntennaTuners.
	ErrInvalidTunerCount = errors.New("monitor: invalid tuner count")

	// ErrMissingSink is returned when a session is started without a sink.
	ErrMissingSink = errors.New("monitor: sink is required")
)
