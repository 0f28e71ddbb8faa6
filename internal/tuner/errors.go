package tuner

import "errors"

// Domain errors for the tuner package.
//
// Read operations never return these; they degrade to nil or empty results.
// Commands (channel changes, clear, scan) surface them to the caller:
//
//	if errors.Is(err, tuner.ErrCommandFailed) {
//	    // report to the user
//	}
var (
	// ErrCommandFailed is returned when a tuner command is rejected or the
	// device cannot be reached.
	ErrCommandFailed = errors.New("tuner: command failed")

	// ErrInvalidChannel is returned when a channel argument is empty or out of range.
	ErrInvalidChannel = errors.New("tuner: invalid channel")

	// ErrInvalidTuner is returned for a negative tuner index.
	ErrInvalidTuner = errors.New("tuner: invalid tuner index")

	// ErrNotTuned is returned when a relative channel change is requested on
	// a tuner that has no numeric current channel.
	ErrNotTuned = errors.New("tuner: tuner has no current channel")

	// ErrDeviceUnreachable is returned by GetDeviceInfo when the model query fails.
	ErrDeviceUnreachable = errors.New("tuner: device unreachable")
)
