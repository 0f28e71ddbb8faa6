package process

import "errors"

// Errors returned by Runner.Run. Use errors.Is to check them.
var (
	// ErrTimeout is returned when the context deadline passes before the tool exits.
	ErrTimeout = errors.New("process: command timed out")

	// ErrCommandFailed is returned when the tool exits non-zero or reports an
	// error in its output.
	ErrCommandFailed = errors.New("process: command failed")

	// ErrBinaryNotFound is returned when the configured tool is not installed.
	ErrBinaryNotFound = errors.New("process: binary not found")
)
