package inference

import "fmt"

// LaunchError means the worker process could not be started at all.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch worker %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExecutionError means the worker ran and exited non-zero, or was killed
// after exceeding its timeout.
type ExecutionError struct {
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *ExecutionError) Error() string {
	if e.TimedOut {
		return "worker timed out"
	}
	return fmt.Sprintf("worker exited with code %d", e.ExitCode)
}

// ParseError means the worker exited 0 but its stdout was not a valid result.
type ParseError struct {
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse worker output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StreamError means reading one of the worker's output streams failed.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("read worker output: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
