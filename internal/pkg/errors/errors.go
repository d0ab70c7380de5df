package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotReady is returned by job creation when the worker
	// environment has not finished bootstrapping.
	ErrNotReady = errors.New("worker environment not ready")
	// ErrNoPreviousManualStep is returned by rewind when no earlier
	// manual stage exists to rewind to.
	ErrNoPreviousManualStep = errors.New("no previous manual step")
	// ErrIllegalStateTransition is returned when an operation is
	// attempted from a job status that does not permit it.
	ErrIllegalStateTransition = errors.New("illegal state transition")
)
