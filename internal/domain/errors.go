package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOutputExists signals the (topic, target) output was already produced.
	ErrOutputExists = errors.New("content output already exists for topic and target")
	// ErrInvalidTransition rejects backwards or terminal status moves.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotConfigured reports missing credentials required for a whole run.
	ErrNotConfigured = errors.New("required configuration missing")
	// ErrAttemptsExhausted marks a job that may not be resubmitted.
	ErrAttemptsExhausted = errors.New("job attempts exhausted")
	// ErrSweepInProgress is returned when another invocation holds the sweep lock.
	ErrSweepInProgress = errors.New("sweep already in progress")
	// ErrUnknownPlatform is returned for targets without a registered adapter.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrInvalidInput rejects malformed operator requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyReceipt rejects adapter results without a remote reference.
	ErrEmptyReceipt = errors.New("publish returned no remote id or url")
)
