package metablock

import "errors"

var (
	// ErrNotStarted is returned by Write if called before Start has
	// completed recovery.
	ErrNotStarted = errors.New("metablock: manager not started")

	// ErrAlreadyStarted is returned by Start if called more than once.
	ErrAlreadyStarted = errors.New("metablock: manager already started")

	// ErrShutDown is returned by Write once the manager has been shut
	// down.
	ErrShutDown = errors.New("metablock: manager shut down")

	// ErrRingExhausted is returned internally when the recovery scan runs
	// past twice the ring's total slot count without terminating, an
	// invariant violation, since the scan is bounded by construction.
	ErrRingExhausted = errors.New("metablock: recovery scan exceeded ring bound")
)
