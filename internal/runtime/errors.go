package runtime

import "errors"

var (
	// ErrAlreadyStarted is returned by Start if the pool has already been
	// started.
	ErrAlreadyStarted = errors.New("runtime: pool already started")

	// ErrNotStarted reports an operation that needs a running pool. No
	// function in this package returns it.
	ErrNotStarted = errors.New("runtime: pool not started")

	// ErrUnknownWorker is the value workerByID panics with (and so
	// WorkerByID and PostTo) for an id outside [0, totalWorkers).
	ErrUnknownWorker = errors.New("runtime: unknown worker id")
)
