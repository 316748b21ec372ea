package dispatch

import (
	"errors"
	"fmt"
)

// ErrWorkerExited is returned by Recv when a worker's stream ends before a
// reply arrives.
var ErrWorkerExited = errors.New("worker exited before replying")

// WorkerFailureError reports a worker that crashed, exited early or sent a
// message that could not be decoded.
type WorkerFailureError struct {
	Worker int
	Err    error
}

func (e *WorkerFailureError) Error() string {
	return fmt.Sprintf("worker %d failed: %v", e.Worker, e.Err)
}

func (e *WorkerFailureError) Unwrap() error { return e.Err }

// AbortedError ends a run that could not complete. Processed counts files
// whose replies were handled; Total is the number of files known when the
// run stopped.
type AbortedError struct {
	Processed int
	Total     int
	Err       error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("aborted after processing %d of %d files: %v", e.Processed, e.Total, e.Err)
}

func (e *AbortedError) Unwrap() error { return e.Err }
