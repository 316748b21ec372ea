package util

import "runtime"

// DefaultParallel is the number of scan workers used when none is requested.
const DefaultParallel = 4

const (
	minParsers = 4
	maxParsers = 32
)

// ParserPoolSize returns override when positive, otherwise twice the CPU
// count clamped to [4, 32].
func ParserPoolSize(override int) int {
	if override > 0 {
		return override
	}
	return min(max(runtime.NumCPU()*2, minParsers), maxParsers)
}

// WorkerCount normalises a requested worker count: values below one fall
// back to DefaultParallel, and the result never exceeds the number of jobs
// (when jobs is known, i.e. > 0).
func WorkerCount(requested, jobs int) int {
	n := requested
	if n < 1 {
		n = DefaultParallel
	}
	if jobs > 0 && n > jobs {
		n = jobs
	}
	return n
}
