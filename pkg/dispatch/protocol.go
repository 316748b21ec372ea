// Package dispatch distributes files to analysis workers in chunks and
// collects their partially resolved instances.
//
// Workers pull work: the coordinator sends a worker its next chunk only
// after the worker has replied to the previous one, so at most one chunk is
// outstanding per worker. A request with no paths tells the worker to exit.
//
// The wire format is JSON lines, one Request or Reply per line, so a worker
// can be a goroutine behind an io.Pipe or a child process on stdin/stdout.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/gnana997/jsxusage/pkg/extractor"
	"github.com/gnana997/jsxusage/pkg/report"
)

// Options configure the analyzer inside a worker. They travel with every
// request; a worker opens its analyzer from the first one it sees.
type Options struct {
	Root              string   `json:"root"`
	BuiltinNamespaces []string `json:"builtinNamespaces,omitempty"`
	SkipBuiltins      bool     `json:"skipBuiltins,omitempty"`
	LogLevel          string   `json:"logLevel,omitempty"`
}

// Request asks a worker to analyze Paths. Empty Paths is the disconnect
// signal.
type Request struct {
	Paths   []string `json:"paths"`
	Options *Options `json:"options,omitempty"`
}

// Disconnect reports whether the request tells the worker to exit.
func (r Request) Disconnect() bool { return len(r.Paths) == 0 }

// Reply carries the results of one chunk. FilesParsed lists every path of
// the request, including the ones listed in Failures.
type Reply struct {
	Instances   []report.Partial `json:"instances"`
	FilesParsed []string         `json:"filesParsed"`
	Failures    []FileFailure    `json:"failures,omitempty"`
}

// FailureKind classifies a per-file failure.
type FailureKind string

const (
	FailureMalformedName FailureKind = "malformedComponentName"
	FailureAnalysis      FailureKind = "analysis"
)

// FileFailure is a file a worker could not analyze. The rest of the chunk
// is unaffected.
type FileFailure struct {
	Path    string      `json:"path"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f FileFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// newFileFailure classifies err for the wire.
func newFileFailure(path string, err error) FileFailure {
	kind := FailureAnalysis
	var malformed *extractor.MalformedComponentNameError
	if errors.As(err, &malformed) {
		kind = FailureMalformedName
	}
	return FileFailure{Path: path, Kind: kind, Message: err.Error()}
}
