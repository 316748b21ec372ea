package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gnana997/jsxusage/pkg/report"
)

// FileAnalyzer is the per-file work a worker performs.
type FileAnalyzer interface {
	Analyze(path string) ([]report.Partial, error)
}

// OpenFunc returns the analyzer a worker uses, given the options of its
// first request. Serve does not close what it opens; the owner does.
type OpenFunc func(Options) (FileAnalyzer, error)

// Serve runs the worker side of the protocol until a disconnect request,
// the end of r, or ctx cancellation. Each request is answered with exactly
// one reply listing every requested path.
func Serve(ctx context.Context, r io.Reader, w io.Writer, open OpenFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	var analyzer FileAnalyzer
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("request stream closed")
				return nil
			}
			return fmt.Errorf("failed to decode request: %w", err)
		}

		if req.Disconnect() {
			logger.Debug("disconnect received")
			return nil
		}

		if analyzer == nil {
			var opts Options
			if req.Options != nil {
				opts = *req.Options
			}
			a, err := open(opts)
			if err != nil {
				return fmt.Errorf("failed to open analyzer: %w", err)
			}
			analyzer = a
		}

		reply, err := serveChunk(ctx, analyzer, req.Paths, logger)
		if err != nil {
			return err
		}
		if err := enc.Encode(reply); err != nil {
			return fmt.Errorf("failed to encode reply: %w", err)
		}
	}
}

func serveChunk(ctx context.Context, analyzer FileAnalyzer, paths []string, logger *slog.Logger) (Reply, error) {
	reply := Reply{
		Instances:   []report.Partial{},
		FilesParsed: make([]string, 0, len(paths)),
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Reply{}, err
		}

		partials, err := analyzer.Analyze(path)
		reply.FilesParsed = append(reply.FilesParsed, path)
		if err != nil {
			logger.Debug("file failed", "file", path, "error", err)
			reply.Failures = append(reply.Failures, newFileFailure(path, err))
			continue
		}
		reply.Instances = append(reply.Instances, partials...)
	}

	logger.Debug("chunk done", "files", len(paths), "instances", len(reply.Instances), "failures", len(reply.Failures))
	return reply, nil
}
