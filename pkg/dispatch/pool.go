package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gnana997/jsxusage/pkg/analyzer"
	"github.com/gnana997/jsxusage/pkg/util"
)

// Dialer starts worker id.
type Dialer func(ctx context.Context, id int) (Conn, error)

// StartPool starts n workers concurrently. If any fails to start, the ones
// that did are aborted. Workers are bound to ctx, which must outlive the
// run.
func StartPool(ctx context.Context, n int, dial Dialer) ([]Conn, error) {
	if n < 1 {
		n = 1
	}

	conns := make([]Conn, n)
	var g errgroup.Group
	for i := range conns {
		g.Go(func() error {
			conn, err := dial(ctx, i)
			if err != nil {
				return &WorkerFailureError{Worker: i, Err: err}
			}
			conns[i] = conn
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, conn := range conns {
			if conn != nil {
				conn.Abort()
			}
		}
		return nil, err
	}
	return conns, nil
}

// InProcessDialer runs workers as goroutines sharing opener's analyzer.
func InProcessDialer(opener *Opener, logger *slog.Logger) Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, id int) (Conn, error) {
		return NewPipeConn(ctx, opener.Open, logger.With("worker", id)), nil
	}
}

// ProcessDialer runs each worker as `exe args...`, typically the current
// executable's hidden worker command.
func ProcessDialer(exe string, args []string, stderr io.Writer) Dialer {
	if stderr == nil {
		stderr = os.Stderr
	}
	return func(ctx context.Context, id int) (Conn, error) {
		return StartProcess(ctx, exe, args, stderr)
	}
}

// Opener lazily creates one analyzer from the first Options it is given
// and hands the same analyzer to every caller after that.
type Opener struct {
	logger *slog.Logger

	once     sync.Once
	analyzer *analyzer.Analyzer
	err      error
}

// NewOpener returns an Opener. With a nil logger, the analyzer logs to
// stderr at the level carried in the options.
func NewOpener(logger *slog.Logger) *Opener {
	return &Opener{logger: logger}
}

// Open satisfies OpenFunc.
func (o *Opener) Open(opts Options) (FileAnalyzer, error) {
	o.once.Do(func() {
		logger := o.logger
		if logger == nil {
			cfg := util.DefaultLoggerConfig()
			if opts.LogLevel != "" {
				cfg.Level = util.ParseLogLevel(opts.LogLevel)
			}
			logger = util.NewLogger(cfg)
		}

		a, err := analyzer.New(analyzer.Options{
			Root:              opts.Root,
			BuiltinNamespaces: opts.BuiltinNamespaces,
			SkipBuiltins:      opts.SkipBuiltins,
			Logger:            logger,
		})
		if err != nil {
			o.err = fmt.Errorf("failed to create analyzer: %w", err)
			return
		}
		o.analyzer = a
	})

	if o.err != nil {
		return nil, o.err
	}
	return o.analyzer, nil
}

// Close releases the analyzer if one was opened.
func (o *Opener) Close() error {
	if o.analyzer == nil {
		return nil
	}
	return o.analyzer.Close()
}

// Invalidate drops the analyzer's cached result for path. It is a no-op
// before the first Open.
func (o *Opener) Invalidate(path string) {
	if o.analyzer != nil {
		o.analyzer.Invalidate(path)
	}
}
