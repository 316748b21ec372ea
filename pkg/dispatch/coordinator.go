package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc"
)

// Handler consumes one reply on the coordinator's goroutine. It may feed
// new paths into a growing Source. A returned error aborts the run.
type Handler func(reply Reply) error

// Config wires a Coordinator.
type Config struct {
	Conns   []Conn
	Source  Source
	Handle  Handler
	Options Options
	Logger  *slog.Logger
}

// RunStats summarizes a finished run.
type RunStats struct {
	Workers        int
	Chunks         int
	FilesProcessed int
}

type workerState int

const (
	stateIdle workerState = iota
	stateBusy
	stateParked
	stateGone
)

type event struct {
	worker int
	reply  Reply
	err    error
}

// Coordinator drives a set of workers until the source is drained.
//
// The only blocking point of Run is waiting for the next reply from any
// worker. Replies are handled one at a time, so the Handler and Source need
// no locking.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	states  []workerState
	pending [][]string
	events  chan event
	readers *conc.WaitGroup

	inFlight int
	live     int
	stats    RunStats
}

// NewCoordinator creates a coordinator. Run may be called once.
func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := len(cfg.Conns)
	return &Coordinator{
		cfg:     cfg,
		logger:  logger,
		states:  make([]workerState, n),
		pending: make([][]string, n),
		events:  make(chan event, n),
		readers: conc.NewWaitGroup(),
		live:    n,
		stats:   RunStats{Workers: n},
	}
}

// Run dispatches until every worker has disconnected. On failure every
// remaining worker is aborted and an *AbortedError is returned.
func (c *Coordinator) Run(ctx context.Context) (RunStats, error) {
	c.logger.Debug("coordinator starting", "workers", len(c.cfg.Conns), "files", c.cfg.Source.Total())

	for i := range c.cfg.Conns {
		if err := c.dispatch(i); err != nil {
			return c.stats, c.abort(err)
		}
	}

	for c.live > 0 {
		select {
		case <-ctx.Done():
			return c.stats, c.abort(ctx.Err())

		case ev := <-c.events:
			if err := c.handle(ev); err != nil {
				return c.stats, c.abort(err)
			}
		}
	}

	c.readers.Wait()
	c.logger.Debug("coordinator finished",
		"chunks", c.stats.Chunks,
		"files", c.stats.FilesProcessed)
	return c.stats, nil
}

func (c *Coordinator) handle(ev event) error {
	c.inFlight--
	c.states[ev.worker] = stateIdle
	sent := c.pending[ev.worker]
	c.pending[ev.worker] = nil

	if ev.err != nil {
		c.states[ev.worker] = stateGone
		return &WorkerFailureError{Worker: ev.worker, Err: ev.err}
	}
	if len(ev.reply.FilesParsed) != len(sent) {
		c.states[ev.worker] = stateGone
		return &WorkerFailureError{
			Worker: ev.worker,
			Err:    fmt.Errorf("reply covers %d of %d requested files", len(ev.reply.FilesParsed), len(sent)),
		}
	}

	c.stats.FilesProcessed += len(ev.reply.FilesParsed)
	if err := c.cfg.Handle(ev.reply); err != nil {
		return err
	}

	if err := c.dispatch(ev.worker); err != nil {
		return err
	}
	return c.wake()
}

// dispatch gives worker i its next chunk, parks it, or disconnects it.
func (c *Coordinator) dispatch(i int) error {
	chunk := c.cfg.Source.Next()

	if len(chunk) > 0 {
		opts := c.cfg.Options
		if err := c.cfg.Conns[i].Send(Request{Paths: chunk, Options: &opts}); err != nil {
			c.states[i] = stateGone
			return &WorkerFailureError{Worker: i, Err: err}
		}
		c.states[i] = stateBusy
		c.pending[i] = chunk
		c.inFlight++
		c.stats.Chunks++
		c.receive(i)
		return nil
	}

	if c.cfg.Source.Growing() && c.inFlight > 0 {
		c.states[i] = stateParked
		return nil
	}

	return c.disconnect(i)
}

// wake re-dispatches parked workers after a reply may have grown the source.
func (c *Coordinator) wake() error {
	for i, state := range c.states {
		if state != stateParked {
			continue
		}
		if err := c.dispatch(i); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) receive(i int) {
	conn := c.cfg.Conns[i]
	c.readers.Go(func() {
		reply, err := conn.Recv()
		c.events <- event{worker: i, reply: reply, err: err}
	})
}

func (c *Coordinator) disconnect(i int) error {
	conn := c.cfg.Conns[i]
	c.states[i] = stateGone
	c.live--

	if err := conn.Send(Request{}); err != nil {
		return &WorkerFailureError{Worker: i, Err: err}
	}
	if err := conn.Close(); err != nil {
		c.logger.Warn("worker exited with error after disconnect", "worker", i, "error", err)
	}
	c.logger.Debug("worker disconnected", "worker", i)
	return nil
}

func (c *Coordinator) abort(cause error) error {
	// Abort is safe on workers that already disconnected or failed.
	for i, conn := range c.cfg.Conns {
		conn.Abort()
		c.states[i] = stateGone
	}
	c.readers.Wait()

	c.logger.Debug("coordinator aborted", "error", cause)
	return &AbortedError{
		Processed: c.stats.FilesProcessed,
		Total:     c.cfg.Source.Total(),
		Err:       cause,
	}
}
