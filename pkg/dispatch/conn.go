package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// Conn is the coordinator's handle on one worker.
//
// Send and Recv are never called concurrently with themselves. Close is
// called after the disconnect request was sent and waits for the worker to
// exit. Abort tears the worker down without waiting for pending work.
type Conn interface {
	Send(req Request) error
	Recv() (Reply, error)
	Close() error
	Abort()
}

var errAborted = errors.New("worker aborted")

// stream is the JSON-lines framing shared by both transports.
type stream struct {
	enc *json.Encoder
	dec *json.Decoder
}

func newStream(w io.Writer, r io.Reader) stream {
	return stream{enc: json.NewEncoder(w), dec: json.NewDecoder(r)}
}

func (s stream) send(req Request) error {
	if err := s.enc.Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func (s stream) recv() (Reply, error) {
	var reply Reply
	if err := s.dec.Decode(&reply); err != nil {
		if errors.Is(err, io.EOF) {
			return Reply{}, ErrWorkerExited
		}
		return Reply{}, fmt.Errorf("failed to decode reply: %w", err)
	}
	return reply, nil
}

// PipeConn runs Serve in a goroutine connected by in-memory pipes.
type PipeConn struct {
	stream
	reqW   *io.PipeWriter
	repR   *io.PipeReader
	cancel context.CancelFunc

	done     chan error
	waitOnce sync.Once
	waitErr  error
}

// NewPipeConn starts an in-process worker.
func NewPipeConn(ctx context.Context, open OpenFunc, logger *slog.Logger) *PipeConn {
	ctx, cancel := context.WithCancel(ctx)
	reqR, reqW := io.Pipe()
	repR, repW := io.Pipe()

	c := &PipeConn{
		stream: newStream(reqW, repR),
		reqW:   reqW,
		repR:   repR,
		cancel: cancel,
		done:   make(chan error, 1),
	}

	go func() {
		err := Serve(ctx, reqR, repW, open, logger)
		if err != nil {
			repW.CloseWithError(err)
		} else {
			repW.Close()
		}
		reqR.Close()
		c.done <- err
	}()

	return c
}

func (c *PipeConn) Send(req Request) error { return c.send(req) }

func (c *PipeConn) Recv() (Reply, error) { return c.recv() }

// Close waits for the worker goroutine to return.
func (c *PipeConn) Close() error {
	err := c.wait()
	c.cancel()
	c.reqW.Close()
	return err
}

// Abort cancels the worker and unblocks both pipe ends.
func (c *PipeConn) Abort() {
	c.cancel()
	c.reqW.CloseWithError(errAborted)
	c.repR.CloseWithError(errAborted)
	c.wait()
}

func (c *PipeConn) wait() error {
	c.waitOnce.Do(func() { c.waitErr = <-c.done })
	return c.waitErr
}

// ProcessConn talks to a worker child process over its stdin and stdout.
// The child's stderr is passed through for its logs.
type ProcessConn struct {
	stream
	cmd   *exec.Cmd
	stdin io.WriteCloser

	waitOnce sync.Once
	waitErr  error
}

// StartProcess launches path with args as a worker.
func StartProcess(ctx context.Context, path string, args []string, stderr io.Writer) (*ProcessConn, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}

	return &ProcessConn{
		stream: newStream(stdin, stdout),
		cmd:    cmd,
		stdin:  stdin,
	}, nil
}

func (c *ProcessConn) Send(req Request) error { return c.send(req) }

func (c *ProcessConn) Recv() (Reply, error) { return c.recv() }

// Close closes stdin and waits for the process to exit.
func (c *ProcessConn) Close() error {
	c.stdin.Close()
	return c.wait()
}

// Abort kills the process.
func (c *ProcessConn) Abort() {
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	c.wait()
}

func (c *ProcessConn) wait() error {
	c.waitOnce.Do(func() { c.waitErr = c.cmd.Wait() })
	return c.waitErr
}
