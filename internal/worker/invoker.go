// Package worker spawns external worker processes for one stage
// invocation, bounded by a wall-clock timeout and an output cap.
// Grounded on buildbeaver-buildbeaver's runner/runtime/exec.Runtime,
// which runs a foreign command via exec.CommandContext with an
// explicit working directory and environment; generalized here to
// register the live process in a ProcessTable so a later, independent
// Cancel(jobID) call can terminate it out of band.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/pkg/logger"
)

const (
	// DefaultTimeout is the hard wall-clock ceiling per invocation.
	DefaultTimeout = 5 * time.Minute
	// DefaultMaxOutput is the cap applied to stdout and to stderr,
	// each separately.
	DefaultMaxOutput = 10 * 1 << 20 // 10 MiB
)

// Invoker is stateless apart from the running-process table; it knows
// nothing about stages, only how to run a script and capture output.
type Invoker struct {
	Interpreter string
	Timeout     time.Duration
	MaxOutput   int64

	table *ProcessTable
	log   *logger.Logger
}

func NewInvoker(interpreter string, log *logger.Logger) *Invoker {
	return &Invoker{
		Interpreter: interpreter,
		Timeout:     DefaultTimeout,
		MaxOutput:   DefaultMaxOutput,
		table:       NewProcessTable(),
		log:         log.With("component", "WorkerInvoker"),
	}
}

// Table exposes the process table; only tests use it. Cancel below
// looks jobs up in the same table.
func (inv *Invoker) Table() *ProcessTable { return inv.table }

// Cancel sends a graceful termination signal to the process
// registered for jobID, or is a no-op if none is registered.
func (inv *Invoker) Cancel(jobID uuid.UUID) {
	inv.table.Cancel(jobID)
}

// Invoke spawns <interpreter> <script> <argv...>, waits for exit
// bounded by Timeout, and returns trimmed stdout on success.
func (inv *Invoker) Invoke(ctx context.Context, jobID uuid.UUID, script string, argv []string) ([]byte, error) {
	invokeCtx, cancel := context.WithTimeout(ctx, inv.Timeout)
	defer cancel()

	args := append([]string{script}, argv...)
	cmd := exec.CommandContext(invokeCtx, inv.Interpreter, args...)

	out := newCappedBuffer(inv.MaxOutput)
	errOut := newCappedBuffer(inv.MaxOutput)
	cmd.Stdout = out
	cmd.Stderr = errOut

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker: start %s: %w", script, err)
	}
	inv.table.register(jobID, cmd.Process)
	defer inv.table.deregister(jobID)

	waitErr := cmd.Wait()

	if out.overflowed || errOut.overflowed {
		return nil, &OutputOverflowError{JobID: jobID.String(), Limit: inv.MaxOutput}
	}
	if invokeCtx.Err() == context.DeadlineExceeded {
		return nil, &TimeoutError{JobID: jobID.String()}
	}
	if waitErr != nil {
		msg := strings.TrimSpace(errOut.buf.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		return nil, &FailedError{JobID: jobID.String(), Message: msg}
	}

	return bytes.TrimSpace(out.buf.Bytes()), nil
}

// cappedBuffer accumulates writes up to limit bytes; further writes
// flip overflowed and are dropped, so a runaway worker cannot exhaust
// memory while we still observe the failure deterministically.
type cappedBuffer struct {
	buf        bytes.Buffer
	limit      int64
	overflowed bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.overflowed {
		return len(p), nil
	}
	if int64(c.buf.Len()+len(p)) > c.limit {
		c.overflowed = true
		return len(p), nil
	}
	return c.buf.Write(p)
}
