package worker

import (
	"os"
	"syscall"
)

// terminate sends a graceful termination signal rather than an
// unconditional kill, giving the worker script a chance to flush
// partial output before the process dies.
func terminate(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
