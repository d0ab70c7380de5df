package worker

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

// ProcessTable maps a live job id to its running worker process. It
// is written only by Invoker's start/exit paths (Cancel only reads it);
// reads
// are instantaneous lookups, matching §3's "running process table".
type ProcessTable struct {
	mu    sync.Mutex
	procs map[uuid.UUID]*os.Process
}

func NewProcessTable() *ProcessTable {
	return &ProcessTable{procs: make(map[uuid.UUID]*os.Process)}
}

func (t *ProcessTable) register(jobID uuid.UUID, proc *os.Process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[jobID] = proc
}

func (t *ProcessTable) deregister(jobID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, jobID)
}

// Cancel sends a graceful termination signal to the process
// registered for jobID. It never kills by any other key, and is a
// no-op if no process is registered — the invoker may have already
// exited, or the job may never have reached a worker invocation.
func (t *ProcessTable) Cancel(jobID uuid.UUID) {
	t.mu.Lock()
	proc := t.procs[jobID]
	t.mu.Unlock()
	if proc == nil {
		return
	}
	_ = terminate(proc)
}

// Len reports how many workers are currently live; exposed for tests.
func (t *ProcessTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}
