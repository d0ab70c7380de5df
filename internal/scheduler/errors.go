package scheduler

import "errors"

// These extend the shared errors package with the worker-failure kinds
// from §7's error table. They are never returned from a Scheduler
// method — a worker failure always lands the job in failed, with the
// worker error's own message recorded on the job record. Nothing in
// the module currently references them.
var (
	ErrWorkerFailed         = errors.New("worker failed")
	ErrWorkerTimeout        = errors.New("worker timeout")
	ErrWorkerOutputOverflow = errors.New("worker output overflow")
)
