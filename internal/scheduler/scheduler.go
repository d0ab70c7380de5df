// Package scheduler is the admission and dispatch engine: the ~40%
// core named in §2's size budget. It owns the Job Store, drives each
// job's state machine, and is the single writer of job records,
// matching §5's "single-threaded cooperative orchestration" rule
// implemented here as one mutex guarding a map mutated from
// per-job goroutines — grounded on the teacher's
// internal/jobs/orchestrator engine.go (a Run loop re-entered on every
// event) generalized from a single-goroutine DAG walk to N
// concurrently-running per-job goroutines serialized by one lock,
// the shape the teacher's own Worker.runLoop takes at the next layer
// up (N claimant goroutines serialized by Postgres row locks; here,
// by this mutex).
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/artifact"
	"github.com/restoreq/restoreq/internal/domain"
	"github.com/restoreq/restoreq/internal/pkg/logger"
	"github.com/restoreq/restoreq/internal/stages"
)

// Scheduler is safe for concurrent use. All fields below mu are
// mutated only while mu is held; the worker invocation itself runs
// with mu released so a 5-minute stage never blocks the rest of the
// system (§5's "awaiting a worker process exit" suspension point).
type Scheduler struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	maxConcurrent      int
	maxConcurrentLimit int
	lastHeartbeat       time.Time
	ready               bool

	registry *stages.Registry
	store    artifact.Store
	invoker  Invoker
	photos   PhotoLookup
	notifier Notifier
	envNonEmpty func(string) bool

	log *logger.Logger
}

// New builds a Scheduler. maxConcurrentLimit is the configured ceiling
// (MAX_CONCURRENT_JOBS, clamped to ≥ 1 by the caller); maxConcurrent
// starts equal to it.
func New(
	registry *stages.Registry,
	store artifact.Store,
	invoker Invoker,
	photos PhotoLookup,
	notifier Notifier,
	envNonEmpty func(string) bool,
	maxConcurrentLimit int,
	log *logger.Logger,
) *Scheduler {
	if maxConcurrentLimit < 1 {
		maxConcurrentLimit = 1
	}
	return &Scheduler{
		jobs:               make(map[uuid.UUID]*domain.Job),
		maxConcurrent:       maxConcurrentLimit,
		maxConcurrentLimit:  maxConcurrentLimit,
		lastHeartbeat:       time.Now(),
		registry:            registry,
		store:               store,
		invoker:             invoker,
		photos:              photos,
		notifier:            notifier,
		envNonEmpty:         envNonEmpty,
		log:                 log.With("component", "Scheduler"),
	}
}

// AttachNotifier wires the realtime hub after construction: the hub's
// constructor takes the scheduler's Touch method, so it cannot itself
// be built before New returns.
func (s *Scheduler) AttachNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// SetReady flips the worker-environment readiness gate; job creation
// returns ErrNotReady while it is false (§7's NotReady kind).
func (s *Scheduler) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Touch refreshes the heartbeat's liveness timestamp. Called by the
// realtime hub when an SSE connection opens; ListJobs (GET /jobs)
// refreshes the same timestamp itself. Both are valid "client is
// alive" signals per the heartbeat monitor's expanded contract.
func (s *Scheduler) Touch() {
	s.mu.Lock()
	s.lastHeartbeat = time.Now()
	s.mu.Unlock()
}

// LastHeartbeat reports the last refresh time, read by the heartbeat
// monitor's own ticker goroutine.
func (s *Scheduler) LastHeartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeartbeat
}

func (s *Scheduler) notify(jobID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	var snap *domain.Job
	if ok {
		snap = s.withCanGoBackLocked(job).Clone()
	}
	s.mu.Unlock()
	if snap != nil {
		s.notifier.JobUpdated(snap)
	}
}

// withCanGoBackLocked recomputes CanGoBack in place; must be called
// with mu held. Returns job for call-site chaining.
func (s *Scheduler) withCanGoBackLocked(job *domain.Job) *domain.Job {
	job.CanGoBack = s.hasEarlierManualStepLocked(job)
	return job
}

func (s *Scheduler) hasEarlierManualStepLocked(job *domain.Job) bool {
	for i := 0; i < job.ResumeFromStep && i < len(job.Steps); i++ {
		if def, ok := s.registry.Get(job.Steps[i]); ok && def.Manual {
			return true
		}
	}
	return false
}

func (s *Scheduler) jobHasManualStepLocked(job *domain.Job) bool {
	for _, key := range job.Steps {
		if def, ok := s.registry.Get(key); ok && def.Manual {
			return true
		}
	}
	return false
}

func willPauseImmediately(def stages.Definition, job *domain.Job) bool {
	return def.Manual && def.NeedsInput != nil && def.NeedsInput(job)
}

// GetJob returns a snapshot, or false if no such job exists.
func (s *Scheduler) GetJob(id uuid.UUID) (*domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return s.withCanGoBackLocked(job).Clone(), true
}

// ListJobs refreshes the heartbeat (per §6's GET /jobs contract) and
// returns all jobs ordered: waiting_input, processing, pending by
// priority ascending, then terminal states by createdAt descending.
func (s *Scheduler) ListJobs() []*domain.Job {
	s.mu.Lock()
	s.lastHeartbeat = time.Now()

	out := make([]*domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, s.withCanGoBackLocked(j).Clone())
	}
	s.mu.Unlock()

	rank := func(j *domain.Job) int {
		switch j.Status {
		case domain.JobWaitingInput:
			return 0
		case domain.JobProcessing:
			return 1
		case domain.JobPending:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		ja, jb := out[a], out[b]
		ra, rb := rank(ja), rank(jb)
		if ra != rb {
			return ra < rb
		}
		switch ra {
		case 2:
			return ja.Priority < jb.Priority
		case 3:
			return ja.CreatedAt.After(jb.CreatedAt)
		default:
			return false
		}
	})
	return out
}

// MaxConcurrent and MaxConcurrentLimit back GET /settings.
func (s *Scheduler) MaxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxConcurrent
}

func (s *Scheduler) MaxConcurrentLimit() int {
	return s.maxConcurrentLimit
}

// SetMaxConcurrent accepts v in [1, maxConcurrentLimit]; silently
// ignores out-of-range values and always redispatches on success.
func (s *Scheduler) SetMaxConcurrent(v int) {
	s.mu.Lock()
	if v < 1 || v > s.maxConcurrentLimit {
		s.mu.Unlock()
		return
	}
	s.maxConcurrent = v
	s.mu.Unlock()
	s.dispatch()
}

// dispatch implements §4.4.2. It must never be called while mu is
// held by the caller.
func (s *Scheduler) dispatch() {
	s.mu.Lock()

	running := 0
	hasWaitingManual := false
	for _, j := range s.jobs {
		switch j.Status {
		case domain.JobProcessing:
			running++
		case domain.JobWaitingInput:
			hasWaitingManual = true
		}
	}

	var candidates []*domain.Job
	for _, j := range s.jobs {
		if j.Status != domain.JobPending {
			continue
		}
		if hasWaitingManual && s.jobHasManualStepLocked(j) {
			continue
		}
		candidates = append(candidates, j)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Priority < candidates[b].Priority
	})

	slotsUsed := 0
	var toStart []uuid.UUID
	for _, j := range candidates {
		willPause := false
		if j.ResumeFromStep < len(j.Steps) {
			if def, ok := s.registry.Get(j.Steps[j.ResumeFromStep]); ok {
				willPause = willPauseImmediately(def, j)
			}
		}
		if willPause {
			j.Status = domain.JobProcessing
			toStart = append(toStart, j.ID)
			continue
		}
		if running+slotsUsed < s.maxConcurrent {
			j.Status = domain.JobProcessing
			toStart = append(toStart, j.ID)
			slotsUsed++
		}
	}
	s.mu.Unlock()

	for _, id := range toStart {
		s.notify(id)
		go s.runPipeline(id)
	}
}

// runPipeline implements §4.4.3. It owns the job's thread of
// execution from resumeFromStep until the job pauses, fails,
// completes, or is cancelled.
func (s *Scheduler) runPipeline(jobID uuid.UUID) {
	for {
		s.mu.Lock()
		job, ok := s.jobs[jobID]
		if !ok || job.Status != domain.JobProcessing {
			s.mu.Unlock()
			return
		}

		i := job.ResumeFromStep
		if i >= len(job.Steps) {
			s.finishCompletedLocked(job)
			s.mu.Unlock()
			s.notify(jobID)
			s.dispatch()
			return
		}

		def, ok := s.registry.Get(job.Steps[i])
		if !ok {
			// Forward-compatible: an unregistered stage key is
			// skipped rather than failing the job.
			job.ResumeFromStep++
			s.mu.Unlock()
			continue
		}

		if willPauseImmediately(def, job) {
			key := def.Key
			job.Status = domain.JobWaitingInput
			job.WaitingStep = &key
			job.WaitingImage = s.store.URLFor(job.CurrentInputPath)
			job.CurrentStep = nil
			job.Progress = progressOf(i, len(job.Steps))
			s.mu.Unlock()
			s.notify(jobID)
			s.dispatch()
			return
		}

		key := def.Key
		job.CurrentStep = &key
		job.Progress = progressOf(i, len(job.Steps))
		outputPath := s.store.StageOutputPath(job.PhotoName, def.OutputPrefix, job.ID.String())
		selectedModel := def.DefaultModel
		if m, ok := job.Options[def.Key]; ok && m != "" {
			selectedModel = m
		}
		script, argv := def.BuildArgs(job.CurrentInputPath, outputPath, job, selectedModel)
		cancelledBefore := job.Status == domain.JobCancelled
		s.mu.Unlock()

		if cancelledBefore {
			return
		}
		s.notify(jobID)

		_, invokeErr := s.invoker.Invoke(context.Background(), jobID, script, argv)

		s.mu.Lock()
		job, ok = s.jobs[jobID]
		if !ok {
			s.mu.Unlock()
			return
		}
		if job.Status == domain.JobCancelled {
			s.mu.Unlock()
			return
		}
		if invokeErr != nil {
			s.failLocked(job, def.Key, i, invokeErr)
			s.mu.Unlock()
			s.notify(jobID)
			s.dispatch()
			return
		}

		if def.OnComplete != nil {
			def.OnComplete(job)
		}
		job.StepResults = append(job.StepResults, domain.StepResult{
			Stage:     def.Key,
			OutputURL: s.store.URLFor(outputPath),
		})
		job.CurrentInputPath = outputPath
		job.ResumeFromStep = i + 1
		s.mu.Unlock()

		s.notify(jobID)
		s.dispatch()
		// loop continues on this same goroutine for the next step.
	}
}

func progressOf(i, n int) int {
	if n == 0 {
		return 100
	}
	return (100 * i) / n
}

// failLocked transitions job to failed; mu must be held.
func (s *Scheduler) failLocked(job *domain.Job, stage domain.StageKey, index int, err error) {
	job.Status = domain.JobFailed
	job.CurrentStep = nil
	job.Error = err.Error()
	st := stage
	job.FailedStep = &st
	idx := index
	job.FailedStepIndex = &idx
}

// finishCompletedLocked transitions job to completed; mu must be held.
func (s *Scheduler) finishCompletedLocked(job *domain.Job) {
	job.Status = domain.JobCompleted
	job.Progress = 100
	job.CurrentStep = nil
	job.WaitingStep = nil
	job.WaitingImage = ""
	if n := len(job.StepResults); n > 0 {
		job.Result = job.StepResults[n-1].OutputURL
	} else {
		job.Result = ""
	}
}
