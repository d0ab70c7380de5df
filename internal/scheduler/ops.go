package scheduler

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/domain"
	stderrors "github.com/restoreq/restoreq/internal/pkg/errors"
)

// SubmitInputRequest is the POST /jobs/:id/input body.
type SubmitInputRequest struct {
	CropRect string
	Mask     string // data URL
}

// SubmitInput implements §4.4.4's submitInput. Legal only from
// waiting_input.
func (s *Scheduler) SubmitInput(jobID uuid.UUID, req SubmitInputRequest) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if job.Status != domain.JobWaitingInput {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}

	if job.WaitingStep != nil && *job.WaitingStep == domain.StageCrop && req.CropRect != "" {
		job.CropRect = req.CropRect
	}
	if job.WaitingStep != nil && *job.WaitingStep == domain.StageInpaint && req.Mask != "" {
		path, err := s.writeMask(req.Mask)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: decoding mask: %v", stderrors.ErrInvalidArgument, err)
		}
		job.MaskPath = path
	}
	job.WaitingStep = nil
	job.WaitingImage = ""
	job.Status = domain.JobProcessing
	s.mu.Unlock()

	s.notify(jobID)
	go s.runPipeline(jobID)
	s.dispatch()
	return nil
}

// SkipStep implements §4.4.4's skipStep. Legal only from
// waiting_input.
func (s *Scheduler) SkipStep(jobID uuid.UUID) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if job.Status != domain.JobWaitingInput {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}
	job.ResumeFromStep++
	job.WaitingStep = nil
	job.WaitingImage = ""
	job.Status = domain.JobProcessing
	s.mu.Unlock()

	s.notify(jobID)
	go s.runPipeline(jobID)
	s.dispatch()
	return nil
}

// Rewind implements §4.4.4's rewind. Legal only from waiting_input.
func (s *Scheduler) Rewind(jobID uuid.UUID) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if job.Status != domain.JobWaitingInput {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}

	target := -1
	for i := job.ResumeFromStep - 1; i >= 0; i-- {
		if def, ok := s.registry.Get(job.Steps[i]); ok && def.Manual {
			target = i
			break
		}
	}
	if target < 0 {
		s.mu.Unlock()
		return stderrors.ErrNoPreviousManualStep
	}

	for i := target; i < len(job.Steps); i++ {
		switch job.Steps[i] {
		case domain.StageCrop:
			job.CropRect = ""
		case domain.StageInpaint:
			if job.MaskPath != "" {
				_ = s.store.Delete(job.MaskPath)
				job.MaskPath = ""
			}
		}
	}

	job.StepResults = truncateResults(job.StepResults, target)
	if len(job.StepResults) > 0 {
		last := job.StepResults[len(job.StepResults)-1]
		if path, ok := s.store.PathForURL(last.OutputURL); ok {
			job.CurrentInputPath = path
		}
	} else {
		job.CurrentInputPath = job.OriginalPath
	}

	job.ResumeFromStep = target
	job.WaitingStep = nil
	job.WaitingImage = ""
	job.Status = domain.JobProcessing
	s.mu.Unlock()

	s.notify(jobID)
	go s.runPipeline(jobID)
	s.dispatch()
	return nil
}

func truncateResults(in []domain.StepResult, n int) []domain.StepResult {
	if n >= len(in) {
		return in
	}
	return append([]domain.StepResult(nil), in[:n]...)
}

// Retry implements §4.4.5's retry. Legal only from failed; always
// permitted, even for a model unknown to the stage — a strict
// rejection was considered and declined, see DESIGN.md.
func (s *Scheduler) Retry(jobID uuid.UUID, model string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if job.Status != domain.JobFailed {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}

	if model != "" && job.FailedStep != nil {
		if job.Options == nil {
			job.Options = make(map[domain.StageKey]string)
		}
		job.Options[*job.FailedStep] = model
	}
	if job.FailedStepIndex != nil {
		job.ResumeFromStep = *job.FailedStepIndex
	}
	job.Error = ""
	job.FailedStep = nil
	job.FailedStepIndex = nil
	job.Status = domain.JobProcessing
	s.mu.Unlock()

	s.notify(jobID)
	go s.runPipeline(jobID)
	s.dispatch()
	return nil
}

// SkipFailed implements §4.4.5's skipFailed. Legal only from failed.
func (s *Scheduler) SkipFailed(jobID uuid.UUID) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if job.Status != domain.JobFailed {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}

	next := 0
	if job.FailedStepIndex != nil {
		next = *job.FailedStepIndex + 1
	}
	job.Error = ""
	job.FailedStep = nil
	job.FailedStepIndex = nil

	if next >= len(job.Steps) {
		job.ResumeFromStep = next
		s.finishCompletedLocked(job)
		s.mu.Unlock()
		s.notify(jobID)
		s.dispatch()
		return nil
	}

	job.ResumeFromStep = next
	job.Status = domain.JobProcessing
	s.mu.Unlock()

	s.notify(jobID)
	go s.runPipeline(jobID)
	s.dispatch()
	return nil
}

// cancelLocked transitions job to cancelled; mu must be held. It does
// not itself send the termination signal (that happens outside the
// lock, see Cancel/CancelAll) to keep the invoker call off the
// critical section.
func cancelLocked(job *domain.Job) {
	job.Status = domain.JobCancelled
	job.CurrentStep = nil
	job.WaitingStep = nil
	job.WaitingImage = ""
}

// Cancel implements §4.4.6. Valid only from pending, processing or
// waiting_input; a no-op (ErrIllegalStateTransition) from a terminal
// status.
func (s *Scheduler) Cancel(jobID uuid.UUID) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return stderrors.ErrNotFound
	}
	if !job.Status.IsActive() {
		s.mu.Unlock()
		return stderrors.ErrIllegalStateTransition
	}
	cancelLocked(job)
	s.mu.Unlock()

	s.invoker.Cancel(jobID)
	s.notify(jobID)
	s.dispatch()
	return nil
}

// CancelAll applies Cancel to every job in pending, processing or
// waiting_input and reports how many were cancelled.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	var ids []uuid.UUID
	for id, j := range s.jobs {
		if j.Status.IsActive() {
			cancelLocked(j)
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.invoker.Cancel(id)
		s.notify(id)
	}
	if len(ids) > 0 {
		s.dispatch()
	}
	return len(ids)
}

// CancelActiveWork is the heartbeat monitor's narrower cancellation:
// only pending and processing jobs are touched, per §4.5's explicit
// carve-out that waiting_input jobs are not consuming workers and
// should be left alone.
func (s *Scheduler) CancelActiveWork() int {
	s.mu.Lock()
	var ids []uuid.UUID
	for id, j := range s.jobs {
		if j.Status == domain.JobPending || j.Status == domain.JobProcessing {
			cancelLocked(j)
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.invoker.Cancel(id)
		s.notify(id)
	}
	if len(ids) > 0 {
		s.dispatch()
	}
	return len(ids)
}

// Reorder implements §4.4.7. Unknown or non-pending ids are silently
// ignored.
func (s *Scheduler) Reorder(orderedPendingIDs []uuid.UUID) {
	s.mu.Lock()
	for pos, id := range orderedPendingIDs {
		job, ok := s.jobs[id]
		if !ok || job.Status != domain.JobPending {
			continue
		}
		job.Priority = pos
	}
	s.mu.Unlock()
	s.dispatch()
}

// PurgeDanglingResults drops any job whose completed result no longer
// resolves to a file on disk, per §4.6's cleanup sweep. Used only by
// the cleanup sweeper, after it has already removed aged files.
func (s *Scheduler) PurgeDanglingResults(exists func(path string) bool, pathForURL func(url string) (string, bool)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, j := range s.jobs {
		if j.Status != domain.JobCompleted || j.Result == "" {
			continue
		}
		path, ok := pathForURL(j.Result)
		if !ok || exists(path) {
			continue
		}
		delete(s.jobs, id)
		removed++
	}
	return removed
}

// decodeDataURL is shared by CreateJobs and SubmitInput for mask
// payloads; kept here rather than in the artifact package since it is
// pure request parsing, not storage.
func decodeDataURL(dataURL string) ([]byte, error) {
	idx := strings.Index(dataURL, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	return base64.StdEncoding.DecodeString(dataURL[idx+1:])
}
