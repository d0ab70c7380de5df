package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepResult records one completed stage's output, in pipeline order.
type StepResult struct {
	Stage     StageKey `json:"stage"`
	OutputURL string   `json:"outputUrl"`
}

// Job is the unit of scheduling: an ordered pipeline of stage keys
// bound to one photo, plus everything the scheduler needs to resume,
// rewind or retry it. Job is mutated only by the scheduler's single
// writer lock; readers (HTTP handlers, the heartbeat monitor) observe
// a snapshot copy made by Clone, which Scheduler.GetJob and
// Scheduler.ListJobs return.
type Job struct {
	ID uuid.UUID `json:"id"`

	PhotoID      uuid.UUID `json:"photoId"`
	PhotoName    string    `json:"photoName"`
	OriginalPath string    `json:"-"`

	Steps   []StageKey          `json:"steps"`
	Options map[StageKey]string `json:"options,omitempty"`

	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`

	CurrentStep  *StageKey `json:"currentStep,omitempty"`
	WaitingStep  *StageKey `json:"waitingStep,omitempty"`
	WaitingImage string    `json:"waitingImage,omitempty"`

	// CanGoBack is recomputed on every snapshot: true iff some stage
	// strictly before ResumeFromStep in Steps is manual.
	CanGoBack bool `json:"canGoBack"`

	ResumeFromStep   int    `json:"resumeFromStep"`
	CurrentInputPath string `json:"-"`

	StepResults []StepResult `json:"stepResults"`

	CropRect string `json:"-"`
	MaskPath string `json:"-"`

	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"createdAt"`

	Result string `json:"result,omitempty"`

	Error           string    `json:"error,omitempty"`
	FailedStep      *StageKey `json:"failedStep,omitempty"`
	FailedStepIndex *int      `json:"failedStepIndex,omitempty"`
}

// Clone returns a deep-enough copy for safe handoff to readers outside
// the scheduler's lock (slices and the options map are copied; nothing
// aliases the original job's mutable state).
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Steps = append([]StageKey(nil), j.Steps...)
	out.StepResults = append([]StepResult(nil), j.StepResults...)
	if j.Options != nil {
		out.Options = make(map[StageKey]string, len(j.Options))
		for k, v := range j.Options {
			out.Options[k] = v
		}
	}
	if j.CurrentStep != nil {
		v := *j.CurrentStep
		out.CurrentStep = &v
	}
	if j.WaitingStep != nil {
		v := *j.WaitingStep
		out.WaitingStep = &v
	}
	if j.FailedStep != nil {
		v := *j.FailedStep
		out.FailedStep = &v
	}
	if j.FailedStepIndex != nil {
		v := *j.FailedStepIndex
		out.FailedStepIndex = &v
	}
	return &out
}
