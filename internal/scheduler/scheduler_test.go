package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/artifact"
	"github.com/restoreq/restoreq/internal/domain"
	"github.com/restoreq/restoreq/internal/pkg/logger"
	"github.com/restoreq/restoreq/internal/photostore"
	"github.com/restoreq/restoreq/internal/stages"
)

// fakeInvoker replaces worker.Invoker in tests: it never spawns a
// subprocess, just records calls and returns whatever the test told it
// to.
type fakeInvoker struct {
	mu        sync.Mutex
	calls     []domain.StageKey
	failStage domain.StageKey
	failErr   error
	cancelled []uuid.UUID

	// block, if set, is read from (and so blocks) by every Invoke call
	// before it returns. Tests use this to hold a job in Processing
	// long enough to observe a sibling job staying Pending.
	block chan struct{}
}

func (f *fakeInvoker) Invoke(ctx context.Context, _ uuid.UUID, script string, _ []string) ([]byte, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.StageKey(script)
	f.calls = append(f.calls, key)
	if f.failStage != "" && key == f.failStage {
		return nil, f.failErr
	}
	return []byte("ok"), nil
}

func (f *fakeInvoker) Cancel(jobID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (n *fakeNotifier) JobUpdated(job *domain.Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, job)
}

func (n *fakeNotifier) updateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.jobs)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// autoStage is an automatic (non-manual) one-step stage. BuildArgs
// returns the stage key as the script name so fakeInvoker can identify
// which stage a call belongs to without parsing argv.
func autoStage(key domain.StageKey) stages.Definition {
	return stages.Definition{
		Key:          key,
		HumanName:    string(key),
		OutputPrefix: string(key),
		BuildArgs: func(inputPath, outputPath string, _ *domain.Job, _ string) (string, []string) {
			return string(key), []string{inputPath, outputPath}
		},
	}
}

func manualCropStage() stages.Definition {
	return stages.Definition{
		Key:          domain.StageCrop,
		HumanName:    "Crop",
		OutputPrefix: "crop",
		Manual:       true,
		NeedsInput: func(job *domain.Job) bool {
			return job.CropRect == ""
		},
		BuildArgs: func(inputPath, outputPath string, job *domain.Job, _ string) (string, []string) {
			return string(domain.StageCrop), []string{inputPath, outputPath, job.CropRect}
		},
		OnComplete: func(job *domain.Job) {
			job.CropRect = ""
		},
	}
}

type testHarness struct {
	sched    *Scheduler
	invoker  *fakeInvoker
	notifier *fakeNotifier
	photos   *photostore.Store
	store    artifact.Store
}

func newHarness(t *testing.T, maxConcurrent int, defs ...stages.Definition) *testHarness {
	t.Helper()
	store, err := artifact.New(t.TempDir(), t.TempDir(), t.TempDir(), testLogger(t))
	if err != nil {
		t.Fatalf("artifact.New: %v", err)
	}
	registry, err := stages.NewRegistry(defs)
	if err != nil {
		t.Fatalf("stages.NewRegistry: %v", err)
	}
	photos := photostore.New()
	invoker := &fakeInvoker{}
	notifier := &fakeNotifier{}
	sched := New(registry, store, invoker, photos, notifier, func(string) bool { return true }, maxConcurrent, testLogger(t))
	sched.SetReady(true)
	return &testHarness{sched: sched, invoker: invoker, notifier: notifier, photos: photos, store: store}
}

func (h *testHarness) addPhoto(t *testing.T) *domain.Photo {
	t.Helper()
	path, stored, err := h.store.NewUpload([]byte("fake image bytes"), ".png")
	if err != nil {
		t.Fatalf("NewUpload: %v", err)
	}
	_ = path
	return h.photos.Add(stored, "photo.png")
}

// waitUntil polls cond every 5ms until it returns true or the timeout
// elapses, at which point it fails the test.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCreateJobsRejectsWhenNotReady(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	h.sched.SetReady(false)
	photo := h.addPhoto(t)

	_, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err == nil {
		t.Fatal("expected error when worker environment is not ready")
	}
}

func TestCreateJobsRejectsEmptyInputs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	photo := h.addPhoto(t)

	if _, err := h.sched.CreateJobs(CreateJobsRequest{Steps: []domain.StageKey{domain.StageSpotRemoval}}); err == nil {
		t.Fatal("expected error for empty photo ids")
	}
	if _, err := h.sched.CreateJobs(CreateJobsRequest{PhotoIDs: []uuid.UUID{photo.ID}}); err == nil {
		t.Fatal("expected error for empty steps")
	}
	if _, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{"not_a_real_stage"},
	}); err == nil {
		t.Fatal("expected error for an unexposed stage key")
	}
}

func TestAutomaticPipelineRunsToCompletion(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2, autoStage(domain.StageSpotRemoval), autoStage(domain.StageScratchRemoval))
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval, domain.StageScratchRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	id := jobs[0].ID

	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobCompleted
	})

	job, _ := h.sched.GetJob(id)
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
	if len(job.StepResults) != 2 {
		t.Errorf("len(StepResults) = %d, want 2", len(job.StepResults))
	}
	if job.Result == "" {
		t.Error("Result is empty on a completed job")
	}
}

func TestManualStageWithoutInputPausesImmediately(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, manualCropStage(), autoStage(domain.StageSpotRemoval))
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageCrop, domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	id := jobs[0].ID

	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobWaitingInput
	})

	job, _ := h.sched.GetJob(id)
	if job.WaitingStep == nil || *job.WaitingStep != domain.StageCrop {
		t.Fatalf("WaitingStep = %v, want crop", job.WaitingStep)
	}
	if h.invoker.callCount() != 0 {
		t.Errorf("invoker was called %d times before input was supplied", h.invoker.callCount())
	}
}

func TestSubmitInputResumesAndCompletes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, manualCropStage(), autoStage(domain.StageSpotRemoval))
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageCrop, domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	id := jobs[0].ID
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobWaitingInput
	})

	if err := h.sched.SubmitInput(id, SubmitInputRequest{CropRect: "0,0,10,10"}); err != nil {
		t.Fatalf("SubmitInput: %v", err)
	}

	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobCompleted
	})
}

func TestSubmitInputRejectedOutsideWaitingInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	photo := h.addPhoto(t)
	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(jobs[0].ID)
		return ok && j.Status == domain.JobCompleted
	})

	if err := h.sched.SubmitInput(jobs[0].ID, SubmitInputRequest{}); err == nil {
		t.Fatal("expected error submitting input to a completed job")
	}
}

func TestFailedStepCanBeRetried(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	h.invoker.failStage = domain.StageSpotRemoval
	h.invoker.failErr = errFakeWorker
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	id := jobs[0].ID

	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobFailed
	})

	job, _ := h.sched.GetJob(id)
	if job.FailedStep == nil || *job.FailedStep != domain.StageSpotRemoval {
		t.Fatalf("FailedStep = %v, want spot_removal", job.FailedStep)
	}
	if job.Error == "" {
		t.Error("Error is empty on a failed job")
	}

	h.invoker.mu.Lock()
	h.invoker.failStage = ""
	h.invoker.mu.Unlock()

	if err := h.sched.Retry(id, ""); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobCompleted
	})
}

func TestSkipFailedAdvancesPastFailedStep(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval), autoStage(domain.StageScratchRemoval))
	h.invoker.failStage = domain.StageSpotRemoval
	h.invoker.failErr = errFakeWorker
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval, domain.StageScratchRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	id := jobs[0].ID
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobFailed
	})

	if err := h.sched.SkipFailed(id); err != nil {
		t.Fatalf("SkipFailed: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(id)
		return ok && j.Status == domain.JobCompleted
	})
	job, _ := h.sched.GetJob(id)
	if len(job.StepResults) != 1 || job.StepResults[0].Stage != domain.StageScratchRemoval {
		t.Errorf("StepResults = %+v, want only scratch_removal to have run", job.StepResults)
	}
}

func TestCancelStopsAPendingJobBeforeItStarts(t *testing.T) {
	t.Parallel()
	// maxConcurrent=1 with two jobs: the first is held in Processing by
	// the invoker gate, so the second must still be Pending.
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	h.invoker.block = make(chan struct{})
	photoA := h.addPhoto(t)
	photoB := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photoA.ID, photoB.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}

	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(jobs[0].ID)
		return ok && j.Status == domain.JobProcessing
	})
	job, _ := h.sched.GetJob(jobs[1].ID)
	if job.Status != domain.JobPending {
		t.Fatalf("status = %v, want pending (only slot is held by job[0])", job.Status)
	}

	if err := h.sched.Cancel(jobs[1].ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	job, _ = h.sched.GetJob(jobs[1].ID)
	if job.Status != domain.JobCancelled {
		t.Fatalf("status = %v, want cancelled", job.Status)
	}
	if h.invoker.callCount() != 0 {
		t.Errorf("invoker was called %d times for a job cancelled while still pending", h.invoker.callCount())
	}

	close(h.invoker.block)
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(jobs[0].ID)
		return ok && j.Status == domain.JobCompleted
	})
}

func TestCancelAllOnlyTouchesActiveJobs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	h.invoker.failStage = domain.StageSpotRemoval
	h.invoker.failErr = errFakeWorker
	photo := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photo.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(jobs[0].ID)
		return ok && j.Status == domain.JobFailed
	})

	if n := h.sched.CancelAll(); n != 0 {
		t.Errorf("CancelAll cancelled %d jobs, want 0 (job is already failed, a terminal state)", n)
	}
}

func TestReorderChangesPendingDispatchOrder(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1, autoStage(domain.StageSpotRemoval))
	h.invoker.block = make(chan struct{}) // keep the single slot occupied so both stay queued
	photoA := h.addPhoto(t)
	photoB := h.addPhoto(t)

	jobs, err := h.sched.CreateJobs(CreateJobsRequest{
		PhotoIDs: []uuid.UUID{photoA.ID, photoB.ID},
		Steps:    []domain.StageKey{domain.StageSpotRemoval},
	})
	if err != nil {
		t.Fatalf("CreateJobs: %v", err)
	}
	waitUntil(t, time.Second, func() bool {
		j, ok := h.sched.GetJob(jobs[0].ID)
		return ok && j.Status == domain.JobProcessing
	})

	h.sched.Reorder([]uuid.UUID{jobs[1].ID, jobs[0].ID})

	list := h.sched.ListJobs()
	var pending []*domain.Job
	for _, j := range list {
		if j.Status == domain.JobPending {
			pending = append(pending, j)
		}
	}
	if len(pending) == 0 || pending[0].ID != jobs[1].ID {
		t.Errorf("after reorder, first pending job = %+v, want %s", pending, jobs[1].ID)
	}
	close(h.invoker.block)
}

func TestSetMaxConcurrentClampsToLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3, autoStage(domain.StageSpotRemoval))

	h.sched.SetMaxConcurrent(0)
	if got := h.sched.MaxConcurrent(); got != 3 {
		t.Errorf("SetMaxConcurrent(0) changed MaxConcurrent to %d, want unchanged 3", got)
	}
	h.sched.SetMaxConcurrent(10)
	if got := h.sched.MaxConcurrent(); got != 3 {
		t.Errorf("SetMaxConcurrent(10) changed MaxConcurrent to %d, want unchanged 3 (above limit)", got)
	}
	h.sched.SetMaxConcurrent(2)
	if got := h.sched.MaxConcurrent(); got != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", got)
	}
}

var errFakeWorker = fakeWorkerErr{}

type fakeWorkerErr struct{}

func (fakeWorkerErr) Error() string { return "fake worker failure" }
