package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/domain"
)

// Invoker is the scheduler's view of worker.Invoker, narrowed to an
// interface so tests can substitute a fake process launcher without
// spawning real subprocesses.
type Invoker interface {
	Invoke(ctx context.Context, jobID uuid.UUID, script string, argv []string) ([]byte, error)
	Cancel(jobID uuid.UUID)
}

// PhotoLookup is the scheduler's only dependency on the photo
// collection: it needs a photo's stored path and display name at job
// creation time and nothing more. Satisfied by photostore.Store.
type PhotoLookup interface {
	Get(id uuid.UUID) (*domain.Photo, bool)
}

// Notifier receives a snapshot of a job when the scheduler changes its
// state or progress; priority changes from Reorder and dangling-result
// purges are not notified. Satisfied by realtime.Hub; nil is permitted
// (no-op).
type Notifier interface {
	JobUpdated(job *domain.Job)
}

// CreateJobsRequest mirrors the POST /jobs body. CropRects and Masks
// are keyed by photo id since a single creation call can submit a
// batch of photos sharing one pipeline but distinct manual inputs.
type CreateJobsRequest struct {
	PhotoIDs  []uuid.UUID
	Steps     []domain.StageKey
	Options   map[domain.StageKey]string
	CropRects map[uuid.UUID]string
	Masks     map[uuid.UUID]string // data URLs, data:image/png;base64,...
}
