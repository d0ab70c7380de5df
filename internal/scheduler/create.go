package scheduler

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/domain"
	stderrors "github.com/restoreq/restoreq/internal/pkg/errors"
)

// CreateJobs implements POST /jobs (§6, §4.4.1's "created -> enqueue ->
// pending" transition). One job is created per photo id, sharing
// Steps/Options; CropRects/Masks seed the per-photo manual-stage
// input so a job can, for example, start already holding its crop
// rectangle and skip straight past waiting_input.
func (s *Scheduler) CreateJobs(req CreateJobsRequest) ([]*domain.Job, error) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return nil, stderrors.ErrNotReady
	}

	if len(req.PhotoIDs) == 0 {
		return nil, fmt.Errorf("%w: photoIds is empty", stderrors.ErrInvalidArgument)
	}
	if len(req.Steps) == 0 {
		return nil, fmt.Errorf("%w: steps is empty", stderrors.ErrInvalidArgument)
	}
	for _, key := range req.Steps {
		if !s.registry.IsExposed(key, s.envNonEmpty) {
			return nil, fmt.Errorf("%w: unknown or unavailable stage %q", stderrors.ErrInvalidArgument, key)
		}
	}

	jobs := make([]*domain.Job, 0, len(req.PhotoIDs))
	s.mu.Lock()
	for _, photoID := range req.PhotoIDs {
		photo, ok := s.photos.Get(photoID)
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: photo %s", stderrors.ErrNotFound, photoID)
		}

		job := &domain.Job{
			ID:               uuid.New(),
			PhotoID:          photoID,
			PhotoName:        photo.DisplayName,
			OriginalPath:     s.photoPath(photo),
			Steps:            append([]domain.StageKey(nil), req.Steps...),
			Options:          cloneOptions(req.Options),
			Status:           domain.JobPending,
			CurrentInputPath: s.photoPath(photo),
			Priority:         len(s.jobs),
			CreatedAt:        time.Now(),
		}

		if rect, ok := req.CropRects[photoID]; ok && rect != "" {
			job.CropRect = rect
		}
		if dataURL, ok := req.Masks[photoID]; ok && dataURL != "" {
			path, err := s.writeMask(dataURL)
			if err != nil {
				s.mu.Unlock()
				return nil, fmt.Errorf("%w: decoding mask for photo %s: %v", stderrors.ErrInvalidArgument, photoID, err)
			}
			job.MaskPath = path
		}

		s.jobs[job.ID] = job
		jobs = append(jobs, s.withCanGoBackLocked(job).Clone())
	}
	s.mu.Unlock()

	s.dispatch()
	return jobs, nil
}

func (s *Scheduler) photoPath(photo *domain.Photo) string {
	return filepath.Join(s.store.UploadsDir(), photo.StoredFilename)
}

func cloneOptions(in map[domain.StageKey]string) map[domain.StageKey]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[domain.StageKey]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// writeMask decodes a data:image/png;base64,... URL and stores it
// under uploads, returning the new file's path.
func (s *Scheduler) writeMask(dataURL string) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.store.NewMask(raw)
}
