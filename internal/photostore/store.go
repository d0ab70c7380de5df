// Package photostore is the in-memory Photo collection backing
// POST/GET/DELETE /photos. It is a plain mutex-guarded map, the same
// shape as the scheduler's Job Store but for the simpler entity that
// has no state machine of its own — grounded on the teacher's
// repository-over-a-map pattern used for request-scoped caches
// (internal/pkg/ctxutil), generalized here to a process-lifetime
// store since §1 rules out persistence across restarts entirely.
package photostore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/domain"
)

type Store struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*domain.Photo
}

func New() *Store {
	return &Store{photos: make(map[uuid.UUID]*domain.Photo)}
}

// Add registers a new photo, stamping its id and creation time.
func (s *Store) Add(storedFilename, displayName string) *domain.Photo {
	p := &domain.Photo{
		ID:             uuid.New(),
		StoredFilename: storedFilename,
		DisplayName:    displayName,
		CreatedAt:      time.Now(),
	}
	s.mu.Lock()
	s.photos[p.ID] = p
	s.mu.Unlock()
	return p
}

// Get satisfies scheduler.PhotoLookup.
func (s *Store) Get(id uuid.UUID) (*domain.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	return p, ok
}

// List returns all photos ordered by creation time ascending (upload
// order), matching the teacher's convention of stable list ordering
// for anything rendered in a gallery-style UI.
func (s *Store) List() []*domain.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Delete(id uuid.UUID) (*domain.Photo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if ok {
		delete(s.photos, id)
	}
	return p, ok
}

// Clear removes every photo and returns what was removed, so the
// caller can delete their backing files.
func (s *Store) Clear() []*domain.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, p)
	}
	s.photos = make(map[uuid.UUID]*domain.Photo)
	return out
}

// PurgeMissing drops every photo whose backing file no longer exists,
// called by the cleanup sweeper after it sweeps the filesystem.
func (s *Store) PurgeMissing(exists func(path string) bool, absPath func(storedFilename string) string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, p := range s.photos {
		if !exists(absPath(p.StoredFilename)) {
			delete(s.photos, id)
			removed++
		}
	}
	return removed
}
