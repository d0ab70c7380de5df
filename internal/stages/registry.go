package stages

import (
	"fmt"
	"sync"

	"github.com/restoreq/restoreq/internal/domain"
)

// Registry is the map-backed (unordered) catalog of stage definitions. Registration
// happens once at process startup; lookups happen concurrently from
// the scheduler and the HTTP edge, so reads are guarded the same way
// the teacher's runtime.Registry guards job_type->handler lookups.
type Registry struct {
	mu    sync.RWMutex
	byKey map[domain.StageKey]Definition
}

// NewRegistry builds a Registry from a fixed list of definitions.
// Duplicate keys are a programming error and are rejected immediately,
// the same "fail fast on wiring mistakes" stance as the teacher.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{byKey: make(map[domain.StageKey]Definition, len(defs))}
	for _, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("stage definition missing Key")
		}
		if _, exists := r.byKey[d.Key]; exists {
			return nil, fmt.Errorf("duplicate stage definition for key=%s", d.Key)
		}
		r.byKey[d.Key] = d
	}
	return r, nil
}

// Get returns the full definition for a stage key, including the
// private BuildArgs/OnComplete/NeedsInput fields. Used only by the
// scheduler, never exposed over HTTP.
func (r *Registry) Get(key domain.StageKey) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byKey[key]
	return d, ok
}

// Steps returns the filtered public view of the catalog: stages that
// are disabled, or whose RequiresAPIKey env var is unset, are dropped
// at enumeration time rather than marked inactive, matching the
// spec's "filtered at enumeration time" contract for GET /steps.
func (r *Registry) Steps(envNonEmpty func(name string) bool) map[domain.StageKey]PublicStageInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.StageKey]PublicStageInfo, len(r.byKey))
	for key, d := range r.byKey {
		if d.Disabled {
			continue
		}
		if d.RequiresAPIKey != "" && (envNonEmpty == nil || !envNonEmpty(d.RequiresAPIKey)) {
			continue
		}
		out[key] = PublicStageInfo{
			Key:          d.Key,
			HumanName:    d.HumanName,
			Manual:       d.Manual,
			Models:       d.Models,
			DefaultModel: d.DefaultModel,
		}
	}
	return out
}

// IsExposed reports whether a stage key would appear in Steps() right
// now; job creation uses this to reject pipelines naming a stage the
// caller cannot legitimately see.
func (r *Registry) IsExposed(key domain.StageKey, envNonEmpty func(name string) bool) bool {
	r.mu.RLock()
	d, ok := r.byKey[key]
	r.mu.RUnlock()
	if !ok || d.Disabled {
		return false
	}
	if d.RequiresAPIKey != "" && (envNonEmpty == nil || !envNonEmpty(d.RequiresAPIKey)) {
		return false
	}
	return true
}

// ManualKeys returns the derived set of stage keys flagged manual=true.
// The set is rebuilt from the registry on every call; nothing caches it.
func (r *Registry) ManualKeys() map[domain.StageKey]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.StageKey]bool)
	for key, d := range r.byKey {
		if d.Manual {
			out[key] = true
		}
	}
	return out
}
