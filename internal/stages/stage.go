// Package stages holds the process-wide, immutable stage catalog.
// Adding a stage is a data edit to catalog.go; the only per-stage
// polymorphism lives in the BuildArgs/OnComplete/NeedsInput function
// fields, mirroring the design note that argument-building is the
// sole dispatch point (grounded on the teacher's
// internal/jobs/runtime.Registry, generalized from a job_type->Handler
// interface to a stage-key->static-struct catalog since stages have
// no behavior beyond "build these args" and "release this input").
package stages

import (
	"github.com/restoreq/restoreq/internal/domain"
)

// ModelOption describes one selectable model variant for a stage.
type ModelOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Definition is the immutable, process-wide configuration for one
// stage. It is never mutated after the catalog is built.
type Definition struct {
	Key                 domain.StageKey
	HumanName           string
	DefaultWorkerScript string
	OutputPrefix        string
	Manual              bool

	// NeedsInput reports whether the job is missing the per-stage
	// input this manual stage requires. Nil for automatic stages.
	NeedsInput func(job *domain.Job) bool

	// BuildArgs returns the worker script and argv for one invocation.
	BuildArgs func(inputPath, outputPath string, job *domain.Job, selectedModel string) (script string, argv []string)

	// OnComplete releases any per-stage input the job consumed to run
	// this stage (e.g. deletes the mask file, clears CropRect).
	OnComplete func(job *domain.Job)

	Models         map[string]ModelOption
	DefaultModel   string
	RequiresAPIKey string
	Disabled       bool
}

// PublicStageInfo is the filtered view returned by GET /steps: it
// hides BuildArgs, OnComplete and NeedsInput, which are not
// meaningful to a caller.
type PublicStageInfo struct {
	Key          domain.StageKey        `json:"key"`
	HumanName    string                 `json:"humanName"`
	Manual       bool                   `json:"manual"`
	Models       map[string]ModelOption `json:"models,omitempty"`
	DefaultModel string                 `json:"defaultModel,omitempty"`
}
