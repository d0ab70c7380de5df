package stages

import (
	"github.com/restoreq/restoreq/internal/domain"
)

// NewCatalog builds the full, process-wide stage definition list.
// deleteFile releases a consumed per-stage input file (the mask PNG);
// it is injected rather than imported directly so this package never
// needs to depend on the artifact store, only on "can delete a path".
func NewCatalog(deleteFile func(path string) error) []Definition {
	noop := func(string) error { return nil }
	if deleteFile == nil {
		deleteFile = noop
	}

	return []Definition{
		{
			Key:                 domain.StageCrop,
			HumanName:           "Crop",
			DefaultWorkerScript: "crop.py",
			OutputPrefix:        "crop",
			Manual:              true,
			NeedsInput: func(job *domain.Job) bool {
				return job.CropRect == ""
			},
			BuildArgs: func(inputPath, outputPath string, job *domain.Job, _ string) (string, []string) {
				return "crop.py", []string{inputPath, outputPath, job.CropRect}
			},
			OnComplete: func(job *domain.Job) {
				job.CropRect = ""
			},
		},
		{
			Key:                 domain.StageInpaint,
			HumanName:           "Inpaint",
			DefaultWorkerScript: "inpaint.py",
			OutputPrefix:        "inpaint",
			Manual:              true,
			NeedsInput: func(job *domain.Job) bool {
				return job.MaskPath == ""
			},
			BuildArgs: func(inputPath, outputPath string, job *domain.Job, _ string) (string, []string) {
				return "inpaint.py", []string{inputPath, outputPath, job.MaskPath}
			},
			OnComplete: func(job *domain.Job) {
				if job.MaskPath != "" {
					_ = deleteFile(job.MaskPath)
					job.MaskPath = ""
				}
			},
		},
		{
			Key:                 domain.StageSpotRemoval,
			HumanName:           "Spot Removal",
			DefaultWorkerScript: "spot_removal.py",
			OutputPrefix:        "spot",
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, _ string) (string, []string) {
				return "spot_removal.py", []string{inputPath, outputPath}
			},
		},
		{
			Key:                 domain.StageScratchRemoval,
			HumanName:           "Scratch Removal",
			DefaultWorkerScript: "scratch_removal.py",
			OutputPrefix:        "scratch",
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, _ string) (string, []string) {
				return "scratch_removal.py", []string{inputPath, outputPath}
			},
		},
		{
			Key:                 domain.StageFaceRestore,
			HumanName:           "Face Restore",
			DefaultWorkerScript: "face_restore.py",
			OutputPrefix:        "face",
			DefaultModel:        "gfpgan",
			Models: map[string]ModelOption{
				"gfpgan":     {Name: "GFPGAN", Description: "Fast, general-purpose face restoration"},
				"codeformer": {Name: "CodeFormer", Description: "Higher fidelity, slower"},
			},
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, selectedModel string) (string, []string) {
				return "face_restore.py", []string{inputPath, outputPath, selectedModel}
			},
		},
		{
			Key:                 domain.StageColorize,
			HumanName:           "Colorize",
			DefaultWorkerScript: "colorize.py",
			OutputPrefix:        "color",
			DefaultModel:        "ddcolor",
			Models: map[string]ModelOption{
				"ddcolor":  {Name: "DDColor", Description: "Default colorization model"},
				"deoldify": {Name: "DeOldify", Description: "Classic photo colorization"},
			},
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, selectedModel string) (string, []string) {
				return "colorize.py", []string{inputPath, outputPath, selectedModel}
			},
		},
		{
			Key:                 domain.StageUpscale,
			HumanName:           "Upscale",
			DefaultWorkerScript: "upscale.py",
			OutputPrefix:        "upscale",
			DefaultModel:        "compact",
			Models: map[string]ModelOption{
				"compact":     {Name: "Compact", Description: "Fast general-purpose upscaler"},
				"real_esrgan": {Name: "Real-ESRGAN", Description: "Higher quality, slower"},
			},
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, selectedModel string) (string, []string) {
				return "upscale.py", []string{inputPath, outputPath, selectedModel}
			},
		},
		{
			Key:                 domain.StageOnlineRestore,
			HumanName:           "Online Restore",
			DefaultWorkerScript: "online_restore.py",
			OutputPrefix:        "online",
			RequiresAPIKey:      "ONLINE_RESTORE_API_KEY",
			BuildArgs: func(inputPath, outputPath string, _ *domain.Job, _ string) (string, []string) {
				return "online_restore.py", []string{inputPath, outputPath}
			},
		},
	}
}
