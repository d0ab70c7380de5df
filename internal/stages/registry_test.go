package stages

import (
	"testing"

	"github.com/restoreq/restoreq/internal/domain"
)

func TestNewRegistryRejectsDuplicateKeys(t *testing.T) {
	_, err := NewRegistry([]Definition{
		{Key: domain.StageCrop},
		{Key: domain.StageCrop},
	})
	if err == nil {
		t.Fatal("expected an error for a duplicate stage key")
	}
}

func TestNewRegistryRejectsMissingKey(t *testing.T) {
	_, err := NewRegistry([]Definition{{Key: ""}})
	if err == nil {
		t.Fatal("expected an error for a definition with no key")
	}
}

func TestStepsFiltersDisabledAndGatedStages(t *testing.T) {
	reg, err := NewRegistry([]Definition{
		{Key: domain.StageCrop, HumanName: "Crop"},
		{Key: domain.StageColorize, HumanName: "Colorize", Disabled: true},
		{Key: domain.StageOnlineRestore, HumanName: "Online Restore", RequiresAPIKey: "ONLINE_RESTORE_API_KEY"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	noAPIKey := func(string) bool { return false }
	steps := reg.Steps(noAPIKey)
	if _, ok := steps[domain.StageCrop]; !ok {
		t.Error("crop should be exposed")
	}
	if _, ok := steps[domain.StageColorize]; ok {
		t.Error("a disabled stage should not be exposed")
	}
	if _, ok := steps[domain.StageOnlineRestore]; ok {
		t.Error("online_restore should not be exposed without its API key set")
	}

	hasAPIKey := func(name string) bool { return name == "ONLINE_RESTORE_API_KEY" }
	steps = reg.Steps(hasAPIKey)
	if _, ok := steps[domain.StageOnlineRestore]; !ok {
		t.Error("online_restore should be exposed once its API key is set")
	}
}

func TestIsExposedMatchesSteps(t *testing.T) {
	reg, err := NewRegistry([]Definition{
		{Key: domain.StageCrop, HumanName: "Crop"},
		{Key: domain.StageColorize, HumanName: "Colorize", Disabled: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	always := func(string) bool { return true }

	if !reg.IsExposed(domain.StageCrop, always) {
		t.Error("crop should be exposed")
	}
	if reg.IsExposed(domain.StageColorize, always) {
		t.Error("a disabled stage should not be exposed")
	}
	if reg.IsExposed("not_a_stage", always) {
		t.Error("an unknown stage key should not be exposed")
	}
}

func TestManualKeysReturnsOnlyManualStages(t *testing.T) {
	reg, err := NewRegistry([]Definition{
		{Key: domain.StageCrop, Manual: true},
		{Key: domain.StageInpaint, Manual: true},
		{Key: domain.StageUpscale},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	manual := reg.ManualKeys()
	if len(manual) != 2 || !manual[domain.StageCrop] || !manual[domain.StageInpaint] {
		t.Errorf("ManualKeys = %+v, want exactly crop and inpaint", manual)
	}
	if manual[domain.StageUpscale] {
		t.Error("upscale should not be marked manual")
	}
}

func TestCatalogBuildsAllDomainStages(t *testing.T) {
	defs := NewCatalog(nil)
	reg, err := NewRegistry(defs)
	if err != nil {
		t.Fatalf("NewRegistry(NewCatalog(nil)): %v", err)
	}

	want := []domain.StageKey{
		domain.StageCrop, domain.StageInpaint, domain.StageSpotRemoval,
		domain.StageScratchRemoval, domain.StageFaceRestore, domain.StageColorize,
		domain.StageUpscale, domain.StageOnlineRestore,
	}
	for _, key := range want {
		if _, ok := reg.Get(key); !ok {
			t.Errorf("catalog is missing stage %q", key)
		}
	}
}

func TestCropOnCompleteClearsCropRect(t *testing.T) {
	var deleted []string
	defs := NewCatalog(func(path string) error {
		deleted = append(deleted, path)
		return nil
	})
	reg, err := NewRegistry(defs)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	crop, ok := reg.Get(domain.StageCrop)
	if !ok {
		t.Fatal("crop stage missing from catalog")
	}

	job := &domain.Job{CropRect: "0,0,10,10"}
	if crop.NeedsInput(job) {
		t.Fatal("NeedsInput should be false once CropRect is set")
	}
	crop.OnComplete(job)
	if job.CropRect != "" {
		t.Errorf("CropRect = %q after OnComplete, want empty", job.CropRect)
	}
	if len(deleted) != 0 {
		t.Errorf("crop's OnComplete should not delete any file, got %v", deleted)
	}
}

func TestInpaintOnCompleteDeletesMaskFile(t *testing.T) {
	var deleted []string
	defs := NewCatalog(func(path string) error {
		deleted = append(deleted, path)
		return nil
	})
	reg, err := NewRegistry(defs)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	inpaint, ok := reg.Get(domain.StageInpaint)
	if !ok {
		t.Fatal("inpaint stage missing from catalog")
	}

	job := &domain.Job{MaskPath: "/masks/mask_abcd.png"}
	inpaint.OnComplete(job)
	if job.MaskPath != "" {
		t.Errorf("MaskPath = %q after OnComplete, want empty", job.MaskPath)
	}
	if len(deleted) != 1 || deleted[0] != "/masks/mask_abcd.png" {
		t.Errorf("deleted = %v, want exactly the mask path", deleted)
	}
}

func TestFaceRestoreBuildArgsUsesSelectedModel(t *testing.T) {
	reg, err := NewRegistry(NewCatalog(nil))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	faceRestore, _ := reg.Get(domain.StageFaceRestore)
	script, argv := faceRestore.BuildArgs("/in.png", "/out.png", &domain.Job{}, "codeformer")
	if script != "face_restore.py" {
		t.Errorf("script = %q, want face_restore.py", script)
	}
	if len(argv) != 3 || argv[2] != "codeformer" {
		t.Errorf("argv = %v, want selected model codeformer as the third argument", argv)
	}
}
