package domain

// StageKey identifies one stage in the fixed, process-wide stage
// catalog. It is an enum-like string rather than an int so that job
// records, worker argv and wire payloads stay human-readable.
type StageKey string

const (
	StageCrop           StageKey = "crop"
	StageInpaint        StageKey = "inpaint"
	StageSpotRemoval    StageKey = "spot_removal"
	StageScratchRemoval StageKey = "scratch_removal"
	StageFaceRestore    StageKey = "face_restore"
	StageColorize       StageKey = "colorize"
	StageUpscale        StageKey = "upscale"
	StageOnlineRestore  StageKey = "online_restore"
)
