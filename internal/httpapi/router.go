// Package httpapi is the ambient HTTP edge described in SPEC_FULL
// §1's expansion: a logic-free adapter over the scheduler, photostore
// and stage registry packages. Router shape grounded on the teacher's
// internal/http/router.go (flat route table, handler structs grouped
// by resource, middleware attached once at the top).
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/restoreq/restoreq/internal/httpapi/handlers"
)

type RouterConfig struct {
	PhotoHandler    *handlers.PhotoHandler
	JobHandler      *handlers.JobHandler
	StepsHandler    *handlers.StepsHandler
	SettingsHandler *handlers.SettingsHandler
	StatusHandler   *handlers.StatusHandler
	RealtimeHandler *handlers.RealtimeHandler
	HealthHandler   *handlers.HealthHandler

	UploadsDir string
	ResultsDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(AttachRequestContext())
	r.Use(CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.Check)
	}

	if cfg.PhotoHandler != nil {
		r.POST("/photos", cfg.PhotoHandler.Upload)
		r.GET("/photos", cfg.PhotoHandler.List)
		r.DELETE("/photos/:id", cfg.PhotoHandler.Delete)
		r.DELETE("/photos", cfg.PhotoHandler.Clear)
		r.POST("/photos/import", cfg.PhotoHandler.Import)
		r.POST("/photos/:id/crop", cfg.PhotoHandler.Crop)
		r.GET("/auto-crop/:photoId", cfg.PhotoHandler.AutoCrop)
	}

	if cfg.StepsHandler != nil {
		r.GET("/steps", cfg.StepsHandler.Get)
	}

	if cfg.JobHandler != nil {
		r.POST("/jobs", cfg.JobHandler.Create)
		r.GET("/jobs", cfg.JobHandler.List)
		r.GET("/jobs/:id", cfg.JobHandler.Get)
		r.POST("/jobs/:id/input", cfg.JobHandler.SubmitInput)
		r.POST("/jobs/:id/skip", cfg.JobHandler.Skip)
		r.POST("/jobs/:id/back", cfg.JobHandler.Back)
		r.POST("/jobs/:id/retry", cfg.JobHandler.Retry)
		r.POST("/jobs/:id/skip-failed", cfg.JobHandler.SkipFailed)
		r.POST("/jobs/:id/cancel", cfg.JobHandler.Cancel)
		r.POST("/jobs/cancel-all", cfg.JobHandler.CancelAll)
		r.PUT("/jobs/reorder", cfg.JobHandler.Reorder)
	}

	if cfg.SettingsHandler != nil {
		r.GET("/settings", cfg.SettingsHandler.Get)
		r.PUT("/settings", cfg.SettingsHandler.Put)
	}

	if cfg.StatusHandler != nil {
		r.GET("/status", cfg.StatusHandler.Get)
	}

	if cfg.RealtimeHandler != nil {
		r.GET("/jobs/stream", cfg.RealtimeHandler.Stream)
	}

	if cfg.UploadsDir != "" {
		r.Static("/uploads", cfg.UploadsDir)
	}
	if cfg.ResultsDir != "" {
		r.Static("/results", cfg.ResultsDir)
	}

	return r
}
