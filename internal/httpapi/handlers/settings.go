package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/restoreq/restoreq/internal/httpapi/response"
	"github.com/restoreq/restoreq/internal/scheduler"
)

type SettingsHandler struct {
	sched *scheduler.Scheduler
}

func NewSettingsHandler(sched *scheduler.Scheduler) *SettingsHandler {
	return &SettingsHandler{sched: sched}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	response.OK(c, gin.H{
		"maxConcurrent":      h.sched.MaxConcurrent(),
		"maxConcurrentLimit": h.sched.MaxConcurrentLimit(),
	})
}

type settingsRequest struct {
	MaxConcurrent int `json:"maxConcurrent"`
}

func (h *SettingsHandler) Put(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	h.sched.SetMaxConcurrent(req.MaxConcurrent)
	response.OK(c, gin.H{
		"maxConcurrent":      h.sched.MaxConcurrent(),
		"maxConcurrentLimit": h.sched.MaxConcurrentLimit(),
	})
}
