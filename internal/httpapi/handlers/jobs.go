package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/domain"
	"github.com/restoreq/restoreq/internal/httpapi/response"
	"github.com/restoreq/restoreq/internal/scheduler"
)

type JobHandler struct {
	sched *scheduler.Scheduler
}

func NewJobHandler(sched *scheduler.Scheduler) *JobHandler {
	return &JobHandler{sched: sched}
}

type createJobsRequest struct {
	PhotoIDs  []uuid.UUID                `json:"photoIds"`
	Steps     []domain.StageKey          `json:"steps"`
	Options   map[domain.StageKey]string `json:"options"`
	CropRects map[uuid.UUID]string       `json:"cropRects"`
	Masks     map[uuid.UUID]string       `json:"masks"`
}

// Create implements POST /jobs.
func (h *JobHandler) Create(c *gin.Context) {
	var req createJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	jobs, err := h.sched.CreateJobs(scheduler.CreateJobsRequest{
		PhotoIDs:  req.PhotoIDs,
		Steps:     req.Steps,
		Options:   req.Options,
		CropRects: req.CropRects,
		Masks:     req.Masks,
	})
	if err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, jobs)
}

// List implements GET /jobs, which refreshes the heartbeat as a side
// effect (Scheduler.ListJobs does this internally).
func (h *JobHandler) List(c *gin.Context) {
	response.OK(c, h.sched.ListJobs())
}

func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	job, ok := h.sched.GetJob(id)
	if !ok {
		response.Error(c, http.StatusNotFound, "not_found", fmt.Errorf("job %s not found", id))
		return
	}
	response.OK(c, job)
}

type submitInputRequest struct {
	CropRect string `json:"cropRect"`
	Mask     string `json:"mask"`
}

func (h *JobHandler) SubmitInput(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	var req submitInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := h.sched.SubmitInput(id, scheduler.SubmitInputRequest{CropRect: req.CropRect, Mask: req.Mask}); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *JobHandler) Skip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := h.sched.SkipStep(id); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *JobHandler) Back(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := h.sched.Rewind(id); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

type retryRequest struct {
	Model string `json:"model"`
}

func (h *JobHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	var req retryRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.sched.Retry(id, req.Model); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *JobHandler) SkipFailed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := h.sched.SkipFailed(id); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *JobHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	if err := h.sched.Cancel(id); err != nil {
		response.FromSchedulerError(c, err)
		return
	}
	response.OK(c, gin.H{"ok": true})
}

func (h *JobHandler) CancelAll(c *gin.Context) {
	n := h.sched.CancelAll()
	response.OK(c, gin.H{"ok": true, "cancelled": n})
}

type reorderRequest struct {
	JobIDs []uuid.UUID `json:"jobIds"`
}

func (h *JobHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	h.sched.Reorder(req.JobIDs)
	response.OK(c, gin.H{"ok": true})
}
