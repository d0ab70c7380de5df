package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/restoreq/restoreq/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Stream implements the job-queue SSE endpoint, grounded on the
// teacher's RealtimeHandler.SSEStream.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	h.hub.ServeHTTP(c.Request.Context(), c.Writer)
}
