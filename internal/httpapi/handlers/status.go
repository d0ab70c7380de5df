package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/restoreq/restoreq/internal/httpapi/response"
	"github.com/restoreq/restoreq/internal/setup"
)

type StatusHandler struct {
	prober *setup.Prober
}

func NewStatusHandler(prober *setup.Prober) *StatusHandler {
	return &StatusHandler{prober: prober}
}

// Get implements GET /status.
func (h *StatusHandler) Get(c *gin.Context) {
	response.OK(c, h.prober.Probe())
}
