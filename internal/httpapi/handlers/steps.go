package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/restoreq/restoreq/internal/httpapi/response"
	"github.com/restoreq/restoreq/internal/pkg/envutil"
	"github.com/restoreq/restoreq/internal/stages"
)

type StepsHandler struct {
	registry *stages.Registry
}

func NewStepsHandler(registry *stages.Registry) *StepsHandler {
	return &StepsHandler{registry: registry}
}

// Get implements GET /steps: the filtered Stage Registry snapshot.
func (h *StepsHandler) Get(c *gin.Context) {
	response.OK(c, h.registry.Steps(envutil.NonEmpty))
}
