// Package response is the thin JSON envelope layer shared by every
// handler, copied in shape from the teacher's internal/http/response
// package (APIError/ErrorEnvelope, trace/request id echoing) and
// trimmed of the auth-specific fields this module has no use for.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	stderrors "github.com/restoreq/restoreq/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error     APIError `json:"error"`
	TraceID   string   `json:"traceId,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func Error(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error:     APIError{Message: msg, Code: code},
		TraceID:   c.GetString("trace_id"),
		RequestID: c.GetString("request_id"),
	})
}

// FromSchedulerError maps the scheduler's sentinel errors to the §7
// status table; any other error is treated as an unexpected 500.
func FromSchedulerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stderrors.ErrNotFound):
		Error(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, stderrors.ErrNotReady):
		Error(c, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, stderrors.ErrInvalidArgument):
		Error(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, stderrors.ErrNoPreviousManualStep):
		Error(c, http.StatusBadRequest, "no_previous_manual_step", err)
	case errors.Is(err, stderrors.ErrIllegalStateTransition):
		Error(c, http.StatusBadRequest, "illegal_state_transition", err)
	default:
		Error(c, http.StatusInternalServerError, "internal", err)
	}
}
