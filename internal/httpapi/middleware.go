package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restoreq/restoreq/internal/pkg/ctxutil"
)

// CORS mirrors the teacher's middleware.CORS, widened to allow any
// origin since this module has no auth/session boundary to protect —
// a locally-served restoration UI is the only caller by design.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	})
}

// AttachRequestContext stamps a request id (grounded on the teacher's
// AttachRequestContext, which threads SSE-subscription state; there is
// nothing per-request to carry here beyond the trace identifiers).
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Set("trace_id", requestID)

		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   requestID,
			RequestID: requestID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
