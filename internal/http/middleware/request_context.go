package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
)

// AttachRequestContext records the client address for audit entries. The
// caller identity is filled in later by RequireAuth.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
