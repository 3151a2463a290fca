package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/http/response"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/services"
)

type AuditHandler struct {
	audit services.AuditService
}

func NewAuditHandler(audit services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit-logs. Admin only, enforced by the router.
func (h *AuditHandler) List(c *gin.Context) {
	q := newQueryParams(c)
	f := repos.AuditLogFilter{Action: c.Query("action"), Page: q.page()}
	if uid := q.uint("user_id"); uid != 0 {
		f.UserID = &uid
	}
	if err := q.err(); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	logs, total, err := h.audit.List(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"logs": logs, "total": total, "page": f.Page.Page})
}
