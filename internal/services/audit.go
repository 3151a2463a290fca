package services

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/ctxutil"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

// AuditService appends to the audit trail. Records are observational: a
// failed write is logged and never fails the caller.
type AuditService interface {
	Record(dbc dbctx.Context, action string, description string, userID *uint, context map[string]any)
	List(dbc dbctx.Context, f repos.AuditLogFilter) ([]*types.AuditLog, int64, error)
}

type auditService struct {
	log  *logger.Logger
	repo repos.AuditLogRepo
}

func NewAuditService(baseLog *logger.Logger, repo repos.AuditLogRepo) AuditService {
	return &auditService{
		log:  baseLog.With("service", "AuditService"),
		repo: repo,
	}
}

func (s *auditService) Record(dbc dbctx.Context, action string, description string, userID *uint, context map[string]any) {
	entry := &types.AuditLog{
		Action:      action,
		Description: description,
		UserID:      userID,
		CreatedAt:   time.Now(),
	}
	if len(context) > 0 {
		if b, err := json.Marshal(context); err == nil {
			entry.Context = datatypes.JSON(b)
		}
	}
	if rd := ctxutil.GetRequestData(dbc.Ctx); rd != nil {
		entry.IPAddress = rd.IPAddress
		entry.UserAgent = truncate(rd.UserAgent, 512)
		if entry.UserID == nil && rd.UserID != 0 {
			uid := rd.UserID
			entry.UserID = &uid
		}
	}
	if err := s.repo.Create(dbc, entry); err != nil {
		s.log.Warn("audit write failed", "action", action, "error", err)
	}
}

func (s *auditService) List(dbc dbctx.Context, f repos.AuditLogFilter) ([]*types.AuditLog, int64, error) {
	return s.repo.List(dbc, f)
}
