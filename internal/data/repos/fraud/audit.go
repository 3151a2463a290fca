package fraud

import (
	"gorm.io/gorm"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type AuditLogFilter struct {
	Action string
	UserID *uint
	Page   Page
}

type AuditLogRepo interface {
	Create(dbc dbctx.Context, entry *types.AuditLog) error
	List(dbc dbctx.Context, f AuditLogFilter) ([]*types.AuditLog, int64, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{
		db:  db,
		log: baseLog.With("repo", "AuditLogRepo"),
	}
}

func (r *auditLogRepo) Create(dbc dbctx.Context, entry *types.AuditLog) error {
	return dbc.DB(r.db).Create(entry).Error
}

func (r *auditLogRepo) List(dbc dbctx.Context, f AuditLogFilter) ([]*types.AuditLog, int64, error) {
	q := dbc.DB(r.db).Model(&types.AuditLog{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.AuditLog
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
