package fraud

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type SettingRepo interface {
	Get(dbc dbctx.Context, key string) (*types.Setting, error)
	Upsert(dbc dbctx.Context, s *types.Setting) error
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return &settingRepo{
		db:  db,
		log: baseLog.With("repo", "SettingRepo"),
	}
}

func (r *settingRepo) Get(dbc dbctx.Context, key string) (*types.Setting, error) {
	if key == "" {
		return nil, nil
	}
	var rows []types.Setting
	err := dbc.DB(r.db).
		Where("key = ?", key).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *settingRepo) Upsert(dbc dbctx.Context, s *types.Setting) error {
	s.UpdatedAt = time.Now()
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(s).Error
}
