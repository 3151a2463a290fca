package fraud

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type FraudExplanationRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.FraudExplanation) error
	// GetByTransaction returns the explanation for txID, scoped to datasetID when non-zero,
	// otherwise the most recently updated one.
	GetByTransaction(dbc dbctx.Context, txID string, datasetID uint) (*types.FraudExplanation, error)
	CountByDataset(dbc dbctx.Context, datasetID uint) (int64, error)
}

type fraudExplanationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFraudExplanationRepo(db *gorm.DB, baseLog *logger.Logger) FraudExplanationRepo {
	return &fraudExplanationRepo{
		db:  db,
		log: baseLog.With("repo", "FraudExplanationRepo"),
	}
}

func (r *fraudExplanationRepo) Upsert(dbc dbctx.Context, rows []*types.FraudExplanation) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for _, row := range rows {
		row.UpdatedAt = now
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "dataset_id"}, {Name: "transaction_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"top_features",
				"shap_values",
				"base_value",
				"narrative",
				"updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *fraudExplanationRepo) GetByTransaction(dbc dbctx.Context, txID string, datasetID uint) (*types.FraudExplanation, error) {
	if txID == "" {
		return nil, nil
	}
	q := dbc.DB(r.db).Where("transaction_id = ?", txID)
	if datasetID != 0 {
		q = q.Where("dataset_id = ?", datasetID)
	}
	var row types.FraudExplanation
	err := q.Order("updated_at DESC").Order("id DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *fraudExplanationRepo) CountByDataset(dbc dbctx.Context, datasetID uint) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.FraudExplanation{}).
		Where("dataset_id = ?", datasetID).
		Count(&n).Error
	return n, err
}
