package fraud

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type DatasetFilter struct {
	// UploadedBy restricts the listing to one owner when set.
	UploadedBy *uint
	Status     types.DatasetStatus
	Page       Page
}

type DatasetRepo interface {
	Create(dbc dbctx.Context, ds *types.Dataset) error
	GetByID(dbc dbctx.Context, id uint) (*types.Dataset, error)
	List(dbc dbctx.Context, f DatasetFilter) ([]*types.Dataset, int64, error)
	Count(dbc dbctx.Context, uploadedBy *uint) (int64, error)
	Transition(dbc dbctx.Context, id uint, to types.DatasetStatus, updates map[string]interface{}) (bool, error)
	SoftDelete(dbc dbctx.Context, id uint) error
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{
		db:  db,
		log: baseLog.With("repo", "DatasetRepo"),
	}
}

func (r *datasetRepo) Create(dbc dbctx.Context, ds *types.Dataset) error {
	if ds.Status == "" {
		ds.Status = types.DatasetPending
	}
	return dbc.DB(r.db).Create(ds).Error
}

func (r *datasetRepo) GetByID(dbc dbctx.Context, id uint) (*types.Dataset, error) {
	if id == 0 {
		return nil, nil
	}
	var ds types.Dataset
	err := dbc.DB(r.db).
		Where("id = ?", id).
		Limit(1).
		Find(&ds).Error
	if err != nil {
		return nil, err
	}
	if ds.ID == 0 {
		return nil, nil
	}
	return &ds, nil
}

func (r *datasetRepo) List(dbc dbctx.Context, f DatasetFilter) ([]*types.Dataset, int64, error) {
	q := dbc.DB(r.db).Model(&types.Dataset{})
	if f.UploadedBy != nil {
		q = q.Where("uploaded_by = ?", *f.UploadedBy)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Dataset
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *datasetRepo) Count(dbc dbctx.Context, uploadedBy *uint) (int64, error) {
	q := dbc.DB(r.db).Model(&types.Dataset{})
	if uploadedBy != nil {
		q = q.Where("uploaded_by = ?", *uploadedBy)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Transition moves the dataset to `to` only if its current status is a legal
// source for that target. false means the row was missing or in the wrong state.
func (r *datasetRepo) Transition(dbc dbctx.Context, id uint, to types.DatasetStatus, updates map[string]interface{}) (bool, error) {
	if id == 0 {
		return false, nil
	}
	sources := types.DatasetSourcesFor(to)
	if len(sources) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.DB(r.db).
		Model(&types.Dataset{}).
		Where("id = ? AND status IN ?", id, sources).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *datasetRepo) SoftDelete(dbc dbctx.Context, id uint) error {
	if id == 0 {
		return nil
	}
	return dbc.DB(r.db).Delete(&types.Dataset{}, id).Error
}
