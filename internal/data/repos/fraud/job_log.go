package fraud

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type JobLogFilter struct {
	Status    types.JobStatus
	DatasetID uint
	Page      Page
}

type JobLogRepo interface {
	Create(dbc dbctx.Context, job *types.JobLog) error
	GetByID(dbc dbctx.Context, id uint) (*types.JobLog, error)
	GetByReference(dbc dbctx.Context, ref string) (*types.JobLog, error)
	ListByDataset(dbc dbctx.Context, datasetID uint) ([]*types.JobLog, error)
	List(dbc dbctx.Context, f JobLogFilter) ([]*types.JobLog, int64, error)
	CountByStatus(dbc dbctx.Context) (map[types.JobStatus]int64, error)
	HasActiveForDataset(dbc dbctx.Context, datasetID uint) (bool, error)
	Transition(dbc dbctx.Context, ref string, to types.JobStatus, updates map[string]interface{}) (bool, error)
}

type jobLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobLogRepo(db *gorm.DB, baseLog *logger.Logger) JobLogRepo {
	return &jobLogRepo{
		db:  db,
		log: baseLog.With("repo", "JobLogRepo"),
	}
}

func (r *jobLogRepo) Create(dbc dbctx.Context, job *types.JobLog) error {
	return dbc.DB(r.db).Create(job).Error
}

func (r *jobLogRepo) GetByID(dbc dbctx.Context, id uint) (*types.JobLog, error) {
	if id == 0 {
		return nil, nil
	}
	var job types.JobLog
	err := dbc.DB(r.db).
		Preload("Dataset").
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *jobLogRepo) GetByReference(dbc dbctx.Context, ref string) (*types.JobLog, error) {
	if ref == "" {
		return nil, nil
	}
	var job types.JobLog
	err := dbc.DB(r.db).
		Where("job_reference = ?", ref).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *jobLogRepo) ListByDataset(dbc dbctx.Context, datasetID uint) ([]*types.JobLog, error) {
	var out []*types.JobLog
	if datasetID == 0 {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("dataset_id = ?", datasetID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobLogRepo) List(dbc dbctx.Context, f JobLogFilter) ([]*types.JobLog, int64, error) {
	q := dbc.DB(r.db).Model(&types.JobLog{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DatasetID != 0 {
		q = q.Where("dataset_id = ?", f.DatasetID)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.JobLog
	err := q.Preload("Dataset").
		Order("created_at DESC").Order("id DESC").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *jobLogRepo) CountByStatus(dbc dbctx.Context) (map[types.JobStatus]int64, error) {
	var rows []struct {
		Status types.JobStatus
		Count  int64
	}
	err := dbc.DB(r.db).
		Model(&types.JobLog{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[types.JobStatus]int64{
		types.JobPending:    0,
		types.JobProcessing: 0,
		types.JobCompleted:  0,
		types.JobFailed:     0,
		types.JobRetrying:   0,
	}
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *jobLogRepo) HasActiveForDataset(dbc dbctx.Context, datasetID uint) (bool, error) {
	if datasetID == 0 {
		return false, nil
	}
	var count int64
	err := dbc.DB(r.db).
		Model(&types.JobLog{}).
		Where("dataset_id = ? AND status IN ?", datasetID,
			[]types.JobStatus{types.JobPending, types.JobRetrying, types.JobProcessing},
		).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Transition applies a guarded status change keyed by job reference.
func (r *jobLogRepo) Transition(dbc dbctx.Context, ref string, to types.JobStatus, updates map[string]interface{}) (bool, error) {
	if ref == "" {
		return false, nil
	}
	sources := types.JobSourcesFor(to)
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
		Model(&types.JobLog{}).
		Where("job_reference = ? AND status IN ?", ref, sources).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
