package fraud

import (
	"math"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/fraudguard-backend/internal/domain/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/dbctx"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

// ResultScope limits result queries to visible datasets.
type ResultScope struct {
	DatasetID uint
	// OwnerID restricts to datasets uploaded by this user (vendor role).
	OwnerID *uint
}

type ResultFilter struct {
	Scope    ResultScope
	IsFraud  *bool
	MinScore *float64
	Page     Page
}

type RegionSummary struct {
	Region           string  `json:"region"`
	TransactionCount int64   `json:"transaction_count"`
	AvgScore         float64 `json:"avg_score"`
	FraudCount       int64   `json:"fraud_count"`
}

type VendorSummary struct {
	VendorID          string  `json:"vendor_id"`
	VendorName        *string `json:"vendor_name"`
	TotalTransactions int64   `json:"total_transactions"`
	RiskScore         float64 `json:"risk_score"`
	FraudCount        int64   `json:"fraud_count"`
	TotalAmount       float64 `json:"total_amount"`
}

type DaySummary struct {
	Date       string  `json:"date"`
	Total      int64   `json:"total"`
	FraudCount int64   `json:"fraud_count"`
	AvgScore   float64 `json:"avg_score"`
}

type FraudResultRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.FraudResult, batchSize int) error
	GetByID(dbc dbctx.Context, id uint, scope ResultScope) (*types.FraudResult, error)
	List(dbc dbctx.Context, f ResultFilter) ([]*types.FraudResult, int64, error)
	CountByDataset(dbc dbctx.Context, datasetID uint) (int64, error)
	GeoSummary(dbc dbctx.Context, scope ResultScope) ([]RegionSummary, error)
	VendorSummary(dbc dbctx.Context, scope ResultScope, limit int) ([]VendorSummary, error)
	TimeSeries(dbc dbctx.Context, scope ResultScope, since time.Time) ([]DaySummary, error)
	Anomalies(dbc dbctx.Context, scope ResultScope, limit int) ([]*types.FraudResult, error)
	CountFlaggedSince(dbc dbctx.Context, scope ResultScope, since time.Time) (int64, error)
	CountAtLeastScore(dbc dbctx.Context, scope ResultScope, minScore float64) (int64, error)
	CountFraudVendors(dbc dbctx.Context, scope ResultScope) (int64, error)
}

type fraudResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFraudResultRepo(db *gorm.DB, baseLog *logger.Logger) FraudResultRepo {
	return &fraudResultRepo{
		db:  db,
		log: baseLog.With("repo", "FraudResultRepo"),
	}
}

func (r *fraudResultRepo) CreateBatch(dbc dbctx.Context, rows []*types.FraudResult, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return dbc.DB(r.db).CreateInBatches(rows, batchSize).Error
}

func (r *fraudResultRepo) scoped(dbc dbctx.Context, scope ResultScope) *gorm.DB {
	tx := dbc.DB(r.db)
	visible := tx.Session(&gorm.Session{NewDB: true}).Model(&types.Dataset{}).Select("id")
	if scope.OwnerID != nil {
		visible = visible.Where("uploaded_by = ?", *scope.OwnerID)
	}
	q := tx.Model(&types.FraudResult{}).Where("dataset_id IN (?)", visible)
	if scope.DatasetID != 0 {
		q = q.Where("dataset_id = ?", scope.DatasetID)
	}
	return q
}

func (r *fraudResultRepo) GetByID(dbc dbctx.Context, id uint, scope ResultScope) (*types.FraudResult, error) {
	if id == 0 {
		return nil, nil
	}
	var row types.FraudResult
	err := r.scoped(dbc, scope).
		Where("id = ?", id).
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

func (r *fraudResultRepo) List(dbc dbctx.Context, f ResultFilter) ([]*types.FraudResult, int64, error) {
	q := r.scoped(dbc, f.Scope)
	if f.IsFraud != nil {
		q = q.Where("is_fraud = ?", *f.IsFraud)
	}
	if f.MinScore != nil {
		q = q.Where("fraud_score >= ?", *f.MinScore)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.FraudResult
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *fraudResultRepo) CountByDataset(dbc dbctx.Context, datasetID uint) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.FraudResult{}).
		Where("dataset_id = ?", datasetID).
		Count(&n).Error
	return n, err
}

const fraudCountExpr = "SUM(CASE WHEN is_fraud THEN 1 ELSE 0 END)"

func (r *fraudResultRepo) GeoSummary(dbc dbctx.Context, scope ResultScope) ([]RegionSummary, error) {
	var out []RegionSummary
	err := r.scoped(dbc, scope).
		Select("region, COUNT(*) AS transaction_count, AVG(fraud_score) AS avg_score, " + fraudCountExpr + " AS fraud_count").
		Where("region IS NOT NULL").
		Group("region").
		Order("avg_score DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].AvgScore = round(out[i].AvgScore, 4)
	}
	return out, nil
}

func (r *fraudResultRepo) VendorSummary(dbc dbctx.Context, scope ResultScope, limit int) ([]VendorSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []VendorSummary
	err := r.scoped(dbc, scope).
		Select("vendor_id, vendor_name, COUNT(*) AS total_transactions, AVG(fraud_score) AS risk_score, " +
			fraudCountExpr + " AS fraud_count, COALESCE(SUM(amount), 0) AS total_amount").
		Where("vendor_id IS NOT NULL").
		Group("vendor_id, vendor_name").
		Order("risk_score DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].RiskScore = round(out[i].RiskScore, 4)
		out[i].TotalAmount = round(out[i].TotalAmount, 2)
	}
	return out, nil
}

func (r *fraudResultRepo) TimeSeries(dbc dbctx.Context, scope ResultScope, since time.Time) ([]DaySummary, error) {
	var out []DaySummary
	err := r.scoped(dbc, scope).
		Select("DATE(created_at) AS date, COUNT(*) AS total, " + fraudCountExpr + " AS fraud_count, AVG(fraud_score) AS avg_score").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		// postgres scans DATE as an RFC3339 timestamp, sqlite as YYYY-MM-DD.
		if len(out[i].Date) > 10 {
			out[i].Date = out[i].Date[:10]
		}
		out[i].AvgScore = round(out[i].AvgScore, 4)
	}
	return out, nil
}

func (r *fraudResultRepo) Anomalies(dbc dbctx.Context, scope ResultScope, limit int) ([]*types.FraudResult, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.FraudResult
	err := r.scoped(dbc, scope).
		Where("is_anomaly = ?", true).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fraudResultRepo) CountFlaggedSince(dbc dbctx.Context, scope ResultScope, since time.Time) (int64, error) {
	var n int64
	err := r.scoped(dbc, scope).
		Where("is_fraud = ? AND created_at >= ?", true, since).
		Count(&n).Error
	return n, err
}

func (r *fraudResultRepo) CountAtLeastScore(dbc dbctx.Context, scope ResultScope, minScore float64) (int64, error) {
	var n int64
	err := r.scoped(dbc, scope).
		Where("fraud_score >= ?", minScore).
		Count(&n).Error
	return n, err
}

// CountFraudVendors counts distinct vendors with at least one fraud result.
func (r *fraudResultRepo) CountFraudVendors(dbc dbctx.Context, scope ResultScope) (int64, error) {
	var n int64
	err := r.scoped(dbc, scope).
		Where("is_fraud = ? AND vendor_id IS NOT NULL", true).
		Distinct("vendor_id").
		Count(&n).Error
	return n, err
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
