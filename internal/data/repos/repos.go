package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos/fraud"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type DatasetRepo = fraud.DatasetRepo
type JobLogRepo = fraud.JobLogRepo
type FraudResultRepo = fraud.FraudResultRepo
type FraudExplanationRepo = fraud.FraudExplanationRepo
type DispatchTaskRepo = fraud.DispatchTaskRepo
type AuditLogRepo = fraud.AuditLogRepo
type SettingRepo = fraud.SettingRepo

type Page = fraud.Page

const DefaultPerPage = fraud.DefaultPerPage

type DatasetFilter = fraud.DatasetFilter
type JobLogFilter = fraud.JobLogFilter
type ResultScope = fraud.ResultScope
type ResultFilter = fraud.ResultFilter
type AuditLogFilter = fraud.AuditLogFilter
type RegionSummary = fraud.RegionSummary
type VendorSummary = fraud.VendorSummary
type DaySummary = fraud.DaySummary

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return fraud.NewDatasetRepo(db, baseLog)
}

func NewJobLogRepo(db *gorm.DB, baseLog *logger.Logger) JobLogRepo {
	return fraud.NewJobLogRepo(db, baseLog)
}

func NewFraudResultRepo(db *gorm.DB, baseLog *logger.Logger) FraudResultRepo {
	return fraud.NewFraudResultRepo(db, baseLog)
}

func NewFraudExplanationRepo(db *gorm.DB, baseLog *logger.Logger) FraudExplanationRepo {
	return fraud.NewFraudExplanationRepo(db, baseLog)
}

func NewDispatchTaskRepo(db *gorm.DB, baseLog *logger.Logger) DispatchTaskRepo {
	return fraud.NewDispatchTaskRepo(db, baseLog)
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return fraud.NewAuditLogRepo(db, baseLog)
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return fraud.NewSettingRepo(db, baseLog)
}
