package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/data/repos"
	"github.com/yungbote/fraudguard-backend/internal/platform/logger"
)

type Repos struct {
	Dataset          repos.DatasetRepo
	JobLog           repos.JobLogRepo
	FraudResult      repos.FraudResultRepo
	FraudExplanation repos.FraudExplanationRepo
	DispatchTask     repos.DispatchTaskRepo
	AuditLog         repos.AuditLogRepo
	Setting          repos.SettingRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Dataset:          repos.NewDatasetRepo(db, log),
		JobLog:           repos.NewJobLogRepo(db, log),
		FraudResult:      repos.NewFraudResultRepo(db, log),
		FraudExplanation: repos.NewFraudExplanationRepo(db, log),
		DispatchTask:     repos.NewDispatchTaskRepo(db, log),
		AuditLog:         repos.NewAuditLogRepo(db, log),
		Setting:          repos.NewSettingRepo(db, log),
	}
}
