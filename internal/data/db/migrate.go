package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/fraudguard-backend/internal/domain/fraud"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&fraud.Dataset{},
		&fraud.JobLog{},
		&fraud.FraudResult{},
		&fraud.FraudExplanation{},
		&fraud.DispatchTask{},
		&fraud.AuditLog{},
		&fraud.Setting{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating database schema...")
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("Auto migration complete")
	return nil
}
