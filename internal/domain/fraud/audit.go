package fraud

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditDatasetUpload          = "dataset_upload"
	AuditDatasetDelete          = "dataset_delete"
	AuditDatasetReprocess       = "dataset_reprocess"
	AuditJobRetry               = "job_retry"
	AuditMLJobDispatched        = "ml_job_dispatched"
	AuditMLJobFailed            = "ml_job_failed"
	AuditMLResultsReceived      = "ml_results_received"
	AuditMLExplanationsReceived = "ml_explanations_received"
	AuditMLExplainRequestFailed = "ml_explain_request_failed"
	AuditSettingsUpdated        = "settings_updated"
)

type AuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Action      string         `gorm:"column:action;not null;index" json:"action"`
	Description string         `gorm:"column:description;not null" json:"description"`
	UserID      *uint          `gorm:"column:user_id;index" json:"user_id"`
	Context     datatypes.JSON `gorm:"column:context;type:json" json:"context,omitempty"`
	IPAddress   string         `gorm:"column:ip_address" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"column:user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
