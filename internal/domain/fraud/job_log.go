package fraud

import "time"

// JobLog is one processing attempt for a dataset, correlated with the ML
// worker through JobReference.
type JobLog struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	JobReference string     `gorm:"column:job_reference;uniqueIndex;not null" json:"job_id"`
	DatasetID    uint       `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	TriggeredBy  *uint      `gorm:"column:triggered_by;index" json:"triggered_by,omitempty"`
	Status       JobStatus  `gorm:"column:status;not null;index" json:"status"`
	RetryCount   int        `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	ErrorMessage *string    `gorm:"column:error_message" json:"error_message"`
	StartedAt    *time.Time `gorm:"column:started_at" json:"started_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt    time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	Dataset *Dataset `gorm:"foreignKey:DatasetID" json:"dataset,omitempty"`
}

func (JobLog) TableName() string { return "job_logs" }
