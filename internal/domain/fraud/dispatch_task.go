package fraud

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TaskTypeDatasetProcess = "dataset.process"
	TaskTypeDatasetExplain = "dataset.explain"
)

// DispatchTask is an outbox row written in the same transaction as the
// state change that requires the ML worker to be notified.
type DispatchTask struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobReference  string         `gorm:"column:job_reference;not null;uniqueIndex:idx_dispatch_tasks_job_type" json:"job_id"`
	TaskType      string         `gorm:"column:task_type;not null;uniqueIndex:idx_dispatch_tasks_job_type;index" json:"task_type"`
	DatasetID     uint           `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	Status        TaskStatus     `gorm:"column:status;not null;index" json:"status"`
	Attempts      int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts   int            `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	NextAttemptAt time.Time      `gorm:"column:next_attempt_at;not null;index" json:"next_attempt_at"`
	Deadline      *time.Time     `gorm:"column:deadline" json:"deadline,omitempty"`
	LastError     string         `gorm:"column:last_error" json:"last_error,omitempty"`
	Payload       datatypes.JSON `gorm:"column:payload;type:json" json:"payload"`
	LockedAt      *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (DispatchTask) TableName() string { return "dispatch_tasks" }
