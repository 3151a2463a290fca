package fraud

import (
	"time"

	"gorm.io/gorm"
)

type Dataset struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Filename     string         `gorm:"column:filename;not null" json:"filename"`
	OriginalName string         `gorm:"column:original_name;not null" json:"original_name"`
	FilePath     string         `gorm:"column:file_path;not null" json:"file_path"`
	FileSize     int64          `gorm:"column:file_size;not null;default:0" json:"file_size"`
	RowCount     *int           `gorm:"column:row_count" json:"row_count"`
	Label        string         `gorm:"column:label;size:100;not null" json:"label"`
	Description  string         `gorm:"column:description;size:500" json:"description,omitempty"`
	Status       DatasetStatus  `gorm:"column:status;not null;index;default:pending" json:"status"`
	UploadedBy   uint           `gorm:"column:uploaded_by;not null;index" json:"uploaded_by"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	JobLogs []JobLog `gorm:"foreignKey:DatasetID" json:"job_logs,omitempty"`
}

func (Dataset) TableName() string { return "datasets" }
