package fraud

import "time"

type FraudResult struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DatasetID     uint      `gorm:"column:dataset_id;not null;uniqueIndex:idx_fraud_results_dataset_tx" json:"dataset_id"`
	JobReference  string    `gorm:"column:job_reference;index" json:"job_id,omitempty"`
	TransactionID string    `gorm:"column:transaction_id;not null;uniqueIndex:idx_fraud_results_dataset_tx;index" json:"transaction_id"`
	FraudScore    float64   `gorm:"column:fraud_score;not null" json:"fraud_score"`
	IsFraud       bool      `gorm:"column:is_fraud;not null;index" json:"is_fraud"`
	IsAnomaly     bool      `gorm:"column:is_anomaly;not null" json:"is_anomaly"`
	VendorID      *string   `gorm:"column:vendor_id;index" json:"vendor_id"`
	VendorName    *string   `gorm:"column:vendor_name" json:"vendor_name"`
	Region        *string   `gorm:"column:region;index" json:"region"`
	Amount        *float64  `gorm:"column:amount" json:"amount"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`

	Explanation *FraudExplanation `gorm:"-" json:"explanation,omitempty"`
}

func (FraudResult) TableName() string { return "fraud_results" }

const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// RiskLevel buckets a fraud score for display.
func RiskLevel(score float64) string {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.6:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}
