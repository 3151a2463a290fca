package fraud

import (
	"time"

	"gorm.io/datatypes"
)

// Feature is one model input with its signed contribution to the fraud score.
type Feature struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Impact float64 `json:"impact"`
}

type FraudExplanation struct {
	ID            uint                         `gorm:"primaryKey" json:"id"`
	DatasetID     uint                         `gorm:"column:dataset_id;not null;uniqueIndex:idx_fraud_explanations_dataset_tx" json:"dataset_id"`
	TransactionID string                       `gorm:"column:transaction_id;not null;uniqueIndex:idx_fraud_explanations_dataset_tx;index" json:"transaction_id"`
	TopFeatures   datatypes.JSONSlice[Feature] `gorm:"column:top_features;type:json;not null" json:"top_features"`
	ShapValues    datatypes.JSON               `gorm:"column:shap_values;type:json" json:"shap_values,omitempty"`
	BaseValue     *float64                     `gorm:"column:base_value" json:"base_value"`
	Narrative     string                       `gorm:"column:narrative;type:text" json:"narrative"`
	CreatedAt     time.Time                    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                    `gorm:"not null;index" json:"updated_at"`
}

func (FraudExplanation) TableName() string { return "fraud_explanations" }
