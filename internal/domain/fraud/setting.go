package fraud

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SettingRiskThresholds = "risk_thresholds"
	SettingAlerts         = "alerts"
	SettingVendorRules    = "vendor_rules"
)

type Setting struct {
	Key       string         `gorm:"column:key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value;type:json;not null" json:"value"`
	UpdatedBy *uint          `gorm:"column:updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

type RiskThresholds struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: 70, Medium: 50, Low: 30}
}

type AlertSettings struct {
	EmailAlerts  bool   `json:"email_alerts"`
	SlackAlerts  bool   `json:"slack_alerts"`
	HighRiskOnly bool   `json:"high_risk_only"`
	DailyDigest  bool   `json:"daily_digest"`
	SlackWebhook string `json:"slack_webhook,omitempty"`
	AlertEmail   string `json:"alert_email,omitempty"`
}

func DefaultAlertSettings() AlertSettings {
	return AlertSettings{EmailAlerts: true, HighRiskOnly: true}
}

type VendorRules struct {
	MaxDailyLimit int      `json:"max_daily_limit"`
	Sensitivity   string   `json:"sensitivity"`
	Blacklist     []string `json:"blacklist"`
}

func DefaultVendorRules() VendorRules {
	return VendorRules{MaxDailyLimit: 50000, Sensitivity: "medium", Blacklist: []string{}}
}
