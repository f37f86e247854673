package domain

import (
	"time"
)

// Priority is the triage bucket derived from an alert's risk score.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Alert is a single security event record. The raw fields (timestamp, IPs,
// type, message) are immutable after ingestion; scoring overwrites only
// risk_score, priority and enrichment_data, so re-scoring is idempotent.
//
// IPs are stored as the free text the source delivered. Garbage input is
// not rejected, it just enriches to the provider defaults.
type Alert struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp     string `gorm:"not null;index" json:"timestamp"`
	SourceIP      string `gorm:"not null" json:"source_ip"`
	DestinationIP string `gorm:"not null" json:"destination_ip"`
	AlertType     string `gorm:"not null;index" json:"alert_type"`
	Message       string `json:"message"`

	RiskScore      float64           `gorm:"default:0" json:"risk_score"`
	Priority       Priority          `gorm:"size:8;default:'Medium';index" json:"priority"`
	EnrichmentData *EnrichmentRecord `gorm:"type:jsonb" json:"enrichment_data,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (Alert) TableName() string {
	return "alerts"
}
