package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RiskLevel enum constants
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// DecisionRecord is the append-only audit decision for one analyzed fiscal
// period: what was found, how risky it is, and which law bases back it.
type DecisionRecord struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FiscalRecordID uuid.UUID           `gorm:"type:uuid;not null;index" json:"fiscal_record_id"`
	FiscalRecord   *FiscalPeriodRecord `gorm:"foreignKey:FiscalRecordID" json:"-"`

	Summary         string          `gorm:"type:text;not null" json:"decision_summary"`
	RiskLevel       string          `gorm:"type:varchar(10);not null" json:"risk_level"`            // LOW, MEDIUM, HIGH
	ConfidenceScore decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"confidence_score"`     // [0.00, 1.00]
	AppliedLawBases []string        `gorm:"type:jsonb;serializer:json" json:"applied_law_bases"`    // ordered, first occurrence wins
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}
