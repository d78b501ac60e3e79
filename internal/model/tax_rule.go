package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxType enum constants
const (
	TaxTypeINSS   = "INSS"
	TaxTypeIRRF   = "IRRF"
	TaxTypeCSLL   = "CSLL"
	TaxTypePIS    = "PIS"
	TaxTypeCOFINS = "COFINS"
	TaxTypeISS    = "ISS"

	// TaxTypeDAS is a presentation bucket for the Simples Nacional
	// consolidated amount in simulation results; it is never a rule type.
	TaxTypeDAS = "DAS"
)

// TaxTypes lists the rule-bearing tax types.
var TaxTypes = []string{TaxTypeINSS, TaxTypeIRRF, TaxTypeCSLL, TaxTypePIS, TaxTypeCOFINS, TaxTypeISS}

// ValidTaxType reports whether t is one of the six rule-bearing tax types.
func ValidTaxType(t string) bool {
	for _, v := range TaxTypes {
		if t == v {
			return true
		}
	}
	return false
}

// RuleCondition is the structured applicability condition attached to a rule.
// It is a closed predicate set evaluated by the engine's interpreter, never
// executable code. A zero-value condition matches everything.
type RuleCondition struct {
	MinRevenue     *decimal.Decimal `json:"min_revenue,omitempty"`     // period revenue >= threshold
	MaxRevenue     *decimal.Decimal `json:"max_revenue,omitempty"`     // period revenue <= threshold
	RegimesInclude []string         `json:"regimes_include,omitempty"` // applies only under these regimes
	RegimesExclude []string         `json:"regimes_exclude,omitempty"` // never applies under these regimes
	ActivityCodes  []string         `json:"activity_codes,omitempty"`  // CNAE prefixes
	CostCategory   string           `json:"cost_category,omitempty"`   // marks an input-credit rule for a cost category
}

// PredicateCount returns how many predicates are actually specified.
// More predicates means a more specific rule, which wins selection ties.
func (c RuleCondition) PredicateCount() int {
	n := 0
	if c.MinRevenue != nil {
		n++
	}
	if c.MaxRevenue != nil {
		n++
	}
	if len(c.RegimesInclude) > 0 {
		n++
	}
	if len(c.RegimesExclude) > 0 {
		n++
	}
	if len(c.ActivityCodes) > 0 {
		n++
	}
	if c.CostCategory != "" {
		n++
	}
	return n
}

// TaxRule stores a citable tax rule. Multiple rules may coexist per tax type;
// the engine selects the active, applicable subset per company and period.
type TaxRule struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TaxType     string          `gorm:"type:varchar(10);not null;index" json:"tax_type"`
	Description string          `gorm:"type:text" json:"description"`
	LegalBasis  string          `gorm:"type:varchar(255);not null" json:"legal_basis"` // e.g. "Lei 8.212/91, Art. 22"
	Rate        decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"rate"`       // percentage, e.g. 20.00
	Condition   RuleCondition   `gorm:"type:jsonb;serializer:json" json:"condition"`
	Active      bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
}
