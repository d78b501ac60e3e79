package engine

import (
	"backend/internal/model"

	"github.com/shopspring/decimal"
)

// Risk thresholds on recovered-amount / period-revenue.
var (
	riskLowCeiling    = decimal.NewFromFloat(0.02) // below: LOW
	riskMediumCeiling = decimal.NewFromFloat(0.08) // below: MEDIUM; above: HIGH
)

// confidencePenalty is subtracted once per conditional assumption invoked
// (bracket lookup, presumption, surcharge, each credit category).
var confidencePenalty = decimal.NewFromFloat(0.05)

// manyConditions is the predicate count beyond which a finding rests on
// enough stacked applicability conditions to warrant extra scrutiny.
const manyConditions = 6

// Score assigns a deterministic risk level and confidence to a finding.
// Risk grows monotonically with the recovered/revenue ratio and escalates
// one level when the finding depends on many rule conditions. Confidence
// starts at 1.00, loses a fixed penalty per assumption, floors at 0.00.
func Score(opp CreditOpportunity, record model.FiscalPeriodRecord) (string, decimal.Decimal) {
	level := model.RiskLow
	if record.Revenue.IsPositive() {
		ratio := opp.Amount.Div(record.Revenue)
		switch {
		case ratio.GreaterThan(riskMediumCeiling):
			level = model.RiskHigh
		case ratio.GreaterThanOrEqual(riskLowCeiling):
			level = model.RiskMedium
		}
	} else if opp.Amount.IsPositive() {
		// Recoverable amount with no revenue on record: always scrutinize.
		level = model.RiskHigh
	}

	if opp.ConditionCount >= manyConditions {
		level = escalate(level)
	}

	confidence := decimal.NewFromInt(1).
		Sub(confidencePenalty.Mul(decimal.NewFromInt(int64(opp.Assumptions))))
	if confidence.IsNegative() {
		confidence = decimal.Zero
	}
	return level, confidence.Round(2)
}

func escalate(level string) string {
	switch level {
	case model.RiskLow:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}
