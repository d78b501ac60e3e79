package engine

import (
	"strings"

	"backend/internal/model"

	"github.com/shopspring/decimal"
)

// ScoredOpportunity pairs a finding with its risk assessment.
type ScoredOpportunity struct {
	Opportunity CreditOpportunity
	RiskLevel   string
	Confidence  decimal.Decimal
}

// BuildDecisionRecord assembles the append-only decision record for one
// analyzed fiscal period. Deterministic rule citations come first, oracle
// citations enrich them; the record is always valid even when the oracle
// returned nothing (degraded mode).
func BuildDecisionRecord(record model.FiscalPeriodRecord, scored []ScoredOpportunity, oracleCitations []string) model.DecisionRecord {
	summary := "Nenhuma oportunidade de recuperação identificada no período."
	risk := model.RiskLow
	confidence := decimal.NewFromInt(1)

	var parts []string
	var deterministic []string
	for _, s := range scored {
		parts = append(parts, s.Opportunity.Description)
		deterministic = append(deterministic, s.Opportunity.LegalBases...)
		if riskRank(s.RiskLevel) > riskRank(risk) {
			risk = s.RiskLevel
		}
		if s.Confidence.LessThan(confidence) {
			confidence = s.Confidence
		}
	}
	if len(parts) > 0 {
		summary = strings.Join(parts, " ")
	}

	return model.DecisionRecord{
		FiscalRecordID:  record.ID,
		Summary:         summary,
		RiskLevel:       risk,
		ConfidenceScore: confidence.Round(2),
		AppliedLawBases: MergeCitations(deterministic, oracleCitations),
	}
}

// MergeCitations concatenates deterministic citations with oracle ones,
// deduplicating case-insensitively after trimming, preserving first
// occurrence order and spelling.
func MergeCitations(deterministic, oracle []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range append(append([]string{}, deterministic...), oracle...) {
		trimmed := strings.TrimSpace(c)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

func riskRank(level string) int {
	switch level {
	case model.RiskHigh:
		return 2
	case model.RiskMedium:
		return 1
	default:
		return 0
	}
}
