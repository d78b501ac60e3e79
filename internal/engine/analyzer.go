package engine

import (
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpportunityKind enum constants
const (
	OpportunityOverpayment     = "OVERPAYMENT"
	OpportunityCreditableInput = "CREDITABLE_INPUT"
	OpportunityRegimeSwitch    = "REGIME_SWITCH_SAVINGS"
)

// CreditOpportunity is one recoverable finding for a fiscal period.
type CreditOpportunity struct {
	Kind        string
	Period      time.Time
	Amount      decimal.Decimal
	Description string

	// Justification: the rules that produced the finding and their citations.
	RuleIDs    []uuid.UUID
	LegalBases []string

	// CheaperRegime is set only for regime-switch findings.
	CheaperRegime string

	// ConditionCount is how many rule condition predicates had to be
	// satisfied; Assumptions counts conditional computation steps. Both feed
	// the risk scorer.
	ConditionCount int
	Assumptions    int
}

// AnalyzerConfig tunes the credit recovery analysis.
type AnalyzerConfig struct {
	// Materiality is the minimum savings delta before a regime-switch
	// finding is reported; noise below it is suppressed.
	Materiality decimal.Decimal
}

// Analyze compares the recomputed liability of the regime actually used
// against the amount paid and against the alternate regimes, and emits at
// most one opportunity of each kind. The three kinds cover different tax
// bases and are never netted against each other.
func Analyze(record model.FiscalPeriodRecord, actual RegimeSimulationResult, alternates []RegimeSimulationResult, cfg AnalyzerConfig) []CreditOpportunity {
	var out []CreditOpportunity

	// 1. Overpayment: paid more than the recomputed liability of the regime
	// actually used. Clamped at zero, underpayment is not a credit. A result
	// with no computed amounts (actual regime not simulatable, or every tax
	// type skipped) carries no liability to compare the payment against, so
	// no overpayment can be claimed from it.
	if over := record.PaidAmount.Sub(actual.Total); over.IsPositive() && len(actual.Amounts) > 0 {
		opp := CreditOpportunity{
			Kind:   OpportunityOverpayment,
			Period: record.Period,
			Amount: over.Round(2),
			Description: fmt.Sprintf("Pagamento a maior no regime %s: recolhido %s, devido %s.",
				actual.Regime, record.PaidAmount.StringFixed(2), actual.Total.StringFixed(2)),
			Assumptions: actual.Assumptions,
		}
		for _, taxType := range model.TaxTypes {
			if rule, ok := actual.AppliedRules[taxType]; ok {
				opp.RuleIDs = append(opp.RuleIDs, rule.ID)
				opp.LegalBases = append(opp.LegalBases, rule.LegalBasis)
				opp.ConditionCount += rule.Condition.PredicateCount()
			}
		}
		out = append(out, opp)
	}

	// 2. Creditable inputs: only meaningful under non-cumulative PIS/COFINS.
	if actual.Regime == model.RegimeLucroReal && len(actual.InputCredits) > 0 {
		total := decimal.Zero
		for _, c := range actual.InputCredits {
			total = total.Add(c)
		}
		if total.IsPositive() {
			opp := CreditOpportunity{
				Kind:        OpportunityCreditableInput,
				Period:      record.Period,
				Amount:      total.Round(2),
				Description: "Créditos de PIS/COFINS não cumulativos sobre insumos e custos elegíveis.",
				Assumptions: len(actual.InputCredits),
			}
			seen := make(map[uuid.UUID]bool)
			for _, rule := range actual.CreditRules {
				if seen[rule.ID] {
					continue
				}
				seen[rule.ID] = true
				opp.RuleIDs = append(opp.RuleIDs, rule.ID)
				opp.LegalBases = append(opp.LegalBases, rule.LegalBasis)
				opp.ConditionCount += rule.Condition.PredicateCount()
			}
			out = append(out, opp)
		}
	}

	// 3. Regime switch: a strictly cheaper alternate beyond materiality.
	var best *RegimeSimulationResult
	for i := range alternates {
		alt := &alternates[i]
		if best == nil || alt.Total.LessThan(best.Total) {
			best = alt
		}
	}
	if best != nil {
		delta := actual.Total.Sub(best.Total)
		if delta.GreaterThan(cfg.Materiality) {
			opp := CreditOpportunity{
				Kind:   OpportunityRegimeSwitch,
				Period: record.Period,
				Amount: delta.Round(2),
				Description: fmt.Sprintf("Empresa apurou pelo %s, mas %s seria mais econômico no período.",
					actual.Regime, best.Regime),
				CheaperRegime: best.Regime,
				LegalBases:    []string{"Planejamento Tributário / Elisão Fiscal Lícita"},
				Assumptions:   actual.Assumptions + best.Assumptions,
			}
			out = append(out, opp)
		}
	}

	return out
}
