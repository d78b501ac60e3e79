package engine

import (
	"sort"

	"backend/internal/model"
)

// RuleSet is an immutable snapshot of the active rules for one analysis run,
// so every period in a batch is evaluated against the same rule set.
type RuleSet struct {
	byType map[string][]model.TaxRule
}

// NewRuleSet builds a snapshot from the given rules, keeping only active
// ones. Ordering inside the snapshot is irrelevant; selection sorts.
func NewRuleSet(rules []model.TaxRule) *RuleSet {
	rs := &RuleSet{byType: make(map[string][]model.TaxRule)}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		rs.byType[r.TaxType] = append(rs.byType[r.TaxType], r)
	}
	return rs
}

// ApplicableRules returns the active rules of the given tax type whose
// conditions pass for this company, period and simulated regime, excluding
// input-credit rules (see CreditRules). Most specific first: higher predicate
// count wins, then most recently created.
func (rs *RuleSet) ApplicableRules(taxType string, company model.Company, record model.FiscalPeriodRecord, regime string) []model.TaxRule {
	var out []model.TaxRule
	for _, r := range rs.byType[taxType] {
		if r.Condition.CostCategory != "" {
			continue
		}
		if MatchesCondition(r.Condition, company, record, regime) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Condition.PredicateCount(), out[j].Condition.PredicateCount()
		if pi != pj {
			return pi > pj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SelectRule picks the winning rule for a tax type, or returns
// RuleNotFoundError when no active applicable rule exists. Every tax type the
// simulators consult the rule set for is mandatory under its regime; Simples
// Nacional consolidates into the DAS schedule and never consults it.
func (rs *RuleSet) SelectRule(taxType string, company model.Company, record model.FiscalPeriodRecord, regime string) (model.TaxRule, error) {
	rules := rs.ApplicableRules(taxType, company, record, regime)
	if len(rules) == 0 {
		return model.TaxRule{}, &RuleNotFoundError{TaxType: taxType, Regime: regime, Period: record.Period}
	}
	return rules[0], nil
}

// CreditRules returns the applicable input-credit rules (those carrying a
// cost category) for the given tax type, keyed selection order as above.
func (rs *RuleSet) CreditRules(taxType string, company model.Company, record model.FiscalPeriodRecord, regime string) []model.TaxRule {
	var out []model.TaxRule
	for _, r := range rs.byType[taxType] {
		if r.Condition.CostCategory == "" {
			continue
		}
		if MatchesCondition(r.Condition, company, record, regime) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Condition.CostCategory < out[j].Condition.CostCategory
	})
	return out
}
