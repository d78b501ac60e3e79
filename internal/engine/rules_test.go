package engine

import (
	"errors"
	"testing"
	"time"

	"backend/internal/model"
)

func TestSelectRuleMostSpecificWins(t *testing.T) {
	generic := newRule(model.TaxTypeISS, "LC 116/03", "5.00", model.RuleCondition{})
	scoped := newRule(model.TaxTypeISS, "Lei Municipal 1.234/20", "2.00", model.RuleCondition{
		ActivityCodes:  []string{"62"},
		RegimesExclude: []string{model.RegimeSimplesNacional},
	})

	rs := NewRuleSet([]model.TaxRule{generic, scoped})

	rule, err := rs.SelectRule(model.TaxTypeISS, testCompany(), testRecord("1000.00", "0", "0"), model.RegimeLucroPresumido)
	if err != nil {
		t.Fatalf("SelectRule: %v", err)
	}
	if rule.ID != scoped.ID {
		t.Errorf("selected %s, want the more specific scoped rule", rule.LegalBasis)
	}
}

func TestSelectRuleNewestBreaksTies(t *testing.T) {
	older := newRule(model.TaxTypePIS, "Lei 9.718/98", "0.65", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}})
	newer := newRule(model.TaxTypePIS, "Lei 9.718/98 (atualizada)", "0.65", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}})
	newer.CreatedAt = older.CreatedAt.Add(24 * time.Hour)

	rs := NewRuleSet([]model.TaxRule{older, newer})

	rule, err := rs.SelectRule(model.TaxTypePIS, testCompany(), testRecord("1000.00", "0", "0"), model.RegimeLucroPresumido)
	if err != nil {
		t.Fatalf("SelectRule: %v", err)
	}
	if rule.ID != newer.ID {
		t.Error("equal specificity must resolve to the most recently created rule")
	}
}

func TestSelectRuleMandatoryMissing(t *testing.T) {
	rs := NewRuleSet(nil)

	_, err := rs.SelectRule(model.TaxTypeINSS, testCompany(), testRecord("1000.00", "0", "0"), model.RegimeLucroReal)

	var notFound *RuleNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want RuleNotFoundError", err)
	}
	if notFound.TaxType != model.TaxTypeINSS {
		t.Errorf("TaxType = %s, want INSS", notFound.TaxType)
	}
}

func TestNewRuleSetDropsInactive(t *testing.T) {
	inactive := newRule(model.TaxTypeISS, "LC 116/03", "5.00", model.RuleCondition{})
	inactive.Active = false

	rs := NewRuleSet([]model.TaxRule{inactive})

	if rules := rs.ApplicableRules(model.TaxTypeISS, testCompany(), testRecord("1000.00", "0", "0"), model.RegimeLucroReal); len(rules) != 0 {
		t.Errorf("inactive rule leaked into the snapshot: %v", rules)
	}
}

func TestApplicableRulesExcludesCreditRules(t *testing.T) {
	rs := baselineRuleSet()
	company := testCompany()
	record := testRecord("1000.00", "0", "0")

	for _, r := range rs.ApplicableRules(model.TaxTypePIS, company, record, model.RegimeLucroReal) {
		if r.Condition.CostCategory != "" {
			t.Errorf("credit rule %s leaked into rate selection", r.LegalBasis)
		}
	}

	credits := rs.CreditRules(model.TaxTypePIS, company, record, model.RegimeLucroReal)
	if len(credits) != 4 {
		t.Fatalf("got %d PIS credit rules, want 4", len(credits))
	}
	for i := 1; i < len(credits); i++ {
		if credits[i-1].Condition.CostCategory > credits[i].Condition.CostCategory {
			t.Error("credit rules must come back in stable category order")
		}
	}
}
