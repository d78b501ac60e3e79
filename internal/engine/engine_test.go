package engine

import (
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Shared fixtures for the engine tests.

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func period(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func testCompany() model.Company {
	return model.Company{
		ID:           uuid.New(),
		CNPJ:         "12.345.678/0001-90",
		LegalName:    "Serviços Digitais Ltda",
		ActivityCode: "6201-5/01",
		Regime:       model.RegimeLucroPresumido,
	}
}

func testRecord(revenue, payroll, paid string) model.FiscalPeriodRecord {
	return model.FiscalPeriodRecord{
		ID:         uuid.New(),
		Period:     period(2024, time.January),
		Revenue:    dec(revenue),
		Payroll:    dec(payroll),
		PaidAmount: dec(paid),
	}
}

func newRule(taxType, legalBasis, rate string, cond model.RuleCondition) model.TaxRule {
	return model.TaxRule{
		ID:         uuid.New(),
		TaxType:    taxType,
		LegalBasis: legalBasis,
		Rate:       dec(rate),
		Condition:  cond,
		Active:     true,
		CreatedAt:  time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// baselineRules mirrors the seeded Brazilian rule catalog.
func baselineRules() []model.TaxRule {
	excludeSimples := model.RuleCondition{RegimesExclude: []string{model.RegimeSimplesNacional}}

	rules := []model.TaxRule{
		newRule(model.TaxTypeINSS, "Lei 8.212/91, Art. 22", "20.00", excludeSimples),
		newRule(model.TaxTypePIS, "Lei 9.718/98", "0.65", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}}),
		newRule(model.TaxTypeCOFINS, "Lei 9.718/98", "3.00", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}}),
		newRule(model.TaxTypePIS, "Lei 10.637/02", "1.65", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroReal}}),
		newRule(model.TaxTypeCOFINS, "Lei 10.833/03", "7.60", model.RuleCondition{RegimesInclude: []string{model.RegimeLucroReal}}),
		newRule(model.TaxTypeIRRF, "Lei 9.249/95, Art. 15", "15.00", excludeSimples),
		newRule(model.TaxTypeCSLL, "Lei 7.689/88", "9.00", excludeSimples),
		newRule(model.TaxTypeISS, "LC 116/03", "5.00", excludeSimples),
	}

	for _, category := range []string{model.CostEnergiaEletrica, model.CostInsumosDiretos, model.CostAluguelPredios, model.CostMaquinasEquipamentos} {
		rules = append(rules,
			newRule(model.TaxTypePIS, "Lei 10.637/02, Art. 3º", "1.65", model.RuleCondition{
				RegimesInclude: []string{model.RegimeLucroReal},
				CostCategory:   category,
			}),
			newRule(model.TaxTypeCOFINS, "Lei 10.833/03, Art. 3º", "7.60", model.RuleCondition{
				RegimesInclude: []string{model.RegimeLucroReal},
				CostCategory:   category,
			}),
		)
	}
	return rules
}

func baselineRuleSet() *RuleSet {
	return NewRuleSet(baselineRules())
}
