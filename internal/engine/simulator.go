package engine

import (
	"errors"
	"sort"

	"backend/internal/model"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// ErrSimplesNotEligible is returned when the trailing-12-month revenue
// exceeds the Simples Nacional ceiling; the regime is simply not available.
var ErrSimplesNotEligible = errors.New("trailing revenue exceeds Simples Nacional ceiling")

// Presumed-profit percentages (Lei 9.249/95, Art. 15 e 20). The engine runs
// with the service presumption; the commerce ones stay encoded for when
// activity-code classification distinguishes trade from services.
var (
	presumptionServiceIR   = decimal.NewFromFloat(0.32)
	presumptionServiceCSLL = decimal.NewFromFloat(0.32)
	presumptionTradeIR     = decimal.NewFromFloat(0.08)
	presumptionTradeCSLL   = decimal.NewFromFloat(0.12)
)

// IRPJ surcharge: 10% on the monthly base exceeding R$ 20.000 (Lei 9.249/95).
var (
	irSurchargeThreshold = decimal.NewFromInt(20000)
	irSurchargeRate      = decimal.NewFromFloat(0.10)
)

// simplesCeiling is the RBT12 limit for Simples Nacional eligibility (LC 123/06).
var simplesCeiling = decimal.NewFromInt(4_800_000)

// SimplesBracket is one row of the Simples Nacional schedule: nominal rate
// and deduction for an RBT12 up to Ceiling.
type SimplesBracket struct {
	Ceiling     decimal.Decimal `json:"ceiling"`
	NominalRate decimal.Decimal `json:"nominal_rate"` // percentage
	Deduction   decimal.Decimal `json:"deduction"`
}

// DefaultAnexoIIIBrackets returns the Anexo III (services) schedule.
// The schedule is input configuration, not rule data, so deployments can
// swap annexes without touching the engine.
func DefaultAnexoIIIBrackets() []SimplesBracket {
	return []SimplesBracket{
		{Ceiling: decimal.NewFromInt(180_000), NominalRate: decimal.NewFromFloat(6.00), Deduction: decimal.Zero},
		{Ceiling: decimal.NewFromInt(360_000), NominalRate: decimal.NewFromFloat(11.20), Deduction: decimal.NewFromInt(9_360)},
		{Ceiling: decimal.NewFromInt(720_000), NominalRate: decimal.NewFromFloat(13.50), Deduction: decimal.NewFromInt(17_640)},
		{Ceiling: decimal.NewFromInt(1_800_000), NominalRate: decimal.NewFromFloat(16.00), Deduction: decimal.NewFromInt(35_640)},
		{Ceiling: decimal.NewFromInt(3_600_000), NominalRate: decimal.NewFromFloat(21.00), Deduction: decimal.NewFromInt(125_640)},
		{Ceiling: simplesCeiling, NominalRate: decimal.NewFromFloat(33.00), Deduction: decimal.NewFromInt(648_000)},
	}
}

// RevenueAccumulator threads trailing gross revenue through a company's
// chronologically ordered periods. It is the only cross-period state in the
// engine, and it is explicit: callers Add after simulating each month.
type RevenueAccumulator struct {
	months []decimal.Decimal
}

// Add appends one month of gross revenue.
func (a *RevenueAccumulator) Add(revenue decimal.Decimal) {
	a.months = append(a.months, revenue)
}

// Trailing12 returns the RBT12 base: the sum of the last 12 observed months,
// annualized by the monthly mean when fewer than 12 exist. Zero when nothing
// has been observed yet.
func (a *RevenueAccumulator) Trailing12() decimal.Decimal {
	n := len(a.months)
	if n == 0 {
		return decimal.Zero
	}
	start := 0
	if n > 12 {
		start = n - 12
	}
	sum := decimal.Zero
	for _, m := range a.months[start:] {
		sum = sum.Add(m)
	}
	window := n - start
	if window < 12 {
		// Annualize: mean monthly revenue projected over 12 months.
		return sum.Div(decimal.NewFromInt(int64(window))).Mul(twelve).Round(2)
	}
	return sum
}

// SimulationInput carries everything a regime simulation depends on.
// Simulate is a pure function of this value: identical inputs produce
// byte-identical results.
type SimulationInput struct {
	Company model.Company
	Record  model.FiscalPeriodRecord
	Regime  string

	// Trailing12Revenue is the precomputed RBT12 for Simples bracket lookup.
	// Zero means "no history": the current month is annualized instead.
	Trailing12Revenue decimal.Decimal

	// Brackets is the Simples schedule in force; nil falls back to Anexo III.
	Brackets []SimplesBracket

	Rules *RuleSet
}

// RegimeSimulationResult is the recomputed liability breakdown for one
// period under one regime.
type RegimeSimulationResult struct {
	Regime  string
	Amounts map[string]decimal.Decimal // tax type -> amount, 2 decimal places
	Total   decimal.Decimal

	// AppliedRules records the winning rule per computed tax type, for
	// citation and justification downstream.
	AppliedRules map[string]model.TaxRule

	// InputCredits holds the non-cumulative PIS/COFINS credits taken per
	// cost category (Lucro Real only), with the rules that granted them.
	InputCredits map[string]decimal.Decimal
	CreditRules  []model.TaxRule

	// Assumptions counts the conditional steps taken (bracket lookup,
	// presumption, surcharge, each credit category); it feeds confidence.
	Assumptions int

	// SkippedTaxTypes lists mandatory tax types left uncomputed because no
	// active applicable rule exists. Surfaced, never silent.
	SkippedTaxTypes []string
}

// Simulate recomputes the tax liability one regime would have produced for
// one fiscal period. Dispatches on the regime enum.
func Simulate(in SimulationInput) (RegimeSimulationResult, error) {
	switch in.Regime {
	case model.RegimeSimplesNacional:
		return simulateSimples(in)
	case model.RegimeLucroPresumido:
		return simulatePresumido(in)
	case model.RegimeLucroReal:
		return simulateReal(in)
	default:
		return RegimeSimulationResult{}, &ValidationError{Field: "regime", Message: "unknown tax regime " + in.Regime}
	}
}

func newResult(regime string) RegimeSimulationResult {
	return RegimeSimulationResult{
		Regime:       regime,
		Amounts:      make(map[string]decimal.Decimal),
		AppliedRules: make(map[string]model.TaxRule),
		Total:        decimal.Zero,
	}
}

// simulateSimples resolves the DAS through the bracket schedule:
// effective rate = (RBT12 * nominal - deduction) / RBT12, applied to the
// month's gross revenue. One consolidated amount.
func simulateSimples(in SimulationInput) (RegimeSimulationResult, error) {
	res := newResult(model.RegimeSimplesNacional)

	rbt12 := in.Trailing12Revenue
	if rbt12.IsZero() {
		// No history yet: project the current month over a year.
		rbt12 = in.Record.Revenue.Mul(twelve)
		res.Assumptions++
	}
	if rbt12.GreaterThan(simplesCeiling) {
		return RegimeSimulationResult{}, ErrSimplesNotEligible
	}

	var brackets []SimplesBracket
	if in.Brackets == nil {
		brackets = DefaultAnexoIIIBrackets()
	} else {
		// Sort a copy: the caller's schedule is shared across periods.
		brackets = append(brackets, in.Brackets...)
	}
	sort.SliceStable(brackets, func(i, j int) bool { return brackets[i].Ceiling.LessThan(brackets[j].Ceiling) })

	bracket := brackets[len(brackets)-1]
	for _, b := range brackets {
		if rbt12.LessThanOrEqual(b.Ceiling) {
			bracket = b
			break
		}
	}
	res.Assumptions++ // bracket lookup

	// effective = (RBT12 * nominal% - deduction) / RBT12
	effective := rbt12.Mul(bracket.NominalRate).Div(hundred).Sub(bracket.Deduction).Div(rbt12)
	if effective.IsNegative() {
		effective = decimal.Zero
	}

	das := in.Record.Revenue.Mul(effective).Round(2)
	res.Amounts[model.TaxTypeDAS] = das
	res.Total = das
	return res, nil
}

// simulatePresumido applies presumed-profit bases (service percentages) for
// IRPJ/CSLL, payroll-based INSS and cumulative PIS/COFINS/ISS on revenue.
func simulatePresumido(in SimulationInput) (RegimeSimulationResult, error) {
	res := newResult(model.RegimeLucroPresumido)
	record := in.Record

	// INSS patronal: rate on payroll (pro-labore included in the base).
	payrollBase := record.Payroll.Add(record.ProLabore)
	applyRateTax(&res, in, model.TaxTypeINSS, payrollBase)

	// IRPJ on the presumed base, with the monthly surcharge.
	irBase := record.Revenue.Mul(presumptionServiceIR)
	res.Assumptions++ // presumption applied
	applyProfitTax(&res, in, model.TaxTypeIRRF, irBase, true)

	// CSLL on its presumed base.
	csllBase := record.Revenue.Mul(presumptionServiceCSLL)
	applyProfitTax(&res, in, model.TaxTypeCSLL, csllBase, false)

	// Cumulative PIS/COFINS and ISS on gross revenue.
	applyRateTax(&res, in, model.TaxTypePIS, record.Revenue)
	applyRateTax(&res, in, model.TaxTypeCOFINS, record.Revenue)
	applyRateTax(&res, in, model.TaxTypeISS, record.Revenue)

	return res, nil
}

// simulateReal computes IRPJ/CSLL on actual profit and PIS/COFINS
// non-cumulatively: gross tax minus credits from eligible cost categories.
func simulateReal(in SimulationInput) (RegimeSimulationResult, error) {
	res := newResult(model.RegimeLucroReal)
	res.InputCredits = make(map[string]decimal.Decimal)
	record := in.Record

	payrollBase := record.Payroll.Add(record.ProLabore)
	applyRateTax(&res, in, model.TaxTypeINSS, payrollBase)

	// Fiscal profit approximation: revenue minus deductible operational
	// costs, floored at zero (losses do not generate negative tax here).
	profit := record.Revenue.Sub(record.OperationalCosts)
	if profit.IsNegative() {
		profit = decimal.Zero
	}
	applyProfitTax(&res, in, model.TaxTypeIRRF, profit, true)
	applyProfitTax(&res, in, model.TaxTypeCSLL, profit, false)

	applyNonCumulativeTax(&res, in, model.TaxTypePIS)
	applyNonCumulativeTax(&res, in, model.TaxTypeCOFINS)

	applyRateTax(&res, in, model.TaxTypeISS, record.Revenue)

	return res, nil
}

// applyRateTax resolves the winning rule for taxType and applies its rate to
// the base. A missing mandatory rule is recorded as skipped.
func applyRateTax(res *RegimeSimulationResult, in SimulationInput, taxType string, base decimal.Decimal) {
	rule, err := in.Rules.SelectRule(taxType, in.Company, in.Record, res.Regime)
	if err != nil {
		res.SkippedTaxTypes = append(res.SkippedTaxTypes, taxType)
		return
	}
	amount := base.Mul(rule.Rate).Div(hundred).Round(2)
	res.Amounts[taxType] = amount
	res.AppliedRules[taxType] = rule
	res.Total = res.Total.Add(amount)
}

// applyProfitTax applies a profit tax (IRPJ or CSLL) to a taxable base.
// withSurcharge adds the 10% IRPJ adicional on the base above R$ 20k/month.
func applyProfitTax(res *RegimeSimulationResult, in SimulationInput, taxType string, base decimal.Decimal, withSurcharge bool) {
	rule, err := in.Rules.SelectRule(taxType, in.Company, in.Record, res.Regime)
	if err != nil {
		res.SkippedTaxTypes = append(res.SkippedTaxTypes, taxType)
		return
	}
	amount := base.Mul(rule.Rate).Div(hundred)
	if withSurcharge && base.GreaterThan(irSurchargeThreshold) {
		amount = amount.Add(base.Sub(irSurchargeThreshold).Mul(irSurchargeRate))
		res.Assumptions++ // surcharge threshold crossed
	}
	amount = amount.Round(2)
	res.Amounts[taxType] = amount
	res.AppliedRules[taxType] = rule
	res.Total = res.Total.Add(amount)
}

// applyNonCumulativeTax computes gross tax on revenue minus input credits
// granted by cost-category credit rules, floored at zero per tax type.
func applyNonCumulativeTax(res *RegimeSimulationResult, in SimulationInput, taxType string) {
	rule, err := in.Rules.SelectRule(taxType, in.Company, in.Record, res.Regime)
	if err != nil {
		res.SkippedTaxTypes = append(res.SkippedTaxTypes, taxType)
		return
	}
	gross := in.Record.Revenue.Mul(rule.Rate).Div(hundred)

	credits := decimal.Zero
	categories := in.Record.Costs.ByCategory()
	for _, cr := range in.Rules.CreditRules(taxType, in.Company, in.Record, res.Regime) {
		base, ok := categories[cr.Condition.CostCategory]
		if !ok || base.IsZero() {
			continue
		}
		credit := base.Mul(cr.Rate).Div(hundred).Round(2)
		credits = credits.Add(credit)
		res.InputCredits[cr.Condition.CostCategory] = res.InputCredits[cr.Condition.CostCategory].Add(credit)
		res.CreditRules = append(res.CreditRules, cr)
		res.Assumptions++ // one assumption per credited category
	}

	net := gross.Sub(credits)
	if net.IsNegative() {
		net = decimal.Zero
	}
	net = net.Round(2)
	res.Amounts[taxType] = net
	res.AppliedRules[taxType] = rule
	res.Total = res.Total.Add(net)
}
