package engine

import (
	"testing"

	"backend/internal/model"

	"github.com/shopspring/decimal"
)

func TestSimulatePresumidoKnownValues(t *testing.T) {
	record := testRecord("100000.00", "20000.00", "0")

	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  record,
		Regime:  model.RegimeLucroPresumido,
		Rules:   baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	want := map[string]string{
		model.TaxTypeINSS:   "4000.00",  // 20% of 20000
		model.TaxTypePIS:    "650.00",   // 0.65% of 100000
		model.TaxTypeCOFINS: "3000.00",  // 3% of 100000
		model.TaxTypeIRRF:   "6000.00",  // 15% of 32000 + 10% surcharge on 12000
		model.TaxTypeCSLL:   "2880.00",  // 9% of 32000
		model.TaxTypeISS:    "5000.00",  // 5% of 100000
	}
	for taxType, amount := range want {
		got, ok := res.Amounts[taxType]
		if !ok {
			t.Fatalf("missing amount for %s", taxType)
		}
		if !got.Equal(dec(amount)) {
			t.Errorf("%s = %s, want %s", taxType, got, amount)
		}
	}
	if !res.Total.Equal(dec("21530.00")) {
		t.Errorf("Total = %s, want 21530.00", res.Total)
	}
	if len(res.SkippedTaxTypes) != 0 {
		t.Errorf("unexpected skipped tax types: %v", res.SkippedTaxTypes)
	}
	if _, ok := res.AppliedRules[model.TaxTypeINSS]; !ok {
		t.Error("expected INSS applied rule for citation")
	}
}

func TestSimulateIsPure(t *testing.T) {
	in := SimulationInput{
		Company: testCompany(),
		Record:  testRecord("100000.00", "20000.00", "25000.00"),
		Regime:  model.RegimeLucroPresumido,
		Rules:   baselineRuleSet(),
	}

	first, err := Simulate(in)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := Simulate(in)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if !first.Total.Equal(second.Total) {
		t.Errorf("totals differ across identical runs: %s vs %s", first.Total, second.Total)
	}
	for taxType, amount := range first.Amounts {
		if !second.Amounts[taxType].Equal(amount) {
			t.Errorf("%s differs across identical runs", taxType)
		}
	}
}

func TestSimulateRealInputCredits(t *testing.T) {
	record := testRecord("100000.00", "20000.00", "0")
	record.Costs = model.CostBreakdown{
		EnergiaEletrica: dec("1000.00"),
		InsumosDiretos:  dec("30000.00"),
		AluguelPredios:  dec("2000.00"),
	}
	record.OperationalCosts = record.Costs.Total()

	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  record,
		Regime:  model.RegimeLucroReal,
		Rules:   baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	// PIS: 1.65% of 100000 gross minus 1.65% of 33000 in credits.
	if got := res.Amounts[model.TaxTypePIS]; !got.Equal(dec("1105.50")) {
		t.Errorf("PIS = %s, want 1105.50", got)
	}
	// COFINS: 7.6% of 100000 gross minus 7.6% of 33000 in credits.
	if got := res.Amounts[model.TaxTypeCOFINS]; !got.Equal(dec("5092.00")) {
		t.Errorf("COFINS = %s, want 5092.00", got)
	}
	// IRPJ on profit 67000: 15% plus 10% surcharge above 20000.
	if got := res.Amounts[model.TaxTypeIRRF]; !got.Equal(dec("14750.00")) {
		t.Errorf("IRPJ = %s, want 14750.00", got)
	}

	if len(res.InputCredits) != 3 {
		t.Errorf("InputCredits has %d categories, want 3", len(res.InputCredits))
	}
	if got := res.InputCredits[model.CostInsumosDiretos]; !got.Equal(dec("3270.00")) {
		// 1.65% + 7.6% of 30000
		t.Errorf("insumos_diretos credit = %s, want 3270.00", got)
	}
}

func TestSimulateRealCreditsNeverGoNegative(t *testing.T) {
	// Credits exceed the gross tax: net must floor at zero per tax type.
	record := testRecord("1000.00", "0", "0")
	record.Costs = model.CostBreakdown{InsumosDiretos: dec("500000.00")}
	record.OperationalCosts = record.Costs.Total()

	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  record,
		Regime:  model.RegimeLucroReal,
		Rules:   baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	for taxType, amount := range res.Amounts {
		if amount.IsNegative() {
			t.Errorf("%s went negative: %s", taxType, amount)
		}
	}
	if res.Total.IsNegative() {
		t.Errorf("Total went negative: %s", res.Total)
	}
}

func TestSimulateRealLossMonth(t *testing.T) {
	// Costs above revenue: profit taxes floor at zero, no negative tax.
	record := testRecord("10000.00", "0", "0")
	record.OperationalCosts = dec("50000.00")

	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  record,
		Regime:  model.RegimeLucroReal,
		Rules:   baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if got := res.Amounts[model.TaxTypeIRRF]; !got.IsZero() {
		t.Errorf("IRPJ on loss month = %s, want 0", got)
	}
	if got := res.Amounts[model.TaxTypeCSLL]; !got.IsZero() {
		t.Errorf("CSLL on loss month = %s, want 0", got)
	}
}

func TestSimulateSimplesBrackets(t *testing.T) {
	tests := []struct {
		name     string
		rbt12    string
		revenue  string
		wantDAS  string
	}{
		// First bracket: flat 6%, no deduction.
		{"first bracket", "120000.00", "10000.00", "600.00"},
		// RBT12 1.2M hits the 16% bracket with 35640 deduction:
		// effective = (1200000*0.16 - 35640) / 1200000 = 0.1303.
		{"mid bracket", "1200000.00", "100000.00", "13030.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Simulate(SimulationInput{
				Company:           testCompany(),
				Record:            testRecord(tt.revenue, "0", "0"),
				Regime:            model.RegimeSimplesNacional,
				Trailing12Revenue: dec(tt.rbt12),
				Rules:             baselineRuleSet(),
			})
			if err != nil {
				t.Fatalf("Simulate returned error: %v", err)
			}
			if got := res.Amounts[model.TaxTypeDAS]; !got.Equal(dec(tt.wantDAS)) {
				t.Errorf("DAS = %s, want %s", got, tt.wantDAS)
			}
			if !res.Total.Equal(res.Amounts[model.TaxTypeDAS]) {
				t.Error("Simples total must equal the consolidated DAS amount")
			}
		})
	}
}

func TestSimulateSimplesNoHistoryAnnualizes(t *testing.T) {
	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  testRecord("100000.00", "0", "0"),
		Regime:  model.RegimeSimplesNacional,
		Rules:   baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}
	// 100000 * 12 = 1.2M RBT12, same bracket as the explicit case above.
	if got := res.Amounts[model.TaxTypeDAS]; !got.Equal(dec("13030.00")) {
		t.Errorf("DAS = %s, want 13030.00", got)
	}
	if res.Assumptions < 2 {
		t.Errorf("Assumptions = %d, want at least 2 (projection + bracket lookup)", res.Assumptions)
	}
}

func TestSimulateSimplesLeavesBracketsUntouched(t *testing.T) {
	// Deliberately unsorted schedule shared across calls.
	brackets := []SimplesBracket{
		{Ceiling: dec("360000"), NominalRate: dec("11.20"), Deduction: dec("9360")},
		{Ceiling: dec("180000"), NominalRate: dec("6.00"), Deduction: decimal.Zero},
	}

	_, err := Simulate(SimulationInput{
		Company:           testCompany(),
		Record:            testRecord("10000.00", "0", "0"),
		Regime:            model.RegimeSimplesNacional,
		Trailing12Revenue: dec("120000.00"),
		Brackets:          brackets,
		Rules:             baselineRuleSet(),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if !brackets[0].Ceiling.Equal(dec("360000")) || !brackets[1].Ceiling.Equal(dec("180000")) {
		t.Error("caller's bracket slice was reordered")
	}
}

func TestSimulateSimplesOverCeiling(t *testing.T) {
	_, err := Simulate(SimulationInput{
		Company:           testCompany(),
		Record:            testRecord("500000.00", "0", "0"),
		Regime:            model.RegimeSimplesNacional,
		Trailing12Revenue: dec("5000000.00"),
		Rules:             baselineRuleSet(),
	})
	if err != ErrSimplesNotEligible {
		t.Fatalf("err = %v, want ErrSimplesNotEligible", err)
	}
}

func TestSimulateUnknownRegime(t *testing.T) {
	_, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  testRecord("1000.00", "0", "0"),
		Regime:  "MEI",
		Rules:   baselineRuleSet(),
	})
	if err == nil {
		t.Fatal("expected validation error for unknown regime")
	}
}

func TestSimulateMissingRuleIsSkippedNotFatal(t *testing.T) {
	// Rule set without ISS: the simulation completes and surfaces the gap.
	var rules []model.TaxRule
	for _, r := range baselineRules() {
		if r.TaxType == model.TaxTypeISS {
			continue
		}
		rules = append(rules, r)
	}

	res, err := Simulate(SimulationInput{
		Company: testCompany(),
		Record:  testRecord("100000.00", "20000.00", "0"),
		Regime:  model.RegimeLucroPresumido,
		Rules:   NewRuleSet(rules),
	})
	if err != nil {
		t.Fatalf("Simulate returned error: %v", err)
	}

	if len(res.SkippedTaxTypes) != 1 || res.SkippedTaxTypes[0] != model.TaxTypeISS {
		t.Fatalf("SkippedTaxTypes = %v, want [ISS]", res.SkippedTaxTypes)
	}
	if _, ok := res.Amounts[model.TaxTypeISS]; ok {
		t.Error("skipped tax type must not carry an amount")
	}
}

func TestRoundingIsHalfUp(t *testing.T) {
	if got := dec("100.005").Round(2); !got.Equal(dec("100.01")) {
		t.Errorf("Round(100.005) = %s, want 100.01", got)
	}
	if got := dec("100.004").Round(2); !got.Equal(dec("100.00")) {
		t.Errorf("Round(100.004) = %s, want 100.00", got)
	}
}

func TestRevenueAccumulatorTrailing12(t *testing.T) {
	var acc RevenueAccumulator

	if got := acc.Trailing12(); !got.IsZero() {
		t.Errorf("empty accumulator Trailing12 = %s, want 0", got)
	}

	// Three observed months averaging 100000: annualized to 1.2M.
	for i := 0; i < 3; i++ {
		acc.Add(dec("100000.00"))
	}
	if got := acc.Trailing12(); !got.Equal(dec("1200000.00")) {
		t.Errorf("annualized Trailing12 = %s, want 1200000.00", got)
	}

	// Fill to 15 months: only the last 12 count.
	for i := 0; i < 12; i++ {
		acc.Add(dec("50000.00"))
	}
	if got := acc.Trailing12(); !got.Equal(dec("600000.00")) {
		t.Errorf("windowed Trailing12 = %s, want 600000.00", got)
	}
}

func TestDefaultAnexoIIIBracketsOrdered(t *testing.T) {
	brackets := DefaultAnexoIIIBrackets()
	if len(brackets) != 6 {
		t.Fatalf("got %d brackets, want 6", len(brackets))
	}
	for i := 1; i < len(brackets); i++ {
		if !brackets[i-1].Ceiling.LessThan(brackets[i].Ceiling) {
			t.Errorf("bracket ceilings not strictly increasing at index %d", i)
		}
	}
	if !brackets[len(brackets)-1].Ceiling.Equal(decimal.NewFromInt(4_800_000)) {
		t.Error("last bracket ceiling must equal the Simples eligibility ceiling")
	}
}
