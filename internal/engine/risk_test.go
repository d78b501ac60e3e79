package engine

import (
	"testing"

	"backend/internal/model"
)

func TestScoreRiskLevels(t *testing.T) {
	record := testRecord("100000.00", "0", "0")

	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"below two percent is low", "1999.99", model.RiskLow},
		{"two percent is medium", "2000.00", model.RiskMedium},
		{"eight percent is still medium", "8000.00", model.RiskMedium},
		{"above eight percent is high", "8000.01", model.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := CreditOpportunity{Amount: dec(tt.amount)}
			level, _ := Score(opp, record)
			if level != tt.want {
				t.Errorf("Score(%s) level = %s, want %s", tt.amount, level, tt.want)
			}
		})
	}
}

func TestScoreRiskIsMonotonic(t *testing.T) {
	record := testRecord("100000.00", "0", "0")

	prev := 0
	for _, amount := range []string{"500.00", "3000.00", "9000.00", "50000.00"} {
		level, _ := Score(CreditOpportunity{Amount: dec(amount)}, record)
		if riskRank(level) < prev {
			t.Fatalf("risk decreased at amount %s", amount)
		}
		prev = riskRank(level)
	}
}

func TestScoreEscalatesOnManyConditions(t *testing.T) {
	record := testRecord("100000.00", "0", "0")

	opp := CreditOpportunity{Amount: dec("500.00"), ConditionCount: 6}
	level, _ := Score(opp, record)
	if level != model.RiskMedium {
		t.Errorf("level = %s, want MEDIUM after escalation from LOW", level)
	}

	opp = CreditOpportunity{Amount: dec("3000.00"), ConditionCount: 6}
	level, _ = Score(opp, record)
	if level != model.RiskHigh {
		t.Errorf("level = %s, want HIGH after escalation from MEDIUM", level)
	}

	// HIGH has nowhere to escalate.
	opp = CreditOpportunity{Amount: dec("50000.00"), ConditionCount: 10}
	level, _ = Score(opp, record)
	if level != model.RiskHigh {
		t.Errorf("level = %s, want HIGH", level)
	}
}

func TestScoreZeroRevenueWithAmount(t *testing.T) {
	record := testRecord("0", "0", "0")

	level, _ := Score(CreditOpportunity{Amount: dec("100.00")}, record)
	if level != model.RiskHigh {
		t.Errorf("level = %s, want HIGH for recoverable amount with no revenue", level)
	}

	level, _ = Score(CreditOpportunity{}, record)
	if level != model.RiskLow {
		t.Errorf("level = %s, want LOW for empty finding with no revenue", level)
	}
}

func TestScoreConfidence(t *testing.T) {
	record := testRecord("100000.00", "0", "0")

	tests := []struct {
		assumptions int
		want        string
	}{
		{0, "1.00"},
		{1, "0.95"},
		{3, "0.85"},
		{20, "0.00"}, // floored, never negative
		{30, "0.00"},
	}

	for _, tt := range tests {
		_, confidence := Score(CreditOpportunity{Amount: dec("500.00"), Assumptions: tt.assumptions}, record)
		if !confidence.Equal(dec(tt.want)) {
			t.Errorf("confidence with %d assumptions = %s, want %s", tt.assumptions, confidence, tt.want)
		}
	}
}
