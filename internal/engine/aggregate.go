package engine

import "github.com/shopspring/decimal"

// CompanySummary rolls per-period findings into company-level totals.
type CompanySummary struct {
	TotalSavingsPotential decimal.Decimal
	OpportunitiesCount    int
}

// Aggregate sums all opportunity amounts with fixed-point addition and
// counts the non-zero ones across every analyzed period.
func Aggregate(opportunities []CreditOpportunity) CompanySummary {
	total := decimal.Zero
	count := 0
	for _, opp := range opportunities {
		if opp.Amount.IsZero() {
			continue
		}
		total = total.Add(opp.Amount)
		count++
	}
	return CompanySummary{
		TotalSavingsPotential: total.Round(2),
		OpportunitiesCount:    count,
	}
}
