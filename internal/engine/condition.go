package engine

import (
	"strings"

	"backend/internal/model"
)

// MatchesCondition evaluates a rule's structured condition against the
// company profile, the fiscal period and the regime being simulated.
//
// The predicate set is closed by design: threshold comparisons on period
// revenue, regime inclusion/exclusion lists and CNAE prefix matching.
// An empty condition matches everything.
func MatchesCondition(cond model.RuleCondition, company model.Company, record model.FiscalPeriodRecord, regime string) bool {
	if cond.MinRevenue != nil && record.Revenue.LessThan(*cond.MinRevenue) {
		return false
	}
	if cond.MaxRevenue != nil && record.Revenue.GreaterThan(*cond.MaxRevenue) {
		return false
	}
	if len(cond.RegimesInclude) > 0 && !containsString(cond.RegimesInclude, regime) {
		return false
	}
	if len(cond.RegimesExclude) > 0 && containsString(cond.RegimesExclude, regime) {
		return false
	}
	if len(cond.ActivityCodes) > 0 && !matchesActivity(cond.ActivityCodes, company.ActivityCode) {
		return false
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// matchesActivity treats condition entries as CNAE prefixes, so a rule
// scoped to "62" covers every IT-services subclass under it.
func matchesActivity(prefixes []string, activityCode string) bool {
	if activityCode == "" {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(activityCode, p) {
			return true
		}
	}
	return false
}
