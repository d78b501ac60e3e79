package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"backend/internal/engine"
	"backend/internal/legal"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs (field names match the transport contract) ---

type CompanyInput struct {
	Name         string `json:"name" binding:"required"`
	CNPJ         string `json:"cnpj" binding:"required"`
	ActivityCode string `json:"activity_code"`
	Regime       string `json:"regime" binding:"required,oneof=SIMPLES_NACIONAL LUCRO_PRESUMIDO LUCRO_REAL"`
	State        string `json:"state"`
	City         string `json:"city"`
	PublicEntity bool   `json:"public_entity"`
}

// CostsInput uses decimal strings; empty means zero.
type CostsInput struct {
	EnergiaEletrica      string `json:"energia_eletrica"`
	InsumosDiretos       string `json:"insumos_diretos"`
	AluguelPredios       string `json:"aluguel_predios"`
	MaquinasEquipamentos string `json:"maquinas_equipamentos"`
	Outros               string `json:"outros"`
}

type FiscalMonthInput struct {
	Period     string     `json:"period" binding:"required"` // MM/YYYY or YYYY-MM
	Revenue    string     `json:"revenue" binding:"required"`
	Payroll    string     `json:"payroll"`
	ProLabore  string     `json:"pro_labore"`
	PaidAmount string     `json:"paid_amount"`
	PaidRegime string     `json:"paid_regime"`
	Costs      CostsInput `json:"costs"`
}

type AnalysisRequest struct {
	Company CompanyInput       `json:"company" binding:"required"`
	History []FiscalMonthInput `json:"history" binding:"required,min=1"`
}

type AnalysisResponse struct {
	CompanyID             string   `json:"company_id"`
	TotalSavingsPotential string   `json:"total_savings_potential"`
	OpportunitiesCount    int      `json:"opportunities_count"`
	DownloadLink          string   `json:"download_link"`
	SkippedComputations   []string `json:"skipped_computations,omitempty"`
}

type DecisionRecordResponse struct {
	ID              string   `json:"id"`
	FiscalPeriodRef string   `json:"fiscal_period_ref"`
	Period          string   `json:"period"`
	DecisionSummary string   `json:"decision_summary"`
	RiskLevel       string   `json:"risk_level"`
	ConfidenceScore string   `json:"confidence_score"`
	AppliedLawBases []string `json:"applied_law_bases"`
	CreatedAt       string   `json:"created_at"`
}

// --- Interface ---

type AnalysisService interface {
	AnalyzeHistory(ctx context.Context, req AnalysisRequest, userID string) (AnalysisResponse, error)
	ListDecisions(ctx context.Context, companyID string, page, limit int) ([]DecisionRecordResponse, int64, error)
}

// AnalysisConfig tunes the engine run.
type AnalysisConfig struct {
	Materiality   decimal.Decimal
	OracleTimeout time.Duration
	Brackets      []engine.SimplesBracket // nil = Anexo III default
}

type analysisService struct {
	companies repository.CompanyRepository
	fiscal    repository.FiscalRecordRepository
	rules     repository.TaxRuleRepository
	decisions repository.DecisionRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	oracle    legal.Oracle
	hub       *websocket.Hub
	cfg       AnalysisConfig
}

func NewAnalysisService(
	companies repository.CompanyRepository,
	fiscal repository.FiscalRecordRepository,
	rules repository.TaxRuleRepository,
	decisions repository.DecisionRepository,
	audit repository.AuditRepository,
	txManager repository.TransactionManager,
	oracle legal.Oracle,
	hub *websocket.Hub,
	cfg AnalysisConfig,
) AnalysisService {
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 5 * time.Second
	}
	return &analysisService{
		companies: companies,
		fiscal:    fiscal,
		rules:     rules,
		decisions: decisions,
		audit:     audit,
		txManager: txManager,
		oracle:    oracle,
		hub:       hub,
		cfg:       cfg,
	}
}

// parsedMonth is a validated, decimal-typed fiscal month.
type parsedMonth struct {
	period time.Time
	record model.FiscalPeriodRecord
	regime string // regime the period was actually paid under
}

// --- Implementation ---

func (s *analysisService) AnalyzeHistory(ctx context.Context, req AnalysisRequest, userID string) (AnalysisResponse, error) {
	if !model.ValidRegime(req.Company.Regime) {
		return AnalysisResponse{}, &engine.ValidationError{Field: "company.regime", Message: "unknown tax regime " + req.Company.Regime}
	}

	months, err := parseHistory(req)
	if err != nil {
		return AnalysisResponse{}, err
	}

	company := &model.Company{
		CNPJ:         req.Company.CNPJ,
		LegalName:    req.Company.Name,
		ActivityCode: req.Company.ActivityCode,
		Regime:       req.Company.Regime,
		State:        req.Company.State,
		City:         req.Company.City,
		PublicEntity: req.Company.PublicEntity,
	}
	if err := s.companies.UpsertByCNPJ(ctx, company); err != nil {
		return AnalysisResponse{}, fmt.Errorf("failed to persist company: %w", err)
	}

	activeRules, err := s.rules.FindAllActive(ctx)
	if err != nil {
		return AnalysisResponse{}, fmt.Errorf("failed to load rule set: %w", err)
	}
	ruleSet := engine.NewRuleSet(activeRules)

	// Strict chronological order: the Simples bracket lookup depends on
	// trailing revenue accumulated across earlier periods.
	sort.SliceStable(months, func(i, j int) bool { return months[i].period.Before(months[j].period) })

	var allOpportunities []engine.CreditOpportunity
	var skipped []string
	var acc engine.RevenueAccumulator

	for i := range months {
		m := &months[i]
		m.record.CompanyID = company.ID

		if err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			return s.fiscal.CreateVersioned(txCtx, &m.record)
		}); err != nil {
			return AnalysisResponse{}, fmt.Errorf("failed to persist fiscal record %s: %w", m.period.Format("2006-01"), err)
		}

		trailing := acc.Trailing12()

		actual, alternates, monthSkipped := s.simulateAll(*company, m.record, m.regime, trailing, ruleSet)
		skipped = append(skipped, monthSkipped...)

		opportunities := engine.Analyze(m.record, actual, alternates, engine.AnalyzerConfig{Materiality: s.cfg.Materiality})

		scored := make([]engine.ScoredOpportunity, 0, len(opportunities))
		for _, opp := range opportunities {
			level, confidence := engine.Score(opp, m.record)
			scored = append(scored, engine.ScoredOpportunity{Opportunity: opp, RiskLevel: level, Confidence: confidence})
		}

		citations := s.consultOracle(ctx, scored)

		record := engine.BuildDecisionRecord(m.record, scored, citations)
		if err := s.decisions.Create(ctx, &record); err != nil {
			return AnalysisResponse{}, fmt.Errorf("failed to persist decision record: %w", err)
		}

		allOpportunities = append(allOpportunities, opportunities...)
		acc.Add(m.record.Revenue)
	}

	summary := engine.Aggregate(allOpportunities)

	s.writeAuditLog(ctx, userID, model.ActionRunAnalysis, company.ID.String(), company.LegalName, map[string]interface{}{
		"periods":             len(months),
		"opportunities_count": summary.OpportunitiesCount,
		"total_savings":       summary.TotalSavingsPotential.StringFixed(2),
	})
	s.broadcastCompleted(company, summary)

	return AnalysisResponse{
		CompanyID:             company.ID.String(),
		TotalSavingsPotential: "R$ " + summary.TotalSavingsPotential.StringFixed(2),
		OpportunitiesCount:    summary.OpportunitiesCount,
		DownloadLink:          fmt.Sprintf("/api/companies/%s/decisions", company.ID),
		SkippedComputations:   skipped,
	}, nil
}

// simulateAll recomputes liability under the regime the period was paid
// under plus the two alternates. A Simples alternate above the eligibility
// ceiling is omitted from comparison rather than reported as zero.
func (s *analysisService) simulateAll(company model.Company, record model.FiscalPeriodRecord, actualRegime string, trailing decimal.Decimal, ruleSet *engine.RuleSet) (engine.RegimeSimulationResult, []engine.RegimeSimulationResult, []string) {
	var skipped []string
	simulate := func(regime string) (engine.RegimeSimulationResult, bool) {
		res, err := engine.Simulate(engine.SimulationInput{
			Company:           company,
			Record:            record,
			Regime:            regime,
			Trailing12Revenue: trailing,
			Brackets:          s.cfg.Brackets,
			Rules:             ruleSet,
		})
		if err != nil {
			if err != engine.ErrSimplesNotEligible {
				log.Printf("simulation under %s failed for %s: %v", regime, record.Period.Format("2006-01"), err)
			}
			return engine.RegimeSimulationResult{}, false
		}
		for _, taxType := range res.SkippedTaxTypes {
			skipped = append(skipped, fmt.Sprintf("%s: %s (%s)", record.Period.Format("2006-01"), taxType, regime))
		}
		return res, true
	}

	actual, ok := simulate(actualRegime)
	if !ok {
		// Declared regime not simulatable (e.g. Simples over the ceiling):
		// surface the gap and fall back to an empty result so the alternate
		// simulations still run. The analyzer emits no overpayment from an
		// empty liability.
		skipped = append(skipped, fmt.Sprintf("%s: %s (regime not simulatable)", record.Period.Format("2006-01"), actualRegime))
		actual = engine.RegimeSimulationResult{Regime: actualRegime, Total: decimal.Zero}
	}

	var alternates []engine.RegimeSimulationResult
	for _, regime := range model.Regimes {
		if regime == actualRegime {
			continue
		}
		if res, ok := simulate(regime); ok {
			alternates = append(alternates, res)
		}
	}
	return actual, alternates, skipped
}

// consultOracle enriches findings with external citations. Failures are
// logged and swallowed: the oracle never blocks a valid decision record.
func (s *analysisService) consultOracle(ctx context.Context, scored []engine.ScoredOpportunity) []string {
	if s.oracle == nil || len(scored) == 0 {
		return nil
	}
	topic := scored[0].Opportunity.Description
	for _, sc := range scored[1:] {
		topic += " " + sc.Opportunity.Description
	}

	oracleCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	citations, err := s.oracle.CitationsFor(oracleCtx, topic)
	if err != nil {
		log.Printf("legal oracle degraded, using deterministic citations only: %v", err)
		return nil
	}
	return citations
}

func (s *analysisService) ListDecisions(ctx context.Context, companyID string, page, limit int) ([]DecisionRecordResponse, int64, error) {
	id, err := uuid.Parse(companyID)
	if err != nil {
		return nil, 0, &engine.ValidationError{Field: "company_id", Message: "invalid company id"}
	}

	records, total, err := s.decisions.ListByCompany(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list decision records: %w", err)
	}

	out := make([]DecisionRecordResponse, 0, len(records))
	for _, r := range records {
		resp := DecisionRecordResponse{
			ID:              r.ID.String(),
			FiscalPeriodRef: r.FiscalRecordID.String(),
			DecisionSummary: r.Summary,
			RiskLevel:       r.RiskLevel,
			ConfidenceScore: r.ConfidenceScore.StringFixed(2),
			AppliedLawBases: r.AppliedLawBases,
			CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		}
		if r.FiscalRecord != nil {
			resp.Period = r.FiscalRecord.Period.Format("2006-01")
		}
		out = append(out, resp)
	}
	return out, total, nil
}

// --- Helpers ---

// parseHistory validates and converts the request history. Negative or
// malformed monetary fields and duplicate periods are rejected before any
// simulation runs.
func parseHistory(req AnalysisRequest) ([]parsedMonth, error) {
	months := make([]parsedMonth, 0, len(req.History))
	seen := make(map[time.Time]bool)

	for i, h := range req.History {
		field := func(name string) string { return fmt.Sprintf("history[%d].%s", i, name) }

		period, err := ParsePeriod(h.Period)
		if err != nil {
			return nil, &engine.ValidationError{Field: field("period"), Message: err.Error()}
		}
		if seen[period] {
			return nil, &engine.ValidationError{Field: field("period"), Message: "duplicate period " + h.Period + " for company"}
		}
		seen[period] = true

		revenue, err := parseMoney(h.Revenue, field("revenue"))
		if err != nil {
			return nil, err
		}
		payroll, err := parseMoney(h.Payroll, field("payroll"))
		if err != nil {
			return nil, err
		}
		proLabore, err := parseMoney(h.ProLabore, field("pro_labore"))
		if err != nil {
			return nil, err
		}
		paid, err := parseMoney(h.PaidAmount, field("paid_amount"))
		if err != nil {
			return nil, err
		}
		costs, err := parseCosts(h.Costs, i)
		if err != nil {
			return nil, err
		}

		regime := h.PaidRegime
		if regime == "" {
			// Fallback: periods without their own paid regime use the
			// company's declared one.
			regime = req.Company.Regime
		}
		if !model.ValidRegime(regime) {
			return nil, &engine.ValidationError{Field: field("paid_regime"), Message: "unknown tax regime " + regime}
		}

		months = append(months, parsedMonth{
			period: period,
			regime: regime,
			record: model.FiscalPeriodRecord{
				Period:           period,
				Revenue:          revenue,
				Payroll:          payroll,
				ProLabore:        proLabore,
				PaidAmount:       paid,
				PaidRegime:       regime,
				OperationalCosts: costs.Total(),
				Costs:            costs,
			},
		})
	}
	return months, nil
}

// ParsePeriod accepts the Brazilian "MM/YYYY" import format or ISO
// "YYYY-MM", normalizing to the first day of the reference month in UTC.
func ParsePeriod(raw string) (time.Time, error) {
	for _, layout := range []string{"01/2006", "2006-01"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period %q (expected MM/YYYY or YYYY-MM)", raw)
}

func parseMoney(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &engine.ValidationError{Field: field, Message: "invalid monetary value " + raw}
	}
	if value.IsNegative() {
		return decimal.Zero, &engine.ValidationError{Field: field, Message: "monetary value must not be negative"}
	}
	return value, nil
}

func parseCosts(in CostsInput, index int) (model.CostBreakdown, error) {
	field := func(name string) string { return fmt.Sprintf("history[%d].costs.%s", index, name) }

	energia, err := parseMoney(in.EnergiaEletrica, field(model.CostEnergiaEletrica))
	if err != nil {
		return model.CostBreakdown{}, err
	}
	insumos, err := parseMoney(in.InsumosDiretos, field(model.CostInsumosDiretos))
	if err != nil {
		return model.CostBreakdown{}, err
	}
	aluguel, err := parseMoney(in.AluguelPredios, field(model.CostAluguelPredios))
	if err != nil {
		return model.CostBreakdown{}, err
	}
	maquinas, err := parseMoney(in.MaquinasEquipamentos, field(model.CostMaquinasEquipamentos))
	if err != nil {
		return model.CostBreakdown{}, err
	}
	outros, err := parseMoney(in.Outros, field(model.CostOutros))
	if err != nil {
		return model.CostBreakdown{}, err
	}

	return model.CostBreakdown{
		EnergiaEletrica:      energia,
		InsumosDiretos:       insumos,
		AluguelPredios:       aluguel,
		MaquinasEquipamentos: maquinas,
		Outros:               outros,
	}, nil
}

func (s *analysisService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	if s.audit == nil {
		return
	}
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log, never fails the analysis.
	if err := s.audit.Create(ctx, &entry); err != nil {
		log.Printf("failed to write audit log: %v", err)
	}
}

func (s *analysisService) broadcastCompleted(company *model.Company, summary engine.CompanySummary) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(websocket.Event{
		Type: websocket.EventAnalysisCompleted,
		Data: map[string]interface{}{
			"company_id":          company.ID.String(),
			"company_name":        company.LegalName,
			"total_savings":       summary.TotalSavingsPotential.StringFixed(2),
			"opportunities_count": summary.OpportunitiesCount,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
