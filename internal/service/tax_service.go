package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTaxRuleRequest struct {
	TaxType     string              `json:"tax_type" binding:"required,oneof=INSS IRRF CSLL PIS COFINS ISS"`
	Description string              `json:"description"`
	LegalBasis  string              `json:"legal_basis" binding:"required"`
	Rate        string              `json:"rate" binding:"required"` // percentage as decimal string, e.g. "20.00"
	Condition   model.RuleCondition `json:"condition"`
}

type UpdateTaxRuleRequest struct {
	Description string              `json:"description"`
	LegalBasis  string              `json:"legal_basis" binding:"required"`
	Rate        string              `json:"rate" binding:"required"`
	Condition   model.RuleCondition `json:"condition"`
	Active      *bool               `json:"active"`
}

type TaxRuleResponse struct {
	ID          string              `json:"id"`
	TaxType     string              `json:"tax_type"`
	Description string              `json:"description"`
	LegalBasis  string              `json:"legal_basis"`
	Rate        string              `json:"rate"`
	Condition   model.RuleCondition `json:"condition"`
	Active      bool                `json:"active"`
	CreatedAt   string              `json:"created_at"`
}

// --- Interface ---

type TaxService interface {
	ListTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest, userID string) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id string, req UpdateTaxRuleRequest, userID string) (TaxRuleResponse, error)
	DeactivateTaxRule(ctx context.Context, id string, userID string) error
}

type taxService struct {
	rules repository.TaxRuleRepository
	audit repository.AuditRepository
}

func NewTaxService(rules repository.TaxRuleRepository, audit repository.AuditRepository) TaxService {
	return &taxService{rules: rules, audit: audit}
}

// --- Implementation ---

func (s *taxService) ListTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error) {
	rules, total, err := s.rules.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req CreateTaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rate, err := parseRate(req.Rate)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{
		TaxType:     req.TaxType,
		Description: req.Description,
		LegalBasis:  req.LegalBasis,
		Rate:        rate,
		Condition:   req.Condition,
		Active:      true,
	}

	if err := s.rules.Create(ctx, &rule); err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to create tax rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionCreateTaxRule, rule.ID.String(), req.TaxType+" "+rate.StringFixed(2), req)

	return toTaxRuleResponse(rule), nil
}

func (s *taxService) UpdateTaxRule(ctx context.Context, id string, req UpdateTaxRuleRequest, userID string) (TaxRuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rate, err := parseRate(req.Rate)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule.Description = req.Description
	rule.LegalBasis = req.LegalBasis
	rule.Rate = rate
	rule.Condition = req.Condition
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return TaxRuleResponse{}, fmt.Errorf("failed to update tax rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateTaxRule, rule.ID.String(), rule.TaxType+" "+rate.StringFixed(2), req)

	return toTaxRuleResponse(*rule), nil
}

// DeactivateTaxRule retires a rule without deleting it: past analyses stay
// explainable because the cited rule remains on file.
func (s *taxService) DeactivateTaxRule(ctx context.Context, id string, userID string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}

	rule.Active = false
	if err := s.rules.Update(ctx, rule); err != nil {
		return fmt.Errorf("failed to deactivate tax rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionDeactivateTaxRule, rule.ID.String(), rule.TaxType+" "+rule.Rate.StringFixed(2), map[string]string{"deactivated_id": id})

	return nil
}

// --- Helpers ---

func (s *taxService) findRule(ctx context.Context, id string) (*model.TaxRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid tax rule id: %w", err)
	}

	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tax rule not found")
		}
		return nil, fmt.Errorf("failed to fetch tax rule: %w", err)
	}
	return rule, nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate value: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate must not be negative")
	}
	return rate, nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	return TaxRuleResponse{
		ID:          r.ID.String(),
		TaxType:     r.TaxType,
		Description: r.Description,
		LegalBasis:  r.LegalBasis,
		Rate:        r.Rate.StringFixed(2),
		Condition:   r.Condition,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}

func (s *taxService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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

	// Best-effort audit log — don't fail the operation if logging fails
	if err := s.audit.Create(ctx, &entry); err != nil {
		log.Printf("failed to write audit log: %v", err)
	}
}
