package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DecisionRepository interface {
	Create(ctx context.Context, record *model.DecisionRecord) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.DecisionRecord, int64, error)
}

type decisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) Create(ctx context.Context, record *model.DecisionRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *decisionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, page, limit int) ([]model.DecisionRecord, int64, error) {
	var records []model.DecisionRecord
	var total int64

	db := GetDB(ctx, r.db).
		Joins("JOIN fiscal_period_records fpr ON fpr.id = decision_records.fiscal_record_id").
		Where("fpr.company_id = ?", companyID)

	if err := db.Model(&model.DecisionRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("FiscalRecord").
		Order("decision_records.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
