package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FiscalRecordRepository interface {
	// CreateVersioned inserts the record as a superseding version for its
	// company+period: existing versions are never touched.
	CreateVersioned(ctx context.Context, record *model.FiscalPeriodRecord) error
	// LatestByCompany returns the highest-version record per period,
	// chronologically ordered.
	LatestByCompany(ctx context.Context, companyID uuid.UUID) ([]model.FiscalPeriodRecord, error)
	MaxVersion(ctx context.Context, companyID uuid.UUID, period time.Time) (int, error)
}

type fiscalRecordRepository struct {
	db *gorm.DB
}

func NewFiscalRecordRepository(db *gorm.DB) FiscalRecordRepository {
	return &fiscalRecordRepository{db: db}
}

func (r *fiscalRecordRepository) CreateVersioned(ctx context.Context, record *model.FiscalPeriodRecord) error {
	db := GetDB(ctx, r.db)
	current, err := r.maxVersion(db, record.CompanyID, record.Period)
	if err != nil {
		return err
	}
	record.Version = current + 1
	return db.Create(record).Error
}

func (r *fiscalRecordRepository) MaxVersion(ctx context.Context, companyID uuid.UUID, period time.Time) (int, error) {
	return r.maxVersion(GetDB(ctx, r.db), companyID, period)
}

func (r *fiscalRecordRepository) maxVersion(db *gorm.DB, companyID uuid.UUID, period time.Time) (int, error) {
	var current int
	err := db.Model(&model.FiscalPeriodRecord{}).
		Where("company_id = ? AND period = ?", companyID, period).
		Select("COALESCE(MAX(version), 0)").
		Scan(&current).Error
	return current, err
}

func (r *fiscalRecordRepository) LatestByCompany(ctx context.Context, companyID uuid.UUID) ([]model.FiscalPeriodRecord, error) {
	var records []model.FiscalPeriodRecord
	err := GetDB(ctx, r.db).Raw(`
		SELECT DISTINCT ON (period) *
		FROM fiscal_period_records
		WHERE company_id = ?
		ORDER BY period, version DESC
	`, companyID).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
