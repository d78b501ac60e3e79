package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyRepository interface {
	UpsertByCNPJ(ctx context.Context, company *model.Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*model.Company, error)
	List(ctx context.Context, page, limit int) ([]model.Company, int64, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

// UpsertByCNPJ inserts the company or refreshes its administrative fields on
// CNPJ conflict, then reloads so the caller gets the persisted row.
func (r *companyRepository) UpsertByCNPJ(ctx context.Context, company *model.Company) error {
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cnpj"}},
		DoUpdates: clause.AssignmentColumns([]string{"legal_name", "regime", "activity_code", "state", "city", "updated_at"}),
	}).Create(company).Error; err != nil {
		return err
	}
	return db.First(company, "cnpj = ?", company.CNPJ).Error
}

func (r *companyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var company model.Company
	if err := GetDB(ctx, r.db).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) FindByCNPJ(ctx context.Context, cnpj string) (*model.Company, error) {
	var company model.Company
	err := GetDB(ctx, r.db).First(&company, "cnpj = ?", cnpj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) List(ctx context.Context, page, limit int) ([]model.Company, int64, error) {
	var companies []model.Company
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Company{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("legal_name").Offset(offset).Limit(limit).Find(&companies).Error; err != nil {
		return nil, 0, err
	}

	return companies, total, nil
}
