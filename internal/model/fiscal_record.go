package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deductible cost category keys, matching the import payload field names.
const (
	CostEnergiaEletrica      = "energia_eletrica"
	CostInsumosDiretos       = "insumos_diretos"
	CostAluguelPredios       = "aluguel_predios"
	CostMaquinasEquipamentos = "maquinas_equipamentos"
	CostOutros               = "outros"
)

// CostBreakdown itemizes deductible operational costs used for
// PIS/COFINS input-credit eligibility. Stored as jsonb on the record.
type CostBreakdown struct {
	EnergiaEletrica      decimal.Decimal `json:"energia_eletrica"`
	InsumosDiretos       decimal.Decimal `json:"insumos_diretos"`
	AluguelPredios       decimal.Decimal `json:"aluguel_predios"`
	MaquinasEquipamentos decimal.Decimal `json:"maquinas_equipamentos"`
	Outros               decimal.Decimal `json:"outros"`
}

// ByCategory returns the breakdown as category key -> amount.
// "outros" is intentionally excluded: it never generates input credits.
func (c CostBreakdown) ByCategory() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		CostEnergiaEletrica:      c.EnergiaEletrica,
		CostInsumosDiretos:       c.InsumosDiretos,
		CostAluguelPredios:       c.AluguelPredios,
		CostMaquinasEquipamentos: c.MaquinasEquipamentos,
	}
}

// Total sums every category, including non-creditable "outros".
func (c CostBreakdown) Total() decimal.Decimal {
	return c.EnergiaEletrica.
		Add(c.InsumosDiretos).
		Add(c.AluguelPredios).
		Add(c.MaquinasEquipamentos).
		Add(c.Outros)
}

// FiscalPeriodRecord holds one reference month of a company's fiscal data.
// Records are immutable: a correction inserts a superseding row with
// version = max(version)+1 for the same company+period, never an update.
type FiscalPeriodRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_company_period_version" json:"company_id"`
	Company   *Company  `gorm:"foreignKey:CompanyID" json:"-"`
	Period    time.Time `gorm:"type:date;not null;uniqueIndex:idx_company_period_version" json:"period"` // first day of reference month
	Version   int       `gorm:"not null;default:1;uniqueIndex:idx_company_period_version" json:"version"`

	Revenue    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"revenue"`
	Payroll    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"payroll"`
	ProLabore  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"pro_labore"`
	PaidAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"paid_amount"`
	PaidRegime string          `gorm:"type:varchar(30)" json:"paid_regime"` // regime actually used when paying; falls back to company regime

	OperationalCosts decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"operational_costs"`
	Costs            CostBreakdown   `gorm:"type:jsonb;serializer:json" json:"costs"`

	CreatedAt time.Time `json:"created_at"`
}
