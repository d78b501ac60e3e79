package model

import (
	"time"

	"github.com/google/uuid"
)

// Regime enum constants (Brazilian corporate tax frameworks)
const (
	RegimeSimplesNacional = "SIMPLES_NACIONAL"
	RegimeLucroPresumido  = "LUCRO_PRESUMIDO"
	RegimeLucroReal       = "LUCRO_REAL"
)

// Regimes lists every valid regime, in comparison order.
var Regimes = []string{RegimeSimplesNacional, RegimeLucroPresumido, RegimeLucroReal}

// ValidRegime reports whether r is one of the three enumerated regimes.
func ValidRegime(r string) bool {
	for _, v := range Regimes {
		if r == v {
			return true
		}
	}
	return false
}

// Company is the audited entity. Immutable after creation except for
// administrative correction via upsert on CNPJ.
type Company struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CNPJ         string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"cnpj"`
	LegalName    string    `gorm:"type:varchar(255);not null" json:"legal_name"`
	ActivityCode string    `gorm:"type:varchar(20)" json:"activity_code"` // CNAE principal
	Regime       string    `gorm:"type:varchar(30);not null" json:"regime"`
	State        string    `gorm:"type:varchar(2)" json:"state"`
	City         string    `gorm:"type:varchar(100)" json:"city"`
	PublicEntity bool      `gorm:"default:false" json:"public_entity"` // affects withholding obligations
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
