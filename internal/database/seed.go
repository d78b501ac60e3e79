package database

import (
	"log"
	"os"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedDefaultRules loads the baseline Brazilian tax rule catalog. It is a
// no-op when the rule table already has rows, so operator edits survive
// restarts.
func SeedDefaultRules(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.TaxRule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	rules := defaultRules()
	if err := db.Create(&rules).Error; err != nil {
		return err
	}

	log.Printf("Seeded %d default tax rules", len(rules))
	return nil
}

func defaultRules() []model.TaxRule {
	rate := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	rules := []model.TaxRule{
		{
			TaxType:     model.TaxTypeINSS,
			Description: "Contribuição previdenciária patronal sobre folha de pagamento e pró-labore",
			LegalBasis:  "Lei 8.212/91, Art. 22",
			Rate:        rate("20.00"),
			Condition:   model.RuleCondition{RegimesExclude: []string{model.RegimeSimplesNacional}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypePIS,
			Description: "PIS cumulativo sobre o faturamento",
			LegalBasis:  "Lei 9.718/98",
			Rate:        rate("0.65"),
			Condition:   model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypeCOFINS,
			Description: "COFINS cumulativa sobre o faturamento",
			LegalBasis:  "Lei 9.718/98",
			Rate:        rate("3.00"),
			Condition:   model.RuleCondition{RegimesInclude: []string{model.RegimeLucroPresumido}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypePIS,
			Description: "PIS não-cumulativo sobre a receita",
			LegalBasis:  "Lei 10.637/02",
			Rate:        rate("1.65"),
			Condition:   model.RuleCondition{RegimesInclude: []string{model.RegimeLucroReal}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypeCOFINS,
			Description: "COFINS não-cumulativa sobre a receita",
			LegalBasis:  "Lei 10.833/03",
			Rate:        rate("7.60"),
			Condition:   model.RuleCondition{RegimesInclude: []string{model.RegimeLucroReal}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypeIRRF,
			Description: "IRPJ sobre a base presumida ou o lucro apurado",
			LegalBasis:  "Lei 9.249/95, Art. 15",
			Rate:        rate("15.00"),
			Condition:   model.RuleCondition{RegimesExclude: []string{model.RegimeSimplesNacional}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypeCSLL,
			Description: "Contribuição Social sobre o Lucro Líquido",
			LegalBasis:  "Lei 7.689/88",
			Rate:        rate("9.00"),
			Condition:   model.RuleCondition{RegimesExclude: []string{model.RegimeSimplesNacional}},
			Active:      true,
		},
		{
			TaxType:     model.TaxTypeISS,
			Description: "Imposto Sobre Serviços de qualquer natureza",
			LegalBasis:  "LC 116/03",
			Rate:        rate("5.00"),
			Condition:   model.RuleCondition{RegimesExclude: []string{model.RegimeSimplesNacional}},
			Active:      true,
		},
	}

	// Input credit rules: creditable cost categories under the
	// non-cumulative regime.
	creditCategories := []string{
		model.CostEnergiaEletrica,
		model.CostInsumosDiretos,
		model.CostAluguelPredios,
		model.CostMaquinasEquipamentos,
	}
	for _, category := range creditCategories {
		rules = append(rules,
			model.TaxRule{
				TaxType:     model.TaxTypePIS,
				Description: "Crédito de PIS sobre insumo: " + category,
				LegalBasis:  "Lei 10.637/02, Art. 3º",
				Rate:        rate("1.65"),
				Condition: model.RuleCondition{
					RegimesInclude: []string{model.RegimeLucroReal},
					CostCategory:   category,
				},
				Active: true,
			},
			model.TaxRule{
				TaxType:     model.TaxTypeCOFINS,
				Description: "Crédito de COFINS sobre insumo: " + category,
				LegalBasis:  "Lei 10.833/03, Art. 3º",
				Rate:        rate("7.60"),
				Condition: model.RuleCondition{
					RegimesInclude: []string{model.RegimeLucroReal},
					CostCategory:   category,
				},
				Active: true,
			},
		)
	}

	return rules
}

// SeedAdminUser provisions the initial admin account from env vars.
// Skipped when the username already exists or ADMIN_PASSWORD is unset.
func SeedAdminUser(db *gorm.DB) error {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin user seed")
		return nil
	}

	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = username + "@localhost"
	}

	user := model.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     model.RoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}

	log.Printf("Seeded admin user %q", username)
	return nil
}
