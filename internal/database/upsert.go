package database

import (
	"fmt"

	"homefinder/server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertTransactions writes a batch of resale records keyed by their natural
// identity (town, flat type, block, street, storey range, month). Re-running
// an import leaves the store unchanged.
func UpsertTransactions(tx *gorm.DB, batch []*models.Transaction) error {
	if len(batch) == 0 {
		return nil
	}

	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "town"}, {Name: "flat_type"}, {Name: "block"},
			{Name: "street_name"}, {Name: "storey_range"}, {Name: "month"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"floor_area_sqm", "flat_model", "lease_start_year",
			"remaining_lease", "resale_price",
		}),
	}).CreateInBatches(batch, 500)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert transactions: %w", result.Error)
	}
	return nil
}

// UpsertTransactions on the handle runs the batch inside one transaction.
func (d *Database) UpsertTransactions(batch []*models.Transaction) error {
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		return UpsertTransactions(tx, batch)
	})
}

// SeedPolicy loads rate, rule and income rows, replacing same-key versions.
// Used by the host application to load reference policy data at startup.
func (d *Database) SeedPolicy(rates []models.MortgageRates, rules []models.LoanRules, income []models.HouseholdIncome) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rates {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO mortgage_interest_rates
			(year, quarter, hdb_concessionary_rate, cpf_oa_rate, bank_floating_rate)
			VALUES (?, ?, ?, ?, ?)
		`, r.Year, r.Quarter, r.HDBRate, r.CPFRate, r.BankFloatingRate)
		if err != nil {
			return fmt.Errorf("failed to insert mortgage rates: %w", err)
		}
	}

	for _, r := range rules {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO loan_eligibility_rules
			(effective_date, max_loan_to_value_pct, mortgage_servicing_ratio_pct,
			 income_ceiling_sgd, max_loan_tenure_years, min_occupation_period_years)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.EffectiveDate, r.MaxLTVPct, r.MSRPct, r.IncomeCeiling,
			r.MaxTenureYears, r.MinOccupationYr)
		if err != nil {
			return fmt.Errorf("failed to insert loan rules: %w", err)
		}
	}

	for _, inc := range income {
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO household_income
			(year, resident_avg, resident_median, employed_avg, employed_median)
			VALUES (?, ?, ?, ?, ?)
		`, inc.Year, inc.ResidentAvg, inc.ResidentMedian, inc.EmployedAvg, inc.EmployedMedian)
		if err != nil {
			return fmt.Errorf("failed to insert household income: %w", err)
		}
	}

	return tx.Commit()
}
