package database

import (
	"fmt"

	"homefinder/server/internal/models"
)

func (d *Database) RunMigrations() error {
	// Transaction table is managed by gorm; policy tables are plain DDL.
	if err := d.gorm.AutoMigrate(&models.Transaction{}); err != nil {
		return fmt.Errorf("failed to migrate transactions table: %w", err)
	}

	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS mortgage_interest_rates (
			year INTEGER NOT NULL,
			quarter INTEGER NOT NULL,
			hdb_concessionary_rate REAL NOT NULL,
			cpf_oa_rate REAL NOT NULL,
			bank_floating_rate REAL NOT NULL,
			PRIMARY KEY (year, quarter)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create mortgage_interest_rates table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS loan_eligibility_rules (
			effective_date TEXT PRIMARY KEY,
			max_loan_to_value_pct REAL NOT NULL,
			mortgage_servicing_ratio_pct REAL NOT NULL,
			income_ceiling_sgd REAL NOT NULL,
			max_loan_tenure_years INTEGER NOT NULL,
			min_occupation_period_years INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create loan_eligibility_rules table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS household_income (
			year INTEGER PRIMARY KEY,
			resident_avg REAL,
			resident_median REAL,
			employed_avg REAL,
			employed_median REAL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create household_income table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_transactions_month_town
		ON transactions(month, town);
	`)
	if err != nil {
		return err
	}

	return nil
}
