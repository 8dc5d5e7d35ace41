package database

import (
	"database/sql"
	"fmt"

	"homefinder/server/internal/models"
)

// Fallback policy constants used when the corresponding table exists but
// holds no rows yet. These mirror the published 2024 values and are the only
// fabricated policy data in the system.
var (
	defaultMortgageRates = models.MortgageRates{
		Year: 2024, Quarter: 4,
		HDBRate: 2.6, CPFRate: 2.7, BankFloatingRate: 3.2,
	}
	defaultLoanRules = models.LoanRules{
		EffectiveDate:   "2024-01-01",
		MaxLTVPct:       80,
		MSRPct:          30,
		IncomeCeiling:   21000,
		MaxTenureYears:  25,
		MinOccupationYr: 5,
	}
)

// CurrentMortgageRate returns the most recently published rate set.
func (d *Database) CurrentMortgageRate() (models.MortgageRates, error) {
	var r models.MortgageRates
	err := d.db.QueryRow(`
		SELECT year, quarter, hdb_concessionary_rate, cpf_oa_rate, bank_floating_rate
		FROM mortgage_interest_rates
		ORDER BY year DESC, quarter DESC
		LIMIT 1
	`).Scan(&r.Year, &r.Quarter, &r.HDBRate, &r.CPFRate, &r.BankFloatingRate)
	if err == sql.ErrNoRows {
		return defaultMortgageRates, nil
	}
	if err != nil {
		return r, fmt.Errorf("%w: mortgage rates: %v", ErrPolicyUnavailable, err)
	}
	return r, nil
}

// CurrentLoanRules returns the loan rules with the latest effective date.
func (d *Database) CurrentLoanRules() (models.LoanRules, error) {
	var r models.LoanRules
	err := d.db.QueryRow(`
		SELECT effective_date, max_loan_to_value_pct, mortgage_servicing_ratio_pct,
		       income_ceiling_sgd, max_loan_tenure_years, min_occupation_period_years
		FROM loan_eligibility_rules
		ORDER BY effective_date DESC
		LIMIT 1
	`).Scan(&r.EffectiveDate, &r.MaxLTVPct, &r.MSRPct, &r.IncomeCeiling,
		&r.MaxTenureYears, &r.MinOccupationYr)
	if err == sql.ErrNoRows {
		return defaultLoanRules, nil
	}
	if err != nil {
		return r, fmt.Errorf("%w: loan rules: %v", ErrPolicyUnavailable, err)
	}
	return r, nil
}

// LatestHouseholdIncome returns the most recent reference income statistics,
// or nil when none have been loaded. Absent income data is not an error; the
// solver reports a null income comparison instead.
func (d *Database) LatestHouseholdIncome() (*models.HouseholdIncome, error) {
	var inc models.HouseholdIncome
	var residentAvg, residentMedian, employedAvg, employedMedian sql.NullFloat64
	err := d.db.QueryRow(`
		SELECT year, resident_avg, resident_median, employed_avg, employed_median
		FROM household_income
		ORDER BY year DESC
		LIMIT 1
	`).Scan(&inc.Year, &residentAvg, &residentMedian, &employedAvg, &employedMedian)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: household income: %v", ErrPolicyUnavailable, err)
	}

	if residentAvg.Valid {
		inc.ResidentAvg = &residentAvg.Float64
	}
	if residentMedian.Valid {
		inc.ResidentMedian = &residentMedian.Float64
	}
	if employedAvg.Valid {
		inc.EmployedAvg = &employedAvg.Float64
	}
	if employedMedian.Valid {
		inc.EmployedMedian = &employedMedian.Float64
	}
	return &inc, nil
}
