package models

// LoanType selects which published interest rate the solver uses.
type LoanType string

const (
	LoanTypeHDB  LoanType = "hdb"
	LoanTypeBank LoanType = "bank"
)

// MortgageRates is the latest published rate set, keyed by year and quarter.
type MortgageRates struct {
	Year             int     `json:"year"`
	Quarter          int     `json:"quarter"`
	HDBRate          float64 `json:"hdb_rate"`
	CPFRate          float64 `json:"cpf_rate"`
	BankFloatingRate float64 `json:"bank_rate"`
}

// RateFor returns the annual percentage rate for a loan type.
func (r MortgageRates) RateFor(lt LoanType) float64 {
	if lt == LoanTypeBank {
		return r.BankFloatingRate
	}
	return r.HDBRate
}

// LoanRules is the loan policy snapshot effective at a given date. The
// solver always uses the latest effective version.
type LoanRules struct {
	EffectiveDate   string  `json:"effective_date"`
	MaxLTVPct       float64 `json:"max_ltv_pct"`
	MSRPct          float64 `json:"msr_pct"`
	IncomeCeiling   float64 `json:"income_ceiling"`
	MaxTenureYears  int     `json:"max_tenure_years"`
	MinOccupationYr int     `json:"mop_years"`
}

// HouseholdIncome is the latest reference income statistics, or absent.
type HouseholdIncome struct {
	Year           int      `json:"year"`
	ResidentAvg    *float64 `json:"resident_avg"`
	ResidentMedian *float64 `json:"resident_median"`
	EmployedAvg    *float64 `json:"employed_avg"`
	EmployedMedian *float64 `json:"employed_median"`
}

// AffordabilityResult is the solver output. Money fields are rounded to two
// decimals, ratio fields to one.
type AffordabilityResult struct {
	Affordable             bool     `json:"affordable"`
	MaxPropertyValue       float64  `json:"max_property_value"`
	MaxLoanAmount          float64  `json:"max_loan_amount"`
	MaxMonthlyPayment      float64  `json:"max_monthly_payment"`
	MaxPSM                 float64  `json:"max_psm"`
	DownPaymentRequired    float64  `json:"down_payment_required"`
	InterestRate           float64  `json:"interest_rate"`
	LoanTenureYears        int      `json:"loan_tenure_years"`
	MSRUsedPct             float64  `json:"msr_used_pct"`
	LTVUsedPct             float64  `json:"ltv_used_pct"`
	EligibleForHDBLoan     bool     `json:"eligible_for_hdb_loan"`
	IncomeCeiling          float64  `json:"income_ceiling"`
	MedianIncomeComparison *float64 `json:"median_income_comparison"`
}
