// Package affordability estimates the maximum loan and property value a
// household can service under the current loan policy.
package affordability

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"homefinder/server/internal/models"
)

// PolicyStore supplies the rates, rules and reference income the solver
// composes with user input.
type PolicyStore interface {
	CurrentMortgageRate() (models.MortgageRates, error)
	CurrentLoanRules() (models.LoanRules, error)
	LatestHouseholdIncome() (*models.HouseholdIncome, error)
}

// Overrides are optional user-supplied substitutes for policy values,
// delivered as raw strings. Malformed values are ignored in favour of the
// policy defaults, never propagated as errors.
type Overrides struct {
	InterestRate   string // %/year
	TenureYears    string // integer > 0
	DownPaymentPct string // 0..100
}

// expenseWeight discounts declared monthly expenses when computing the
// serviceable payment, matching the published affordability guideline.
const expenseWeight = 0.30

// referenceFlatSizeSqm converts a property budget into a per-sqm budget.
const referenceFlatSizeSqm = 90.0

// minViablePrice is the minimum realistic resale price; budgets below it are
// reported as not affordable.
const minViablePrice = 300000.0

type Solver struct {
	policy PolicyStore
}

func NewSolver(policy PolicyStore) *Solver {
	return &Solver{policy: policy}
}

// Solve computes the affordability estimate for the given income and
// expenses. Negative inputs are coerced to zero. Policy lookups that fail
// surface as errors; the solver never invents policy values itself.
func (s *Solver) Solve(income, expenses float64, loanType models.LoanType, ov Overrides) (models.AffordabilityResult, error) {
	var result models.AffordabilityResult

	if income < 0 {
		income = 0
	}
	if expenses < 0 {
		expenses = 0
	}

	rules, err := s.policy.CurrentLoanRules()
	if err != nil {
		return result, fmt.Errorf("failed to load loan rules: %w", err)
	}

	rate, ok := parseRate(ov.InterestRate)
	if !ok {
		rates, err := s.policy.CurrentMortgageRate()
		if err != nil {
			return result, fmt.Errorf("failed to load mortgage rates: %w", err)
		}
		rate = rates.RateFor(loanType)
	}

	tenureYears := rules.MaxTenureYears
	if t, ok := parseTenure(ov.TenureYears); ok {
		tenureYears = t
	}

	maxMonthlyPayment := income*(rules.MSRPct/100) - expenses*expenseWeight

	monthlyRate := rate / 100 / 12
	numPayments := tenureYears * 12

	var maxLoan float64
	if monthlyRate > 0 {
		maxLoan = maxMonthlyPayment * ((1 - math.Pow(1+monthlyRate, -float64(numPayments))) / monthlyRate)
	} else {
		// Zero-rate loans amortise linearly.
		maxLoan = maxMonthlyPayment * float64(numPayments)
	}

	ruleLTV := rules.MaxLTVPct / 100
	ltv := ruleLTV
	if dp, ok := parseDownPayment(ov.DownPaymentPct); ok {
		// A user-chosen down payment implies an LTV; clamp to the policy
		// maximum so the estimate never exceeds permitted leverage.
		ltv = 1 - dp/100
		if ltv > ruleLTV {
			ltv = ruleLTV
		}
	}
	if ltv <= 0 || ltv > 1 {
		ltv = ruleLTV
	}

	var maxPropertyValue float64
	if ltv > 0 {
		maxPropertyValue = maxLoan / ltv
	}

	var maxPSM float64
	if maxPropertyValue > 0 {
		maxPSM = maxPropertyValue / referenceFlatSizeSqm
	}

	result = models.AffordabilityResult{
		Affordable:          maxPropertyValue >= minViablePrice,
		MaxPropertyValue:    round2(maxPropertyValue),
		MaxLoanAmount:       round2(maxLoan),
		MaxMonthlyPayment:   round2(maxMonthlyPayment),
		MaxPSM:              round2(maxPSM),
		DownPaymentRequired: round2(maxPropertyValue * (1 - ltv)),
		InterestRate:        rate,
		LoanTenureYears:     tenureYears,
		MSRUsedPct:          rules.MSRPct,
		LTVUsedPct:          rules.MaxLTVPct,
		EligibleForHDBLoan:  income <= rules.IncomeCeiling,
		IncomeCeiling:       rules.IncomeCeiling,
	}

	incomeData, err := s.policy.LatestHouseholdIncome()
	if err != nil {
		return result, fmt.Errorf("failed to load reference income: %w", err)
	}
	if incomeData != nil && incomeData.ResidentMedian != nil && *incomeData.ResidentMedian != 0 {
		cmp := round1(income / *incomeData.ResidentMedian * 100)
		result.MedianIncomeComparison = &cmp
	}

	return result, nil
}

func parseRate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func parseTenure(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseDownPayment(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
