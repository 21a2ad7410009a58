package taxcalc

import (
	"fmt"

	"sabitax/internal/ledger"

	"github.com/shopspring/decimal"
)

// DeductionRule recognizes a ledger expense category as a deduction on top of CRA.
// Rate is the share of the recorded (annualized) amount that counts; Cap limits it.
// SuggestRate is the assumed claim, as a share of gross income, used when the
// category is missing from the ledger; 0 means the category is never suggested.
type DeductionRule struct {
	Category    string
	Type        string
	Title       string
	Description string
	Rate        decimal.Decimal
	Cap         *decimal.Decimal
	SuggestRate decimal.Decimal
}

func (r DeductionRule) key() string { return ledger.NormalizeCategory(r.Category) }

func (r DeductionRule) validate() error {
	if r.key() == "" {
		return fmt.Errorf("category is required")
	}
	if r.Rate.IsNegative() || r.Rate.GreaterThan(one) {
		return fmt.Errorf("%s: rate %s must be in [0, 1]", r.Category, r.Rate)
	}
	if r.Cap != nil && r.Cap.IsNegative() {
		return fmt.Errorf("%s: cap must not be negative", r.Category)
	}
	if r.SuggestRate.IsNegative() || r.SuggestRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%s: suggest rate %s must be in [0, 1)", r.Category, r.SuggestRate)
	}
	return nil
}

// Allowable converts an annual amount spent in the category into the deductible amount.
func (r DeductionRule) Allowable(annual decimal.Decimal) decimal.Decimal {
	if !annual.IsPositive() {
		return decimal.Zero
	}
	allowed := annual.Mul(r.Rate)
	if r.Cap != nil && allowed.GreaterThan(*r.Cap) {
		allowed = *r.Cap
	}
	return allowed
}

// Recorded reports whether the aggregate holds spending in the rule's category.
func (r DeductionRule) Recorded(agg ledger.Aggregate) bool {
	return agg.Expense(r.Category).IsPositive()
}

// RecognizedDeductions sums the allowable annual deductions recorded in the aggregate.
func (s *Schedule) RecognizedDeductions(agg ledger.Aggregate) decimal.Decimal {
	total := decimal.Zero
	for _, rule := range s.Deductions {
		total = total.Add(rule.Allowable(agg.Annualize(agg.Expense(rule.Category))))
	}
	return total
}

// ComputeAggregate annualizes the aggregate's income and recognized deductions and computes.
func (s *Schedule) ComputeAggregate(agg ledger.Aggregate) Result {
	return s.Compute(agg.AnnualIncome(), s.RecognizedDeductions(agg))
}
