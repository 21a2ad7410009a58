package taxcalc

import (
	"fmt"

	"sabitax/internal/apperr"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every monetary result (kobo).
const MoneyPlaces = 2

// RatePlaces is the scale of effective rates expressed as fractions.
const RatePlaces = 4

var one = decimal.NewFromInt(1)

// Bracket is one marginal band: income in [Lower, Upper) is taxed at Rate.
// The last bracket of a schedule is Unbounded and ignores Upper.
type Bracket struct {
	Lower     decimal.Decimal
	Upper     decimal.Decimal
	Unbounded bool
	Rate      decimal.Decimal
}

// Relief is the Consolidated Relief Allowance rule:
// max(FixedFloor, FloorRate*gross) + GrossRate*gross, limited by Cap when set.
type Relief struct {
	FixedFloor decimal.Decimal
	FloorRate  decimal.Decimal
	GrossRate  decimal.Decimal
	Cap        *decimal.Decimal
}

// Amount returns the unclamped relief for a gross income.
func (r Relief) Amount(gross decimal.Decimal) decimal.Decimal {
	floor := decimal.Max(r.FixedFloor, gross.Mul(r.FloorRate))
	amount := floor.Add(gross.Mul(r.GrossRate))
	if r.Cap != nil && amount.GreaterThan(*r.Cap) {
		amount = *r.Cap
	}
	return amount
}

// Schedule is a validated, immutable progressive tax table. Build it with NewSchedule;
// the zero value is not usable.
type Schedule struct {
	Version    string
	Brackets   []Bracket
	Relief     Relief
	Deductions []DeductionRule
}

// NewSchedule validates the bracket table, relief and deduction rules once.
func NewSchedule(version string, brackets []Bracket, relief Relief, deductions []DeductionRule) (*Schedule, error) {
	if err := validateBrackets(brackets); err != nil {
		return nil, apperr.Validation("tax table %s: %v", version, err)
	}
	if err := validateRelief(relief); err != nil {
		return nil, apperr.Validation("tax table %s: %v", version, err)
	}
	seen := map[string]bool{}
	for i, rule := range deductions {
		if err := rule.validate(); err != nil {
			return nil, apperr.Validation("tax table %s: deduction %d: %v", version, i, err)
		}
		if seen[rule.key()] {
			return nil, apperr.Validation("tax table %s: duplicate deduction category %q", version, rule.Category)
		}
		seen[rule.key()] = true
	}

	return &Schedule{
		Version:    version,
		Brackets:   append([]Bracket(nil), brackets...),
		Relief:     relief,
		Deductions: append([]DeductionRule(nil), deductions...),
	}, nil
}

func validateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("at least one bracket is required")
	}
	if !brackets[0].Lower.IsZero() {
		return fmt.Errorf("first bracket must start at 0, got %s", brackets[0].Lower)
	}

	for i, b := range brackets {
		last := i == len(brackets)-1
		if b.Unbounded != last {
			return fmt.Errorf("only the last bracket may be unbounded (bracket %d)", i)
		}
		if !last && !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("bracket %d: upper bound %s must exceed lower bound %s", i, b.Upper, b.Lower)
		}
		if b.Rate.IsNegative() || b.Rate.GreaterThanOrEqual(one) {
			return fmt.Errorf("bracket %d: rate %s must be in [0, 1)", i, b.Rate)
		}
		if i > 0 {
			prev := brackets[i-1]
			if !b.Lower.Equal(prev.Upper) {
				return fmt.Errorf("bracket %d: lower bound %s leaves a gap after %s", i, b.Lower, prev.Upper)
			}
			if b.Rate.LessThan(prev.Rate) {
				return fmt.Errorf("bracket %d: rate %s is lower than previous rate %s", i, b.Rate, prev.Rate)
			}
		}
	}
	return nil
}

func validateRelief(r Relief) error {
	if r.FixedFloor.IsNegative() {
		return fmt.Errorf("relief fixed floor must not be negative")
	}
	if r.FloorRate.IsNegative() || r.FloorRate.GreaterThan(one) {
		return fmt.Errorf("relief floor rate %s must be in [0, 1]", r.FloorRate)
	}
	if r.GrossRate.IsNegative() || r.GrossRate.GreaterThan(one) {
		return fmt.Errorf("relief gross rate %s must be in [0, 1]", r.GrossRate)
	}
	if r.Cap != nil && r.Cap.IsNegative() {
		return fmt.Errorf("relief cap must not be negative")
	}
	return nil
}

// BandTax is the share of liability raised in one bracket.
type BandTax struct {
	Lower     decimal.Decimal  `json:"lower"`
	Upper     *decimal.Decimal `json:"upper"`
	Rate      decimal.Decimal  `json:"rate"`
	Taxed     decimal.Decimal  `json:"taxed"`
	Liability decimal.Decimal  `json:"liability"`
}

// Result is the outcome of one computation. All amounts are annual.
type Result struct {
	GrossIncome   decimal.Decimal
	Relief        decimal.Decimal // CRA after clamping to gross
	Deductions    decimal.Decimal // recognized deductions after clamping
	TaxableIncome decimal.Decimal
	Liability     decimal.Decimal
	EffectiveRate decimal.Decimal // Liability / TaxableIncome
	Bands         []BandTax
}

// TotalRelief is CRA plus recognized deductions.
func (r Result) TotalRelief() decimal.Decimal {
	return r.Relief.Add(r.Deductions)
}

// GrossRate is Liability / GrossIncome, 0 for zero income.
func (r Result) GrossRate() decimal.Decimal {
	if !r.GrossIncome.IsPositive() {
		return decimal.Zero
	}
	return r.Liability.DivRound(r.GrossIncome, RatePlaces)
}

// Compute applies relief and deductions to an annual gross income and walks the brackets.
// Negative inputs are treated as zero. Compute is pure and safe for concurrent use.
func (s *Schedule) Compute(gross, deductions decimal.Decimal) Result {
	gross = decimal.Max(gross, decimal.Zero)
	deductions = decimal.Max(deductions, decimal.Zero)

	cra := decimal.Min(s.Relief.Amount(gross), gross)
	deductions = decimal.Min(deductions, gross.Sub(cra))
	taxable := gross.Sub(cra).Sub(deductions)

	res := Result{
		GrossIncome:   gross,
		Relief:        cra,
		Deductions:    deductions,
		TaxableIncome: taxable,
		Liability:     decimal.Zero,
		EffectiveRate: decimal.Zero,
	}

	liability := decimal.Zero
	for _, b := range s.Brackets {
		if !taxable.GreaterThan(b.Lower) {
			break
		}
		top := taxable
		if !b.Unbounded {
			top = decimal.Min(taxable, b.Upper)
		}
		taxed := top.Sub(b.Lower)
		tax := taxed.Mul(b.Rate)
		liability = liability.Add(tax)

		band := BandTax{Lower: b.Lower, Rate: b.Rate, Taxed: taxed, Liability: tax.Round(MoneyPlaces)}
		if !b.Unbounded {
			upper := b.Upper
			band.Upper = &upper
		}
		res.Bands = append(res.Bands, band)
	}

	res.Liability = liability.Round(MoneyPlaces)
	if taxable.IsPositive() {
		res.EffectiveRate = res.Liability.DivRound(taxable, RatePlaces)
	}
	return res
}
