package taxcalc

import (
	"testing"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func defaultSchedule(t *testing.T) *Schedule {
	t.Helper()
	table, err := LoadDefaultTable()
	require.NoError(t, err)
	return table.Schedule
}

// flatSchedule has the PITA brackets but no relief, so gross == taxable.
func flatSchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule("test", defaultSchedule(t).Brackets, Relief{}, nil)
	require.NoError(t, err)
	return s
}

func TestComputePinnedValues(t *testing.T) {
	s := defaultSchedule(t)

	tests := []struct {
		name      string
		gross     string
		wantCRA   string
		wantTax   string
		wantTaxed string
	}{
		{"zero income", "0", "0", "0", "0"},
		{"below floor", "150000", "150000", "0", "0"},
		{"300k", "300000", "260000", "2800", "40000"},
		{"600k", "600000", "320000", "19600", "280000"},
		{"2m", "2000000", "600000", "186000", "1400000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Compute(d(tt.gross), decimal.Zero)
			assert.True(t, res.Relief.Equal(d(tt.wantCRA)), "cra = %s, want %s", res.Relief, tt.wantCRA)
			assert.True(t, res.TaxableIncome.Equal(d(tt.wantTaxed)), "taxable = %s, want %s", res.TaxableIncome, tt.wantTaxed)
			assert.True(t, res.Liability.Equal(d(tt.wantTax)), "liability = %s, want %s", res.Liability, tt.wantTax)
		})
	}
}

func TestComputeZeroIncomeHasZeroRate(t *testing.T) {
	res := defaultSchedule(t).Compute(decimal.Zero, decimal.Zero)
	assert.True(t, res.EffectiveRate.IsZero())
	assert.True(t, res.GrossRate().IsZero())
	assert.Empty(t, res.Bands)
}

func TestComputeNegativeInputsClamped(t *testing.T) {
	res := defaultSchedule(t).Compute(d("-5000"), d("-1"))
	assert.True(t, res.GrossIncome.IsZero())
	assert.True(t, res.Deductions.IsZero())
	assert.True(t, res.Liability.IsZero())
}

func TestComputeReliefNeverExceedsGross(t *testing.T) {
	res := defaultSchedule(t).Compute(d("1000000"), d("5000000"))
	assert.True(t, res.TotalRelief().Equal(d("1000000")), "relief = %s", res.TotalRelief())
	assert.True(t, res.TaxableIncome.IsZero())
	assert.True(t, res.Liability.IsZero())
}

// 850,000 a month of salary with statutory deductions recorded in the ledger.
func scenarioAggregate() ledger.Aggregate {
	at := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)
	return ledger.Summarize(ledger.Period{Year: 2026, Month: 3}, []ledger.Entry{
		{Amount: d("850000"), Type: ledger.TypeIncome, Category: "Salary", Date: at},
		{Amount: d("68000"), Type: ledger.TypeExpense, Category: "Pension", Date: at},
		{Amount: d("21250"), Type: ledger.TypeExpense, Category: "NHF", Date: at},
		{Amount: d("55750"), Type: ledger.TypeExpense, Category: "Life Insurance", Date: at},
		{Amount: d("250000"), Type: ledger.TypeExpense, Category: "Rent", Date: at},
	})
}

func TestComputeAggregateMonthlyScenario(t *testing.T) {
	s := defaultSchedule(t)
	agg := scenarioAggregate()

	// rent: 3,000,000 a year at 20% is capped at 500,000
	assert.True(t, s.RecognizedDeductions(agg).Equal(d("2240000")))

	res := s.ComputeAggregate(agg)
	assert.True(t, res.GrossIncome.Equal(d("10200000")))
	assert.True(t, res.Relief.Equal(d("2240000")), "cra = %s", res.Relief)
	assert.True(t, res.TaxableIncome.Equal(d("5720000")), "taxable = %s", res.TaxableIncome)
	assert.True(t, res.Liability.Equal(d("1164800")), "liability = %s", res.Liability)
	assert.True(t, res.EffectiveRate.Equal(d("0.2036")), "effective = %s", res.EffectiveRate)
	assert.True(t, res.GrossRate().Equal(d("0.1142")), "gross rate = %s", res.GrossRate())

	monthly := agg.Deperiodize(res.Liability).Round(MoneyPlaces)
	assert.True(t, monthly.Equal(d("97066.67")), "monthly = %s", monthly)
}

func TestComputeCRAOnlyAtScenarioIncome(t *testing.T) {
	res := defaultSchedule(t).Compute(d("10200000"), decimal.Zero)
	assert.True(t, res.Liability.Equal(d("1702400")), "liability = %s", res.Liability)
}

func TestComputeMonotonicAndBelowIncome(t *testing.T) {
	s := defaultSchedule(t)
	prev := decimal.Zero
	step := d("25000")
	for income := decimal.Zero; income.LessThanOrEqual(d("20000000")); income = income.Add(step) {
		res := s.Compute(income, decimal.Zero)
		require.True(t, res.Liability.GreaterThanOrEqual(prev), "liability fell at %s: %s < %s", income, res.Liability, prev)
		require.True(t, res.Liability.LessThanOrEqual(income), "liability %s exceeds income %s", res.Liability, income)
		prev = res.Liability
	}
}

func TestComputeBracketSeam(t *testing.T) {
	s := flatSchedule(t)

	tests := []struct {
		bound string
		want  string
		bands int
	}{
		{"300000", "21000", 1},
		{"600000", "54000", 2},
		{"1100000", "129000", 3},
		{"1600000", "224000", 4},
		{"3200000", "560000", 5},
	}
	for _, tt := range tests {
		t.Run(tt.bound, func(t *testing.T) {
			at := s.Compute(d(tt.bound), decimal.Zero)
			assert.True(t, at.Liability.Equal(d(tt.want)), "liability = %s, want %s", at.Liability, tt.want)
			assert.Len(t, at.Bands, tt.bands)

			below := s.Compute(d(tt.bound).Sub(d("0.01")), decimal.Zero)
			above := s.Compute(d(tt.bound).Add(d("100")), decimal.Zero)
			assert.True(t, below.Liability.LessThanOrEqual(at.Liability))
			assert.True(t, above.Liability.GreaterThan(at.Liability))
			assert.Len(t, above.Bands, tt.bands+1)
		})
	}
}

func TestNewScheduleRejectsMalformedBrackets(t *testing.T) {
	unbounded := func(lower, rate string) Bracket {
		return Bracket{Lower: d(lower), Unbounded: true, Rate: d(rate)}
	}
	bounded := func(lower, upper, rate string) Bracket {
		return Bracket{Lower: d(lower), Upper: d(upper), Rate: d(rate)}
	}

	tests := []struct {
		name     string
		brackets []Bracket
	}{
		{"empty", nil},
		{"first not at zero", []Bracket{bounded("1", "10", "0.1"), unbounded("10", "0.2")}},
		{"last bounded", []Bracket{bounded("0", "10", "0.1"), bounded("10", "20", "0.2")}},
		{"unbounded in middle", []Bracket{unbounded("0", "0.1"), unbounded("10", "0.2")}},
		{"gap", []Bracket{bounded("0", "10", "0.1"), unbounded("11", "0.2")}},
		{"non increasing bound", []Bracket{bounded("0", "10", "0.1"), bounded("10", "10", "0.2"), unbounded("10", "0.2")}},
		{"decreasing rate", []Bracket{bounded("0", "10", "0.2"), unbounded("10", "0.1")}},
		{"rate of one", []Bracket{bounded("0", "10", "0.1"), unbounded("10", "1")}},
		{"negative rate", []Bracket{unbounded("0", "-0.1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule("bad", tt.brackets, Relief{}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestNewScheduleRejectsBadReliefAndDeductions(t *testing.T) {
	brackets := []Bracket{{Lower: decimal.Zero, Unbounded: true, Rate: d("0.1")}}

	_, err := NewSchedule("bad", brackets, Relief{FixedFloor: d("-1")}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NewSchedule("bad", brackets, Relief{GrossRate: d("1.5")}, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	dup := []DeductionRule{
		{Category: "Rent", Rate: d("0.2")},
		{Category: " rent", Rate: d("0.2")},
	}
	_, err = NewSchedule("bad", brackets, Relief{}, dup)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NewSchedule("bad", brackets, Relief{}, []DeductionRule{{Category: "", Rate: d("1")}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestNewScheduleCopiesInput(t *testing.T) {
	brackets := []Bracket{{Lower: decimal.Zero, Unbounded: true, Rate: d("0.1")}}
	s, err := NewSchedule("copy", brackets, Relief{}, nil)
	require.NoError(t, err)

	brackets[0].Rate = d("0.9")
	assert.True(t, s.Brackets[0].Rate.Equal(d("0.1")))
}

func TestDeductionRuleAllowable(t *testing.T) {
	limit := d("500000")
	rent := DeductionRule{Category: "rent", Rate: d("0.2"), Cap: &limit}

	assert.True(t, rent.Allowable(d("1000000")).Equal(d("200000")))
	assert.True(t, rent.Allowable(d("3000000")).Equal(d("500000")))
	assert.True(t, rent.Allowable(d("-1")).IsZero())
}
