package ledger

import (
	"github.com/shopspring/decimal"
)

// Aggregate holds ledger totals for one period. It is derived on demand and never stored.
type Aggregate struct {
	Period            Period
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	IncomeByCategory  map[string]decimal.Decimal // keyed by NormalizeCategory
	ExpenseByCategory map[string]decimal.Decimal // keyed by NormalizeCategory
}

// Summarize folds entries into an Aggregate. Entries outside the period, of unknown type or
// with non-positive amounts are ignored.
func Summarize(period Period, entries []Entry) Aggregate {
	agg := Aggregate{
		Period:            period,
		TotalIncome:       decimal.Zero,
		TotalExpense:      decimal.Zero,
		IncomeByCategory:  map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
	}

	start, end := period.Start(), period.End()
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			continue
		}
		if !e.Date.IsZero() && (e.Date.Before(start) || !e.Date.Before(end)) {
			continue
		}

		key := NormalizeCategory(e.Category)
		switch e.Type {
		case TypeIncome:
			agg.TotalIncome = agg.TotalIncome.Add(e.Amount)
			agg.IncomeByCategory[key] = agg.IncomeByCategory[key].Add(e.Amount)
		case TypeExpense:
			agg.TotalExpense = agg.TotalExpense.Add(e.Amount)
			agg.ExpenseByCategory[key] = agg.ExpenseByCategory[key].Add(e.Amount)
		}
	}

	return agg
}

// Annualize scales a period amount to a full year.
func (a Aggregate) Annualize(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(a.Period.PeriodsPerYear()))
}

// Deperiodize converts an annual amount back to the period's share of it.
func (a Aggregate) Deperiodize(annual decimal.Decimal) decimal.Decimal {
	return annual.Div(decimal.NewFromInt(a.Period.PeriodsPerYear()))
}

// AnnualIncome is TotalIncome scaled to a year.
func (a Aggregate) AnnualIncome() decimal.Decimal {
	return a.Annualize(a.TotalIncome)
}

// Expense returns the period total recorded under category.
func (a Aggregate) Expense(category string) decimal.Decimal {
	return a.ExpenseByCategory[NormalizeCategory(category)]
}

// Income returns the period total recorded under category.
func (a Aggregate) Income(category string) decimal.Decimal {
	return a.IncomeByCategory[NormalizeCategory(category)]
}
