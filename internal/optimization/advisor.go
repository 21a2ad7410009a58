// Package optimization suggests reliefs the user has not claimed and estimates what each
// would save.
package optimization

import (
	"sabitax/internal/ledger"
	"sabitax/internal/taxcalc"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PotentialNote qualifies Report.PotentialSavings. Reliefs interact across brackets, so
// claiming several at once can save less than the sum.
const PotentialNote = "Each suggestion is estimated on its own against your current position; combined savings may be lower."

type Suggestion struct {
	Type             string          `json:"type"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	EstimatedSavings decimal.Decimal `json:"estimated_savings"`
}

type Report struct {
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	Suggestions      []Suggestion    `json:"suggestions"`
	Note             string          `json:"note"`
}

type Advisor struct {
	schedule *taxcalc.Schedule
}

func NewAdvisor(schedule *taxcalc.Schedule) *Advisor {
	return &Advisor{schedule: schedule}
}

// Suggest evaluates every configured deduction the ledger does not already record.
// Savings are annual and each one is measured against baseline alone.
func (a *Advisor) Suggest(agg ledger.Aggregate, baseline taxcalc.Result) Report {
	gross := baseline.GrossIncome
	recorded := a.schedule.RecognizedDeductions(agg)

	candidates := lo.Filter(a.schedule.Deductions, func(rule taxcalc.DeductionRule, _ int) bool {
		return rule.SuggestRate.IsPositive() && !rule.Recorded(agg)
	})

	report := Report{PotentialSavings: decimal.Zero, Suggestions: []Suggestion{}, Note: PotentialNote}
	for _, rule := range candidates {
		assumed := rule.Allowable(gross.Mul(rule.SuggestRate))
		with := a.schedule.Compute(gross, recorded.Add(assumed))
		savings := baseline.Liability.Sub(with.Liability)
		if !savings.IsPositive() {
			continue
		}

		report.Suggestions = append(report.Suggestions, Suggestion{
			Type:             rule.Type,
			Title:            rule.Title,
			Description:      rule.Description,
			EstimatedSavings: savings,
		})
		report.PotentialSavings = report.PotentialSavings.Add(savings)
	}
	return report
}
