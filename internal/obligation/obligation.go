// Package obligation derives the standing tax obligations of a period from ledger totals
// and a computed PIT result.
package obligation

import (
	"fmt"
	"time"

	"sabitax/internal/ledger"
	"sabitax/internal/taxcalc"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Type identifies a tax obligation or filing kind.
type Type string

// Tax types
const (
	TypePIT  Type = "PIT"
	TypePAYE Type = "PAYE"
	TypeVAT  Type = "VAT"
	TypeCIT  Type = "CIT"
)

// Types lists every tax type accepted for filing.
var Types = []Type{TypePIT, TypePAYE, TypeVAT, TypeCIT}

// ParseType validates a tax type string.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, lo.Contains(Types, t)
}

// Status of an obligation
type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

var names = map[Type]string{
	TypePIT:  "Personal Income Tax",
	TypePAYE: "Pay As You Earn",
	TypeVAT:  "Value Added Tax",
	TypeCIT:  "Companies Income Tax",
}

// Name returns the display name of a tax type.
func (t Type) Name() string {
	if n, ok := names[t]; ok {
		return n
	}
	return string(t)
}

// Obligation is recomputed on every request and never stored.
type Obligation struct {
	Type    Type            `json:"type"`
	Name    string          `json:"name"`
	Period  string          `json:"period"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate *time.Time      `json:"due_date"`
	Status  Status          `json:"status"`
	Basis   string          `json:"basis"`
}

// Input is everything Resolve needs; it must not be read from ambient state.
type Input struct {
	Aggregate ledger.Aggregate
	PIT       taxcalc.Result
	AsOf      time.Time
	// Settled marks types with an accepted filing for the period's tax year.
	Settled map[Type]bool
}

// Resolver applies a jurisdiction table. It holds no mutable state.
type Resolver struct {
	table *taxcalc.Table
}

func NewResolver(table *taxcalc.Table) *Resolver {
	return &Resolver{table: table}
}

// Resolve returns the PIT and VAT obligations, in that order.
func (r *Resolver) Resolve(in Input) []Obligation {
	return []Obligation{r.pit(in), r.vat(in)}
}

func (r *Resolver) pit(in Input) Obligation {
	agg := in.Aggregate
	amount := agg.Deperiodize(in.PIT.Liability).Round(taxcalc.MoneyPlaces)
	due := r.table.PITDue.DueDate(agg.Period)

	basis := fmt.Sprintf("%s of %s annual PIT on %s annualized income (taxable %s after %s relief)",
		share(agg.Period), taxcalc.FormatNaira(in.PIT.Liability), taxcalc.FormatNaira(in.PIT.GrossIncome),
		taxcalc.FormatNaira(in.PIT.TaxableIncome), taxcalc.FormatNaira(in.PIT.TotalRelief()))

	return Obligation{
		Type:    TypePIT,
		Name:    TypePIT.Name(),
		Period:  agg.Period.String(),
		Amount:  amount,
		DueDate: dueOrNil(amount, due),
		Status:  status(amount, due, in.AsOf, in.Settled[TypePIT]),
		Basis:   basis,
	}
}

func (r *Resolver) vat(in Input) Obligation {
	agg := in.Aggregate
	rule := r.table.VAT
	business := rule.BusinessIncome(agg)
	annual := agg.Annualize(business)

	ob := Obligation{Type: TypeVAT, Name: TypeVAT.Name(), Period: agg.Period.String(), Amount: decimal.Zero, Status: StatusNone}
	if !business.IsPositive() {
		ob.Basis = "No business-classified income recorded"
		return ob
	}
	if !annual.GreaterThan(rule.Threshold) {
		ob.Basis = fmt.Sprintf("Annualized business turnover %s is within the %s VAT threshold",
			taxcalc.FormatNaira(annual), taxcalc.FormatNaira(rule.Threshold))
		return ob
	}

	ob.Amount = business.Mul(rule.Rate).Round(taxcalc.MoneyPlaces)
	due := rule.Due.DueDate(agg.Period)
	ob.DueDate = dueOrNil(ob.Amount, due)
	ob.Status = status(ob.Amount, due, in.AsOf, in.Settled[TypeVAT])
	ob.Basis = fmt.Sprintf("%s VAT on %s business turnover", taxcalc.FormatPercent(rule.Rate), taxcalc.FormatNaira(business))
	return ob
}

// TotalDue sums the obligations that are still owed.
func TotalDue(obligations []Obligation) decimal.Decimal {
	return lo.Reduce(Owed(obligations), func(acc decimal.Decimal, o Obligation, _ int) decimal.Decimal {
		return acc.Add(o.Amount)
	}, decimal.Zero)
}

// Owed keeps the obligations that are pending or overdue.
func Owed(obligations []Obligation) []Obligation {
	return lo.Filter(obligations, func(o Obligation, _ int) bool {
		return o.Status == StatusPending || o.Status == StatusOverdue
	})
}

// NextDueDate returns the earliest due date among owed obligations.
func NextDueDate(obligations []Obligation) *time.Time {
	var next *time.Time
	for _, o := range obligations {
		if o.DueDate == nil || (o.Status != StatusPending && o.Status != StatusOverdue) {
			continue
		}
		if next == nil || o.DueDate.Before(*next) {
			next = o.DueDate
		}
	}
	return next
}

func status(amount decimal.Decimal, due, asOf time.Time, settled bool) Status {
	switch {
	case !amount.IsPositive():
		return StatusNone
	case settled:
		return StatusPaid
	case day(asOf).After(due):
		return StatusOverdue
	default:
		return StatusPending
	}
}

func dueOrNil(amount decimal.Decimal, due time.Time) *time.Time {
	if !amount.IsPositive() {
		return nil
	}
	return &due
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func share(p ledger.Period) string {
	if p.IsYear() {
		return "Full year"
	}
	return "Monthly share"
}
