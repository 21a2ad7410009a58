package ledger

//go:generate mockgen -source=ledger.go -destination=ledger_mock.go -package=ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry types as recorded by the transaction collaborator
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Entry is a read-only view of one ledger transaction.
type Entry struct {
	Amount   decimal.Decimal
	Type     string // income or expense
	Category string
	Date     time.Time
}

// Reader is the read-only port onto a user's transactions.
type Reader interface {
	ListTransactions(ctx context.Context, userID uuid.UUID, period Period) ([]Entry, error)
}

// Period is a calendar month, or a whole year when Month is 0.
type Period struct {
	Year  int
	Month int
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// YearOf returns the whole calendar year containing t.
func YearOf(t time.Time) Period {
	return Period{Year: t.Year()}
}

func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("year must be between 2000 and 2100, got %d", p.Year)
	}
	if p.Month < 0 || p.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12 (or 0 for the whole year), got %d", p.Month)
	}
	return nil
}

func (p Period) IsYear() bool { return p.Month == 0 }

// Start is the first instant of the period (UTC).
func (p Period) Start() time.Time {
	if p.IsYear() {
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant after the period (exclusive bound).
func (p Period) End() time.Time {
	if p.IsYear() {
		return p.Start().AddDate(1, 0, 0)
	}
	return p.Start().AddDate(0, 1, 0)
}

// LastMonth is the calendar month the period closes on.
func (p Period) LastMonth() time.Month {
	if p.IsYear() {
		return time.December
	}
	return time.Month(p.Month)
}

// PeriodsPerYear is 12 for a month and 1 for a year.
func (p Period) PeriodsPerYear() int64 {
	if p.IsYear() {
		return 1
	}
	return 12
}

func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// NormalizeCategory folds a category label for matching ("Life Insurance" == "life insurance").
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.Join(strings.Fields(category), " "))
}
