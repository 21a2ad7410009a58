package obligation

import (
	"encoding/json"
	"testing"
	"time"

	"sabitax/internal/ledger"
	"sabitax/internal/taxcalc"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newResolver(t *testing.T) (*Resolver, *taxcalc.Table) {
	t.Helper()
	table, err := taxcalc.LoadDefaultTable()
	require.NoError(t, err)
	return NewResolver(table), table
}

func input(t *testing.T, table *taxcalc.Table, asOf time.Time, entries ...ledger.Entry) Input {
	t.Helper()
	agg := ledger.Summarize(ledger.Period{Year: 2026, Month: 3}, entries)
	return Input{
		Aggregate: agg,
		PIT:       table.Schedule.ComputeAggregate(agg),
		AsOf:      asOf,
	}
}

var march = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func salary(amount string) ledger.Entry {
	return ledger.Entry{Amount: d(amount), Type: ledger.TypeIncome, Category: "salary", Date: march}
}

func sales(amount string) ledger.Entry {
	return ledger.Entry{Amount: d(amount), Type: ledger.TypeIncome, Category: "Sales", Date: march}
}

func TestResolveOrderAndPITAmount(t *testing.T) {
	r, table := newResolver(t)
	in := input(t, table, march, salary("850000"))

	got := r.Resolve(in)
	require.Len(t, got, 2)
	assert.Equal(t, TypePIT, got[0].Type)
	assert.Equal(t, TypeVAT, got[1].Type)

	// 1,702,400 a year with CRA only
	assert.True(t, got[0].Amount.Equal(d("141866.67")), "pit = %s", got[0].Amount)
	assert.Equal(t, StatusPending, got[0].Status)
	require.NotNil(t, got[0].DueDate)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), *got[0].DueDate)
	assert.Contains(t, got[0].Basis, "₦1,702,400.00")
}

func TestResolveVATNoneWithoutBusinessIncome(t *testing.T) {
	r, table := newResolver(t)
	got := r.Resolve(input(t, table, march, salary("850000")))

	vat := got[1]
	assert.True(t, vat.Amount.IsZero())
	assert.Nil(t, vat.DueDate)
	assert.Equal(t, StatusNone, vat.Status)
	assert.Equal(t, "2026-03", vat.Period)
	assert.NotEmpty(t, vat.Basis)
}

func TestResolveVATBelowThreshold(t *testing.T) {
	r, table := newResolver(t)
	// 2,000,000 a month annualizes to 24,000,000, under the 25,000,000 threshold
	got := r.Resolve(input(t, table, march, sales("2000000")))

	assert.Equal(t, StatusNone, got[1].Status)
	assert.Nil(t, got[1].DueDate)
	assert.Contains(t, got[1].Basis, "threshold")
}

func TestResolveVATAboveThreshold(t *testing.T) {
	r, table := newResolver(t)
	got := r.Resolve(input(t, table, march, sales("3000000")))

	vat := got[1]
	assert.True(t, vat.Amount.Equal(d("225000")), "vat = %s", vat.Amount)
	assert.Equal(t, StatusPending, vat.Status)
	require.NotNil(t, vat.DueDate)
	assert.Equal(t, time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC), *vat.DueDate)
}

func TestResolveStatuses(t *testing.T) {
	r, table := newResolver(t)

	tests := []struct {
		name    string
		asOf    time.Time
		settled map[Type]bool
		want    Status
	}{
		{"before due", time.Date(2026, 3, 30, 23, 0, 0, 0, time.UTC), nil, StatusPending},
		{"on due date", time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC), nil, StatusPending},
		{"after due", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), nil, StatusOverdue},
		{"accepted filing", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), map[Type]bool{TypePIT: true}, StatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(t, table, tt.asOf, salary("850000"))
			in.Settled = tt.settled
			assert.Equal(t, tt.want, r.Resolve(in)[0].Status)
		})
	}
}

func TestResolveZeroIncome(t *testing.T) {
	r, table := newResolver(t)
	got := r.Resolve(input(t, table, march))

	assert.True(t, got[0].Amount.IsZero())
	assert.Equal(t, StatusNone, got[0].Status)
	assert.Nil(t, got[0].DueDate)
	assert.True(t, TotalDue(got).IsZero())
	assert.Nil(t, NextDueDate(got))
}

func TestResolveIsIdempotent(t *testing.T) {
	r, table := newResolver(t)
	in := input(t, table, march, salary("850000"), sales("3000000"))

	first, err := json.Marshal(r.Resolve(in))
	require.NoError(t, err)
	second, err := json.Marshal(r.Resolve(in))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestTotalDueAndNextDueDate(t *testing.T) {
	early := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC)
	obs := []Obligation{
		{Type: TypePIT, Amount: d("100"), DueDate: &late, Status: StatusOverdue},
		{Type: TypeVAT, Amount: d("50"), DueDate: &early, Status: StatusPending},
		{Type: TypeCIT, Amount: d("999"), DueDate: &early, Status: StatusPaid},
	}

	assert.True(t, TotalDue(obs).Equal(d("150")))
	owed := Owed(obs)
	require.Len(t, owed, 2)
	assert.Equal(t, []Type{TypePIT, TypeVAT}, []Type{owed[0].Type, owed[1].Type})
	require.NotNil(t, NextDueDate(obs))
	assert.Equal(t, early, *NextDueDate(obs))
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("PAYE")
	assert.True(t, ok)
	assert.Equal(t, TypePAYE, typ)

	_, ok = ParseType("pit")
	assert.False(t, ok)
}
