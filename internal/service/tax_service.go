package service

import (
	"context"
	"fmt"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/ledger"
	"sabitax/internal/obligation"
	"sabitax/internal/optimization"
	"sabitax/internal/repository"
	"sabitax/internal/taxcalc"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// ObligationsResponse lists the as_of month's obligations and, under Outstanding,
// whatever is still owed from the CarryOverMonths before it (oldest first).
type ObligationsResponse struct {
	Period      string                  `json:"period"`
	AsOf        string                  `json:"as_of"`
	Obligations []obligation.Obligation `json:"obligations"`
	Outstanding []obligation.Obligation `json:"outstanding"`
	TotalDue    decimal.Decimal         `json:"total_due"`
}

// CarryOverMonths is how far back GetObligations looks for unsettled obligations.
const CarryOverMonths = 12

type EstimateResponse struct {
	Period           string            `json:"period"`
	TotalIncome      decimal.Decimal   `json:"total_income"`
	AnnualizedIncome decimal.Decimal   `json:"annualized_income"`
	CRA              decimal.Decimal   `json:"cra"`
	Deductions       decimal.Decimal   `json:"deductions"`
	TaxableIncome    decimal.Decimal   `json:"taxable_income"`
	AnnualTax        decimal.Decimal   `json:"annual_tax"`
	EstimatedTax     decimal.Decimal   `json:"estimated_tax"`  // share of AnnualTax for the period
	TaxRate          decimal.Decimal   `json:"tax_rate"`       // percent of gross income
	EffectiveRate    decimal.Decimal   `json:"effective_rate"` // fraction of taxable income
	PotentialSavings decimal.Decimal   `json:"potential_savings"`
	NextDueDate      *string           `json:"next_due_date"`
	TableVersion     string            `json:"table_version"`
	Bands            []taxcalc.BandTax `json:"bands"`
}

// --- Interface ---

type TaxService interface {
	GetObligations(ctx context.Context, userID uuid.UUID, asOf time.Time) (ObligationsResponse, error)
	GetEstimate(ctx context.Context, userID uuid.UUID, period ledger.Period) (EstimateResponse, error)
	GetOptimization(ctx context.Context, userID uuid.UUID, period ledger.Period) (optimization.Report, error)
}

type taxService struct {
	reader   ledger.Reader
	filings  repository.FilingRepository
	table    *taxcalc.Table
	resolver *obligation.Resolver
	advisor  *optimization.Advisor
	now      func() time.Time
}

func NewTaxService(reader ledger.Reader, filings repository.FilingRepository, table *taxcalc.Table) TaxService {
	return &taxService{
		reader:   reader,
		filings:  filings,
		table:    table,
		resolver: obligation.NewResolver(table),
		advisor:  optimization.NewAdvisor(table.Schedule),
		now:      time.Now,
	}
}

// --- Implementation ---

func (s *taxService) GetObligations(ctx context.Context, userID uuid.UUID, asOf time.Time) (ObligationsResponse, error) {
	period := ledger.MonthOf(asOf.UTC())
	agg, result, err := s.assess(ctx, userID, period)
	if err != nil {
		return ObligationsResponse{}, err
	}

	obligations, err := s.resolve(ctx, userID, agg, result, asOf)
	if err != nil {
		return ObligationsResponse{}, err
	}
	outstanding, err := s.carryOver(ctx, userID, period, asOf)
	if err != nil {
		return ObligationsResponse{}, err
	}

	return ObligationsResponse{
		Period:      period.String(),
		AsOf:        asOf.UTC().Format(time.DateOnly),
		Obligations: obligations,
		Outstanding: outstanding,
		TotalDue:    obligation.TotalDue(obligations).Add(obligation.TotalDue(outstanding)),
	}, nil
}

func (s *taxService) GetEstimate(ctx context.Context, userID uuid.UUID, period ledger.Period) (EstimateResponse, error) {
	agg, result, err := s.assess(ctx, userID, period)
	if err != nil {
		return EstimateResponse{}, err
	}

	obligations, err := s.resolve(ctx, userID, agg, result, s.now())
	if err != nil {
		return EstimateResponse{}, err
	}
	report := s.advisor.Suggest(agg, result)

	var nextDue *string
	if due := obligation.NextDueDate(obligations); due != nil {
		nextDue = lo.ToPtr(due.Format(time.DateOnly))
	}

	return EstimateResponse{
		Period:           period.String(),
		TotalIncome:      agg.TotalIncome,
		AnnualizedIncome: result.GrossIncome,
		CRA:              result.Relief,
		Deductions:       result.Deductions,
		TaxableIncome:    result.TaxableIncome,
		AnnualTax:        result.Liability,
		EstimatedTax:     agg.Deperiodize(result.Liability).Round(taxcalc.MoneyPlaces),
		TaxRate:          result.GrossRate().Mul(decimal.NewFromInt(100)).Round(2),
		EffectiveRate:    result.EffectiveRate,
		PotentialSavings: report.PotentialSavings,
		NextDueDate:      nextDue,
		TableVersion:     s.table.Schedule.Version,
		Bands:            lo.Ternary(result.Bands == nil, []taxcalc.BandTax{}, result.Bands),
	}, nil
}

func (s *taxService) GetOptimization(ctx context.Context, userID uuid.UUID, period ledger.Period) (optimization.Report, error) {
	agg, result, err := s.assess(ctx, userID, period)
	if err != nil {
		return optimization.Report{}, err
	}
	return s.advisor.Suggest(agg, result), nil
}

// --- Helpers ---

func (s *taxService) assess(ctx context.Context, userID uuid.UUID, period ledger.Period) (ledger.Aggregate, taxcalc.Result, error) {
	if err := period.Validate(); err != nil {
		return ledger.Aggregate{}, taxcalc.Result{}, apperr.Validation("invalid period: %v", err)
	}

	entries, err := s.reader.ListTransactions(ctx, userID, period)
	if err != nil {
		return ledger.Aggregate{}, taxcalc.Result{}, fmt.Errorf("failed to read ledger: %w", err)
	}

	agg := ledger.Summarize(period, entries)
	return agg, s.table.Schedule.ComputeAggregate(agg), nil
}

func (s *taxService) resolve(ctx context.Context, userID uuid.UUID, agg ledger.Aggregate, result taxcalc.Result, asOf time.Time) ([]obligation.Obligation, error) {
	settled, err := s.settled(ctx, userID, agg.Period.Year)
	if err != nil {
		return nil, err
	}

	return s.resolver.Resolve(obligation.Input{
		Aggregate: agg,
		PIT:       result,
		AsOf:      asOf,
		Settled:   settled,
	}), nil
}

func (s *taxService) settled(ctx context.Context, userID uuid.UUID, year int) (map[obligation.Type]bool, error) {
	accepted, err := s.filings.AcceptedTypes(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load accepted filings: %w", err)
	}

	settled := make(map[obligation.Type]bool, len(accepted))
	for _, t := range accepted {
		settled[obligation.Type(t)] = true
	}
	return settled, nil
}

// carryOver resolves each month in the CarryOverMonths before current and keeps what is
// still owed. The ledger and accepted filings are read once per calendar year.
func (s *taxService) carryOver(ctx context.Context, userID uuid.UUID, current ledger.Period, asOf time.Time) ([]obligation.Obligation, error) {
	end := current.Start()
	start := end.AddDate(0, -CarryOverMonths, 0)

	entries := map[int][]ledger.Entry{}
	settled := map[int]map[obligation.Type]bool{}
	for year := start.Year(); year <= end.AddDate(0, -1, 0).Year(); year++ {
		rows, err := s.reader.ListTransactions(ctx, userID, ledger.Period{Year: year})
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		entries[year] = rows

		if settled[year], err = s.settled(ctx, userID, year); err != nil {
			return nil, err
		}
	}

	outstanding := []obligation.Obligation{}
	for at := start; at.Before(end); at = at.AddDate(0, 1, 0) {
		month := ledger.MonthOf(at)
		agg := ledger.Summarize(month, entries[month.Year])
		if !agg.TotalIncome.IsPositive() {
			continue
		}
		resolved := s.resolver.Resolve(obligation.Input{
			Aggregate: agg,
			PIT:       s.table.Schedule.ComputeAggregate(agg),
			AsOf:      asOf,
			Settled:   settled[month.Year],
		})
		outstanding = append(outstanding, obligation.Owed(resolved)...)
	}
	return outstanding, nil
}
