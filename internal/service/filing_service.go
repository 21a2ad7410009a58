package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/ledger"
	"sabitax/internal/lifecycle"
	"sabitax/internal/model"
	"sabitax/internal/obligation"
	"sabitax/internal/repository"
	"sabitax/internal/taxcalc"
	"sabitax/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

// DeclarationRequest declares a return. Omitted figures default to the ledger for the tax year.
type DeclarationRequest struct {
	TaxType            string           `json:"tax_type" binding:"required,oneof=PIT PAYE VAT CIT"`
	Year               int              `json:"year" binding:"required"`
	DeclaredIncome     *decimal.Decimal `json:"declared_income"`
	DeclaredDeductions *decimal.Decimal `json:"declared_deductions"`
	Notes              string           `json:"notes" binding:"max=1000"`
}

// FilingAcknowledgment is the tax authority's callback for a submitted return.
type FilingAcknowledgment struct {
	ReferenceNumber   string `json:"reference_number" binding:"required"`
	Status            string `json:"status" binding:"required"`
	ExternalReference string `json:"external_reference"`
	Reason            string `json:"reason"`
}

type FilingQuery struct {
	TaxType string
	Year    int
	Status  string
	Limit   int
	Offset  int
}

type FilingResponse struct {
	FilingID           string          `json:"filing_id"`
	TaxType            string          `json:"tax_type"`
	TaxYear            int             `json:"tax_year"`
	DeclaredIncome     decimal.Decimal `json:"declared_income"`
	DeclaredDeductions decimal.Decimal `json:"declared_deductions"`
	Amount             decimal.Decimal `json:"amount"`
	Status             string          `json:"status"`
	ReferenceNumber    *string         `json:"reference_number"`
	ExternalReference  *string         `json:"external_reference"`
	RejectionReason    string          `json:"rejection_reason,omitempty"`
	CreatedAt          string          `json:"created_at"`
	FiledAt            *string         `json:"filed_at"`
	ProcessedAt        *string         `json:"processed_at"`
}

// --- Interface ---

type FilingService interface {
	CreateDraft(ctx context.Context, userID uuid.UUID, req DeclarationRequest) (FilingResponse, error)
	Submit(ctx context.Context, userID, filingID uuid.UUID) (FilingResponse, error)
	// FileReturn creates and submits in one step.
	FileReturn(ctx context.Context, userID uuid.UUID, req DeclarationRequest) (FilingResponse, error)
	Acknowledge(ctx context.Context, ack FilingAcknowledgment) (FilingResponse, error)
	List(ctx context.Context, userID uuid.UUID, query FilingQuery) ([]FilingResponse, int64, error)
	Get(ctx context.Context, userID, filingID uuid.UUID) (FilingResponse, error)
}

// NewFilingMachine returns the filing lifecycle: draft -> submitted -> accepted | rejected.
func NewFilingMachine() *lifecycle.Machine[model.FilingStatus] {
	return lifecycle.New("filing", model.FilingDraft, map[model.FilingStatus][]model.FilingStatus{
		model.FilingDraft:     {model.FilingSubmitted},
		model.FilingSubmitted: {model.FilingAccepted, model.FilingRejected},
	})
}

type filingService struct {
	txm     repository.TransactionManager
	filings repository.FilingRepository
	audit   repository.AuditRepository
	reader  ledger.Reader
	table   *taxcalc.Table
	events  EventPublisher
	machine *lifecycle.Machine[model.FilingStatus]
	logger  zerolog.Logger
	now     func() time.Time
}

func NewFilingService(
	txm repository.TransactionManager,
	filings repository.FilingRepository,
	audit repository.AuditRepository,
	reader ledger.Reader,
	table *taxcalc.Table,
	events EventPublisher,
	logger zerolog.Logger,
) FilingService {
	return &filingService{
		txm:     txm,
		filings: filings,
		audit:   audit,
		reader:  reader,
		table:   table,
		events:  publisherOrNop(events),
		machine: NewFilingMachine(),
		logger:  logger,
		now:     time.Now,
	}
}

// --- Implementation ---

func (s *filingService) CreateDraft(ctx context.Context, userID uuid.UUID, req DeclarationRequest) (FilingResponse, error) {
	filing, err := s.declare(ctx, userID, req)
	if err != nil {
		return FilingResponse{}, err
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.filings.Create(txCtx, filing); err != nil {
			return fmt.Errorf("failed to create filing: %w", err)
		}
		return writeAudit(txCtx, s.audit, &userID, model.ActionCreateFiling, filing.ID.String(), filing.TaxType, map[string]interface{}{
			"tax_type": filing.TaxType,
			"tax_year": filing.TaxYear,
			"amount":   filing.Amount.String(),
		})
	})
	if err != nil {
		return FilingResponse{}, err
	}

	s.publish(filing, EventFilingDraft)
	return toFilingResponse(*filing), nil
}

func (s *filingService) Submit(ctx context.Context, userID, filingID uuid.UUID) (FilingResponse, error) {
	current, err := s.owned(ctx, userID, filingID)
	if err != nil {
		return FilingResponse{}, err
	}

	key := filingLockKey(userID, current.TaxType, current.TaxYear)
	var filing *model.TaxFiling
	err = s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}

			f, err := s.filings.FindByID(txCtx, filingID)
			if err != nil {
				return classify(err, "filing")
			}
			if err := s.machine.Check(f.Status, model.FilingSubmitted); err != nil {
				return apperr.Conflict("filing %s is already %s", f.ID, f.Status)
			}
			if err := s.ensureNoActive(txCtx, f.UserID, f.TaxType, f.TaxYear); err != nil {
				return err
			}

			s.markSubmitted(f)
			if err := s.filings.Update(txCtx, f); err != nil {
				return classify(fmt.Errorf("failed to submit filing: %w", err), "active filing")
			}
			filing = f
			return writeAudit(txCtx, s.audit, &userID, model.ActionSubmitFiling, f.ID.String(), *f.ReferenceNumber, map[string]interface{}{
				"tax_type": f.TaxType,
				"tax_year": f.TaxYear,
			})
		})
	})
	if err != nil {
		return FilingResponse{}, err
	}

	s.publish(filing, EventFilingSubmitted)
	return toFilingResponse(*filing), nil
}

func (s *filingService) FileReturn(ctx context.Context, userID uuid.UUID, req DeclarationRequest) (FilingResponse, error) {
	filing, err := s.declare(ctx, userID, req)
	if err != nil {
		return FilingResponse{}, err
	}

	key := filingLockKey(userID, filing.TaxType, filing.TaxYear)
	err = s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}
			if err := s.ensureNoActive(txCtx, userID, filing.TaxType, filing.TaxYear); err != nil {
				return err
			}
			if err := s.machine.Check(filing.Status, model.FilingSubmitted); err != nil {
				return err
			}

			s.markSubmitted(filing)
			if err := s.filings.Create(txCtx, filing); err != nil {
				return classify(fmt.Errorf("failed to create filing: %w", err), "active filing")
			}
			return writeAudit(txCtx, s.audit, &userID, model.ActionSubmitFiling, filing.ID.String(), *filing.ReferenceNumber, map[string]interface{}{
				"tax_type": filing.TaxType,
				"tax_year": filing.TaxYear,
				"amount":   filing.Amount.String(),
			})
		})
	})
	if err != nil {
		return FilingResponse{}, err
	}

	s.publish(filing, EventFilingSubmitted)
	return toFilingResponse(*filing), nil
}

func (s *filingService) Acknowledge(ctx context.Context, ack FilingAcknowledgment) (FilingResponse, error) {
	target := model.FilingStatus(strings.ToLower(strings.TrimSpace(ack.Status)))
	if target != model.FilingAccepted && target != model.FilingRejected {
		return FilingResponse{}, apperr.ExternalAck(nil, "unknown acknowledgment status %q for %s", ack.Status, ack.ReferenceNumber)
	}
	if target == model.FilingAccepted && strings.TrimSpace(ack.ExternalReference) == "" {
		return FilingResponse{}, apperr.ExternalAck(nil, "acceptance of %s carries no external reference", ack.ReferenceNumber)
	}
	if target == model.FilingRejected && strings.TrimSpace(ack.Reason) == "" {
		return FilingResponse{}, apperr.ExternalAck(nil, "rejection of %s carries no reason", ack.ReferenceNumber)
	}

	current, err := s.filings.FindByReference(ctx, ack.ReferenceNumber)
	if err != nil {
		return FilingResponse{}, apperr.ExternalAck(classify(err, "filing"), "acknowledgment for unknown filing %s", ack.ReferenceNumber)
	}

	key := filingLockKey(current.UserID, current.TaxType, current.TaxYear)
	var filing *model.TaxFiling
	err = s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}

			f, err := s.filings.FindByReference(txCtx, ack.ReferenceNumber)
			if err != nil {
				return apperr.ExternalAck(classify(err, "filing"), "acknowledgment for unknown filing %s", ack.ReferenceNumber)
			}
			if err := s.machine.Check(f.Status, target); err != nil {
				return apperr.ExternalAck(err, "out-of-order acknowledgment for %s", ack.ReferenceNumber)
			}

			now := s.now().UTC()
			f.Status = target
			f.ProcessedAt = &now
			action := model.ActionAcceptFiling
			if target == model.FilingAccepted {
				f.ExternalReference = lo.ToPtr(strings.TrimSpace(ack.ExternalReference))
			} else {
				f.RejectionReason = strings.TrimSpace(ack.Reason)
				action = model.ActionRejectFiling
			}

			if err := s.filings.Update(txCtx, f); err != nil {
				return fmt.Errorf("failed to record acknowledgment: %w", err)
			}
			filing = f
			return writeAudit(txCtx, s.audit, nil, action, f.ID.String(), ack.ReferenceNumber, map[string]interface{}{
				"status":             string(target),
				"external_reference": ack.ExternalReference,
				"reason":             ack.Reason,
			})
		})
	})
	if err != nil {
		return FilingResponse{}, err
	}

	s.logger.Info().
		Str("reference", ack.ReferenceNumber).
		Str("status", string(filing.Status)).
		Msg("filing acknowledged")

	event := EventFilingAccepted
	if filing.Status == model.FilingRejected {
		event = EventFilingRejected
	}
	s.publish(filing, event)
	return toFilingResponse(*filing), nil
}

func (s *filingService) List(ctx context.Context, userID uuid.UUID, query FilingQuery) ([]FilingResponse, int64, error) {
	if query.TaxType != "" {
		if _, ok := obligation.ParseType(query.TaxType); !ok {
			return nil, 0, apperr.Validation("unknown tax type %q", query.TaxType)
		}
	}
	if query.Status != "" && !s.machine.Known(model.FilingStatus(query.Status)) {
		return nil, 0, apperr.Validation("unknown filing status %q", query.Status)
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	filings, total, err := s.filings.List(ctx, repository.FilingFilter{
		UserID:  userID,
		TaxType: query.TaxType,
		TaxYear: query.Year,
		Status:  model.FilingStatus(query.Status),
		Offset:  query.Offset,
		Limit:   query.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list filings: %w", err)
	}

	return lo.Map(filings, func(f model.TaxFiling, _ int) FilingResponse { return toFilingResponse(f) }), total, nil
}

func (s *filingService) Get(ctx context.Context, userID, filingID uuid.UUID) (FilingResponse, error) {
	filing, err := s.owned(ctx, userID, filingID)
	if err != nil {
		return FilingResponse{}, err
	}
	return toFilingResponse(*filing), nil
}

// --- Helpers ---

// declare validates the request and builds an unsaved draft, filling omitted figures from the ledger.
func (s *filingService) declare(ctx context.Context, userID uuid.UUID, req DeclarationRequest) (*model.TaxFiling, error) {
	taxType, ok := obligation.ParseType(req.TaxType)
	if !ok {
		return nil, apperr.Validation("unknown tax type %q", req.TaxType)
	}
	period := ledger.Period{Year: req.Year}
	if err := period.Validate(); err != nil {
		return nil, apperr.Validation("invalid tax year: %v", err)
	}
	if req.Year > s.now().Year() {
		return nil, apperr.Validation("cannot file for future tax year %d", req.Year)
	}

	income, deductions := req.DeclaredIncome, req.DeclaredDeductions
	source := "declared"
	if income == nil || deductions == nil {
		entries, err := s.reader.ListTransactions(ctx, userID, period)
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		agg := ledger.Summarize(period, entries)
		if income == nil {
			income = lo.ToPtr(agg.TotalIncome)
			source = "ledger"
		}
		if deductions == nil {
			deductions = lo.ToPtr(s.defaultDeductions(taxType, agg, *income))
		}
	}

	if income.IsNegative() {
		return nil, apperr.Validation("declared_income must not be negative")
	}
	if deductions.IsNegative() {
		return nil, apperr.Validation("declared_deductions must not be negative")
	}
	if deductions.GreaterThan(*income) {
		return nil, apperr.Validation("declared_deductions %s exceed declared_income %s", deductions.StringFixed(2), income.StringFixed(2))
	}

	declaredIncome := income.Round(taxcalc.MoneyPlaces)
	declaredDeductions := deductions.Round(taxcalc.MoneyPlaces)

	declaration, err := json.Marshal(map[string]interface{}{
		"source":              source,
		"declared_income":     declaredIncome.StringFixed(2),
		"declared_deductions": declaredDeductions.StringFixed(2),
		"table_version":       s.table.Schedule.Version,
		"notes":               req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode declaration: %w", err)
	}

	return &model.TaxFiling{
		ID:                 uuid.New(),
		UserID:             userID,
		TaxType:            string(taxType),
		TaxYear:            req.Year,
		DeclaredIncome:     declaredIncome,
		DeclaredDeductions: declaredDeductions,
		Amount:             s.amountDue(taxType, declaredIncome, declaredDeductions),
		Status:             s.machine.Initial(),
		Declaration:        string(declaration),
		CreatedAt:          s.now().UTC(),
	}, nil
}

func (s *filingService) defaultDeductions(taxType obligation.Type, agg ledger.Aggregate, income decimal.Decimal) decimal.Decimal {
	var deductions decimal.Decimal
	switch taxType {
	case obligation.TypePIT, obligation.TypePAYE:
		deductions = s.table.Schedule.RecognizedDeductions(agg)
	default:
		deductions = agg.TotalExpense
	}
	return decimal.Min(deductions, decimal.Max(income, decimal.Zero))
}

// amountDue is the annual liability for the declared figures.
func (s *filingService) amountDue(taxType obligation.Type, income, deductions decimal.Decimal) decimal.Decimal {
	base := income.Sub(deductions)
	switch taxType {
	case obligation.TypeVAT:
		return base.Mul(s.table.VAT.Rate).Round(taxcalc.MoneyPlaces)
	case obligation.TypeCIT:
		return base.Mul(s.table.CITRate).Round(taxcalc.MoneyPlaces)
	default:
		return s.table.Schedule.Compute(income, deductions).Liability
	}
}

func (s *filingService) owned(ctx context.Context, userID, filingID uuid.UUID) (*model.TaxFiling, error) {
	filing, err := s.filings.FindByID(ctx, filingID)
	if err != nil {
		return nil, classify(err, "filing")
	}
	if filing.UserID != userID {
		return nil, apperr.NotFound("filing not found")
	}
	return filing, nil
}

func (s *filingService) ensureNoActive(ctx context.Context, userID uuid.UUID, taxType string, year int) error {
	existing, err := s.filings.FindActive(ctx, userID, taxType, year)
	if err == nil {
		return apperr.Conflict("%s for %d has already been filed (%s, %s)", taxType, year, existing.Status, lo.FromPtr(existing.ReferenceNumber))
	}
	if apperr.KindOf(classify(err, "filing")) == apperr.KindNotFound {
		return nil
	}
	return fmt.Errorf("failed to check existing filings: %w", err)
}

func (s *filingService) markSubmitted(f *model.TaxFiling) {
	now := s.now().UTC()
	ref := referenceNumber("FIRS", now, 6)
	f.Status = model.FilingSubmitted
	f.ReferenceNumber = &ref
	f.ExternalReference = lo.ToPtr("PENDING-" + ref)
	f.FiledAt = &now
}

func (s *filingService) publish(f *model.TaxFiling, eventType string) {
	s.events.Publish(f.UserID, websocket.Event{
		Type:      eventType,
		EntityID:  f.ID.String(),
		Reference: lo.FromPtr(f.ReferenceNumber),
		Status:    string(f.Status),
	})
}

func toFilingResponse(f model.TaxFiling) FilingResponse {
	return FilingResponse{
		FilingID:           f.ID.String(),
		TaxType:            f.TaxType,
		TaxYear:            f.TaxYear,
		DeclaredIncome:     f.DeclaredIncome,
		DeclaredDeductions: f.DeclaredDeductions,
		Amount:             f.Amount,
		Status:             string(f.Status),
		ReferenceNumber:    f.ReferenceNumber,
		ExternalReference:  f.ExternalReference,
		RejectionReason:    f.RejectionReason,
		CreatedAt:          f.CreatedAt.UTC().Format(time.RFC3339),
		FiledAt:            timeString(f.FiledAt),
		ProcessedAt:        timeString(f.ProcessedAt),
	}
}
