package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"sabitax/internal/apperr"
	"sabitax/internal/lifecycle"
	"sabitax/internal/model"
	"sabitax/internal/repository"
	"sabitax/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/crypto/blake2b"
)

// EstimatedCompletion is quoted to applicants on submission.
const EstimatedCompletion = "3-5 business days"

// Document kinds accepted by AttachDocument
const (
	DocumentID          = "id"
	DocumentUtilityBill = "utility_bill"
)

// --- DTOs ---

type TinApplyRequest struct {
	NIN           string `json:"nin" binding:"required"`
	DateOfBirth   string `json:"date_of_birth" binding:"required"` // YYYY-MM-DD
	IDDocumentURL string `json:"id_document_url" binding:"required"`
}

type TinDocumentRequest struct {
	DocumentType string `json:"document_type" binding:"required,oneof=id utility_bill"`
	DocumentURL  string `json:"document_url" binding:"required"`
}

// TinStatusUpdate is the tax authority's callback for an application.
type TinStatusUpdate struct {
	ReferenceNumber string `json:"reference_number" binding:"required"`
	Status          string `json:"status" binding:"required"`
	TIN             string `json:"tin"`
	Reason          string `json:"reason"`
}

type TinApplicationResponse struct {
	ApplicationID       string  `json:"application_id"`
	ReferenceNumber     string  `json:"reference_number"`
	Status              string  `json:"status"`
	TIN                 *string `json:"tin"` // masked
	NINLastDigits       string  `json:"nin_last_digits"`
	HasUtilityBill      bool    `json:"has_utility_bill"`
	RejectionReason     string  `json:"rejection_reason,omitempty"`
	EstimatedCompletion string  `json:"estimated_completion,omitempty"`
	AppliedAt           string  `json:"applied_at"`
	ProcessedAt         *string `json:"processed_at"`
}

type TinStatusResponse struct {
	HasTIN          bool    `json:"has_tin"`
	TIN             *string `json:"tin"` // masked
	Status          string  `json:"status"`
	ApplicationID   *string `json:"application_id"`
	ReferenceNumber *string `json:"reference_number"`
	AppliedAt       *string `json:"applied_at"`
}

// --- Interface ---

type TinService interface {
	Apply(ctx context.Context, userID uuid.UUID, req TinApplyRequest) (TinApplicationResponse, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (TinStatusResponse, error)
	GetApplication(ctx context.Context, userID, applicationID uuid.UUID) (TinApplicationResponse, error)
	AttachDocument(ctx context.Context, userID, applicationID uuid.UUID, req TinDocumentRequest) (TinApplicationResponse, error)
	// ProcessStatus applies an authority callback. Every failure is an apperr.ExternalAck.
	ProcessStatus(ctx context.Context, update TinStatusUpdate) (TinApplicationResponse, error)
}

// NewTinMachine returns the TIN lifecycle: submitted -> processing -> verified | rejected.
func NewTinMachine() *lifecycle.Machine[model.TinStatus] {
	return lifecycle.New("tin application", model.TinSubmitted, map[model.TinStatus][]model.TinStatus{
		model.TinSubmitted:  {model.TinProcessing},
		model.TinProcessing: {model.TinVerified, model.TinRejected},
	})
}

type tinService struct {
	txm     repository.TransactionManager
	apps    repository.TinRepository
	audit   repository.AuditRepository
	events  EventPublisher
	machine *lifecycle.Machine[model.TinStatus]
	ninKey  []byte
	logger  zerolog.Logger
	now     func() time.Time
}

func NewTinService(
	txm repository.TransactionManager,
	apps repository.TinRepository,
	audit repository.AuditRepository,
	events EventPublisher,
	ninKey []byte,
	logger zerolog.Logger,
) TinService {
	return &tinService{
		txm:     txm,
		apps:    apps,
		audit:   audit,
		events:  publisherOrNop(events),
		machine: NewTinMachine(),
		ninKey:  ninKey,
		logger:  logger,
		now:     time.Now,
	}
}

// --- Implementation ---

func (s *tinService) Apply(ctx context.Context, userID uuid.UUID, req TinApplyRequest) (TinApplicationResponse, error) {
	nin := strings.TrimSpace(req.NIN)
	if len(nin) != 11 || strings.IndexFunc(nin, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return TinApplicationResponse{}, apperr.Validation("nin must be 11 digits")
	}
	dob, err := time.Parse(time.DateOnly, strings.TrimSpace(req.DateOfBirth))
	if err != nil {
		return TinApplicationResponse{}, apperr.Validation("date_of_birth must be YYYY-MM-DD")
	}
	if !dob.Before(s.now().UTC()) {
		return TinApplicationResponse{}, apperr.Validation("date_of_birth must be in the past")
	}
	docRef := strings.TrimSpace(req.IDDocumentURL)
	if docRef == "" {
		return TinApplicationResponse{}, apperr.Validation("id_document_url is required")
	}

	fingerprint, err := s.fingerprint(nin)
	if err != nil {
		return TinApplicationResponse{}, err
	}

	key := tinLockKey(userID)
	var app *model.TinApplication
	err = s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}
			if err := s.ensureCanApply(txCtx, userID); err != nil {
				return err
			}

			now := s.now().UTC()
			app = &model.TinApplication{
				ID:              uuid.New(),
				UserID:          userID,
				NINFingerprint:  fingerprint,
				NINLastDigits:   nin[len(nin)-4:],
				DateOfBirth:     dob,
				IDDocumentRef:   docRef,
				Status:          s.machine.Initial(),
				ReferenceNumber: referenceNumber("TIN", now, 8),
				AppliedAt:       now,
			}
			if err := s.apps.Create(txCtx, app); err != nil {
				return classify(fmt.Errorf("failed to create TIN application: %w", err), "open TIN application")
			}
			return writeAudit(txCtx, s.audit, &userID, model.ActionApplyTin, app.ID.String(), app.ReferenceNumber, map[string]interface{}{
				"nin_last_digits": app.NINLastDigits,
			})
		})
	})
	if err != nil {
		return TinApplicationResponse{}, err
	}

	s.publish(app, EventTinSubmitted)
	resp := toTinResponse(*app)
	resp.EstimatedCompletion = EstimatedCompletion
	return resp, nil
}

func (s *tinService) GetStatus(ctx context.Context, userID uuid.UUID) (TinStatusResponse, error) {
	verified, err := s.apps.FindVerified(ctx, userID)
	if err == nil {
		return statusFrom(verified, true), nil
	}
	if apperr.KindOf(classify(err, "TIN")) != apperr.KindNotFound {
		return TinStatusResponse{}, fmt.Errorf("failed to load verified TIN: %w", err)
	}

	latest, err := s.apps.FindLatest(ctx, userID)
	if err != nil {
		if apperr.KindOf(classify(err, "TIN")) == apperr.KindNotFound {
			return TinStatusResponse{Status: "none"}, nil
		}
		return TinStatusResponse{}, fmt.Errorf("failed to load TIN application: %w", err)
	}
	return statusFrom(latest, false), nil
}

func (s *tinService) GetApplication(ctx context.Context, userID, applicationID uuid.UUID) (TinApplicationResponse, error) {
	app, err := s.owned(ctx, userID, applicationID)
	if err != nil {
		return TinApplicationResponse{}, err
	}
	return toTinResponse(*app), nil
}

func (s *tinService) AttachDocument(ctx context.Context, userID, applicationID uuid.UUID, req TinDocumentRequest) (TinApplicationResponse, error) {
	ref := strings.TrimSpace(req.DocumentURL)
	if ref == "" {
		return TinApplicationResponse{}, apperr.Validation("document_url is required")
	}
	if req.DocumentType != DocumentID && req.DocumentType != DocumentUtilityBill {
		return TinApplicationResponse{}, apperr.Validation("unknown document type %q", req.DocumentType)
	}
	if _, err := s.owned(ctx, userID, applicationID); err != nil {
		return TinApplicationResponse{}, err
	}

	key := tinLockKey(userID)
	var app *model.TinApplication
	err := s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}
			a, err := s.apps.FindByID(txCtx, applicationID)
			if err != nil {
				return classify(err, "TIN application")
			}
			if s.machine.Terminal(a.Status) {
				return apperr.Conflict("TIN application %s is already %s", a.ReferenceNumber, a.Status)
			}

			if req.DocumentType == DocumentID {
				a.IDDocumentRef = ref
			} else {
				a.UtilityBillRef = ref
			}
			if err := s.apps.Update(txCtx, a); err != nil {
				return fmt.Errorf("failed to attach document: %w", err)
			}
			app = a
			return writeAudit(txCtx, s.audit, &userID, model.ActionAttachTinDoc, a.ID.String(), a.ReferenceNumber, map[string]interface{}{
				"document_type": req.DocumentType,
			})
		})
	})
	if err != nil {
		return TinApplicationResponse{}, err
	}
	return toTinResponse(*app), nil
}

func (s *tinService) ProcessStatus(ctx context.Context, update TinStatusUpdate) (TinApplicationResponse, error) {
	target := model.TinStatus(strings.ToLower(strings.TrimSpace(update.Status)))
	if !s.machine.Known(target) || target == s.machine.Initial() {
		return TinApplicationResponse{}, apperr.ExternalAck(nil, "unknown TIN status %q for %s", update.Status, update.ReferenceNumber)
	}
	tin := strings.TrimSpace(update.TIN)
	if target == model.TinVerified && tin == "" {
		return TinApplicationResponse{}, apperr.ExternalAck(nil, "verification of %s carries no TIN", update.ReferenceNumber)
	}
	if target == model.TinRejected && strings.TrimSpace(update.Reason) == "" {
		return TinApplicationResponse{}, apperr.ExternalAck(nil, "rejection of %s carries no reason", update.ReferenceNumber)
	}

	current, err := s.apps.FindByReference(ctx, update.ReferenceNumber)
	if err != nil {
		return TinApplicationResponse{}, apperr.ExternalAck(classify(err, "TIN application"), "status update for unknown TIN application %s", update.ReferenceNumber)
	}

	key := tinLockKey(current.UserID)
	var app *model.TinApplication
	err = s.machine.WithLock(key, func() error {
		return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.txm.LockKey(txCtx, key); err != nil {
				return err
			}
			a, err := s.apps.FindByReference(txCtx, update.ReferenceNumber)
			if err != nil {
				return apperr.ExternalAck(classify(err, "TIN application"), "status update for unknown TIN application %s", update.ReferenceNumber)
			}
			if err := s.machine.Check(a.Status, target); err != nil {
				return apperr.ExternalAck(err, "out-of-order status update for %s", update.ReferenceNumber)
			}

			action := model.ActionProcessTin
			a.Status = target
			switch target {
			case model.TinVerified:
				now := s.now().UTC()
				a.TIN = &tin
				a.ProcessedAt = &now
				action = model.ActionVerifyTin
			case model.TinRejected:
				now := s.now().UTC()
				a.RejectionReason = strings.TrimSpace(update.Reason)
				a.ProcessedAt = &now
				action = model.ActionRejectTin
			}

			if err := s.apps.Update(txCtx, a); err != nil {
				return fmt.Errorf("failed to record TIN status: %w", err)
			}
			app = a
			return writeAudit(txCtx, s.audit, nil, action, a.ID.String(), a.ReferenceNumber, map[string]interface{}{
				"status": string(target),
				"reason": update.Reason,
			})
		})
	})
	if err != nil {
		return TinApplicationResponse{}, err
	}

	s.logger.Info().
		Str("reference", app.ReferenceNumber).
		Str("status", string(app.Status)).
		Msg("TIN application updated")

	s.publish(app, EventTinUpdated)
	return toTinResponse(*app), nil
}

// --- Helpers ---

// MaskTIN keeps the first three and last two characters, e.g. 22134567890 -> 221***90.
func MaskTIN(tin string) string {
	if len(tin) < 6 {
		return strings.Repeat("*", len(tin))
	}
	return tin[:3] + "***" + tin[len(tin)-2:]
}

func (s *tinService) fingerprint(nin string) (string, error) {
	h, err := blake2b.New256(s.ninKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialise NIN hash: %w", err)
	}
	h.Write([]byte(nin))
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *tinService) ensureCanApply(ctx context.Context, userID uuid.UUID) error {
	if verified, err := s.apps.FindVerified(ctx, userID); err == nil {
		return apperr.Conflict("a verified TIN already exists (%s)", MaskTIN(lo.FromPtr(verified.TIN)))
	} else if apperr.KindOf(classify(err, "TIN")) != apperr.KindNotFound {
		return fmt.Errorf("failed to check verified TIN: %w", err)
	}

	if open, err := s.apps.FindOpen(ctx, userID); err == nil {
		return apperr.Conflict("TIN application %s is already %s", open.ReferenceNumber, open.Status)
	} else if apperr.KindOf(classify(err, "TIN")) != apperr.KindNotFound {
		return fmt.Errorf("failed to check open TIN applications: %w", err)
	}
	return nil
}

func (s *tinService) owned(ctx context.Context, userID, applicationID uuid.UUID) (*model.TinApplication, error) {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return nil, classify(err, "TIN application")
	}
	if app.UserID != userID {
		return nil, apperr.NotFound("TIN application not found")
	}
	return app, nil
}

func (s *tinService) publish(app *model.TinApplication, eventType string) {
	s.events.Publish(app.UserID, websocket.Event{
		Type:      eventType,
		EntityID:  app.ID.String(),
		Reference: app.ReferenceNumber,
		Status:    string(app.Status),
	})
}

func maskedTIN(app *model.TinApplication) *string {
	if app.TIN == nil {
		return nil
	}
	return lo.ToPtr(MaskTIN(*app.TIN))
}

func statusFrom(app *model.TinApplication, hasTIN bool) TinStatusResponse {
	return TinStatusResponse{
		HasTIN:          hasTIN,
		TIN:             maskedTIN(app),
		Status:          string(app.Status),
		ApplicationID:   lo.ToPtr(app.ID.String()),
		ReferenceNumber: lo.ToPtr(app.ReferenceNumber),
		AppliedAt:       timeString(&app.AppliedAt),
	}
}

func toTinResponse(app model.TinApplication) TinApplicationResponse {
	return TinApplicationResponse{
		ApplicationID:   app.ID.String(),
		ReferenceNumber: app.ReferenceNumber,
		Status:          string(app.Status),
		TIN:             maskedTIN(&app),
		NINLastDigits:   app.NINLastDigits,
		HasUtilityBill:  app.UtilityBillRef != "",
		RejectionReason: app.RejectionReason,
		AppliedAt:       app.AppliedAt.UTC().Format(time.RFC3339),
		ProcessedAt:     timeString(app.ProcessedAt),
	}
}
