package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sabitax/internal/apperr"
	"sabitax/internal/model"
	"sabitax/internal/repository"
	"sabitax/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventPublisher pushes lifecycle events to the owning user. *websocket.Hub implements it.
type EventPublisher interface {
	Publish(userID uuid.UUID, event websocket.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, websocket.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// Event types
const (
	EventFilingDraft     = "filing.draft"
	EventFilingSubmitted = "filing.submitted"
	EventFilingAccepted  = "filing.accepted"
	EventFilingRejected  = "filing.rejected"
	EventTinSubmitted    = "tin.submitted"
	EventTinUpdated      = "tin.updated"
)

func filingLockKey(userID uuid.UUID, taxType string, year int) string {
	return fmt.Sprintf("filing:%s:%s:%d", userID, taxType, year)
}

func tinLockKey(userID uuid.UUID) string {
	return "tin:" + userID.String()
}

// referenceNumber returns e.g. FIRS-2026-3FA9C1 (suffixLen 6) or TIN-2026-0B7D44E2 (suffixLen 8).
func referenceNumber(prefix string, at time.Time, suffixLen int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:suffixLen]
	return fmt.Sprintf("%s-%d-%s", prefix, at.Year(), suffix)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if err := repo.Log(ctx, &entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// classify maps storage errors onto the domain taxonomy; other errors pass through.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", what)
	default:
		return err
	}
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
