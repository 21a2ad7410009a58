package service

import (
	"context"
	"fmt"
	"time"

	"sabitax/internal/model"
	"sabitax/internal/repository"

	"github.com/samber/lo"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Actor      string `json:"actor"` // "user" or "tax_authority"
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditQuery struct {
	Action   string
	EntityID string
	Offset   int
	Limit    int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, query AuditQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns the lifecycle trail, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, query AuditQuery) ([]AuditLogResponse, int64, error) {
	if query.Limit <= 0 {
		query.Limit = 20
	}

	logs, total, err := s.repo.List(ctx, repository.AuditFilter{
		Action:   query.Action,
		EntityID: query.EntityID,
		Offset:   query.Offset,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return lo.Map(logs, func(l model.AuditLog, _ int) AuditLogResponse {
		actor, userID := "tax_authority", ""
		if l.UserID != nil {
			actor, userID = "user", l.UserID.String()
		}
		return AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Actor:      actor,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.UTC().Format(time.RFC3339),
		}
	}), total, nil
}
