package service

import (
	"context"
	"fmt"

	"supplychain/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, actor Actor, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns the organization's audit trail, newest first
func (s *auditService) GetAuditLogs(ctx context.Context, actor Actor, filter repository.AuditFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	logs, total, err := s.auditRepo.List(ctx, actor.OrganizationID, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		actorID := "system"
		if l.ActorID != nil {
			actorID = l.ActorID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			ActorID:    actorID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    string(l.Details),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
