package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"supplychain/internal/apperr"
	"supplychain/internal/model"
	"supplychain/internal/repository"
	"supplychain/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event names pushed to websocket clients
const (
	EventMRPRunCompleted    = "mrp.run.completed"
	EventMRPRunFailed       = "mrp.run.failed"
	EventLandedCostApplied  = "landed_cost.applied"
	EventReorderPolicySaved = "reorder_policy.saved"
)

// Publisher pushes events to the organization's live clients.
type Publisher interface {
	Publish(orgID uuid.UUID, event string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(uuid.UUID, string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// Actor identifies who is calling and on behalf of which organization.
type Actor struct {
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
}

// lookupErr maps a missing row to apperr.ErrNotFound and wraps anything else.
func lookupErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.ErrInvalidParameter, "invalid %s: %q", field, raw)
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor Actor, action, entityID, entityName string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	entry := &model.AuditLog{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.UserID,
		Action:         action,
		EntityID:       entityID,
		EntityName:     entityName,
		Details:        datatypes.JSON(raw),
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	p := pagination.New(page, limit)
	return p.Page, p.Limit
}
