package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"supplychain/internal/apperr"
	"supplychain/internal/inventory"
	"supplychain/internal/model"
	"supplychain/internal/report"
	"supplychain/internal/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MRPConfig holds the planner settings loaded from configuration.
type MRPConfig struct {
	DefaultHorizonDays int
	ShortageAction     model.SuggestedAction
	IncludeSafetyStock bool
}

// DTOs
type RunMRPRequest struct {
	HorizonDays int `json:"horizon_days" binding:"min=0"`
}

type ListRequirementsRequest struct {
	ProductID string
	Action    string
	Source    string
	Page      int
	Limit     int
}

type MRPService interface {
	RunMRP(ctx context.Context, actor Actor, req RunMRPRequest) (*model.MRPRun, error)
	GetRun(ctx context.Context, actor Actor, id string) (*model.MRPRun, error)
	ListRuns(ctx context.Context, actor Actor, page, limit int) ([]model.MRPRun, int64, error)
	ListRequirements(ctx context.Context, actor Actor, runID string, req ListRequirementsRequest) ([]model.MRPRequirement, int64, error)
	ExportRequirements(ctx context.Context, actor Actor, runID string) ([]byte, string, error)
}

type mrpService struct {
	mrpRepo    repository.MRPRepository
	orderRepo  repository.OrderRepository
	policyRepo repository.PolicyRepository
	auditRepo  repository.AuditRepository
	inventory  inventory.Reader
	txManager  repository.TransactionManager
	locker     repository.Locker
	node       *snowflake.Node
	hub        Publisher
	cfg        MRPConfig
	now        func() time.Time
}

func NewMRPService(
	mrpRepo repository.MRPRepository,
	orderRepo repository.OrderRepository,
	policyRepo repository.PolicyRepository,
	auditRepo repository.AuditRepository,
	inv inventory.Reader,
	txManager repository.TransactionManager,
	locker repository.Locker,
	node *snowflake.Node,
	hub Publisher,
	cfg MRPConfig,
) MRPService {
	if cfg.ShortageAction == "" {
		cfg.ShortageAction = model.ActionPurchase
	}
	if cfg.DefaultHorizonDays <= 0 {
		cfg.DefaultHorizonDays = 30
	}
	return &mrpService{
		mrpRepo:    mrpRepo,
		orderRepo:  orderRepo,
		policyRepo: policyRepo,
		auditRepo:  auditRepo,
		inventory:  inv,
		txManager:  txManager,
		locker:     locker,
		node:       node,
		hub:        publisherOrNop(hub),
		cfg:        cfg,
		now:        time.Now,
	}
}

// RunMRP plans one horizon for the actor's organization. The returned run is
// the record of the outcome: a planning failure marks it failed and is not
// returned as an error. Errors are returned when the header cannot be stored
// and, alongside the failed run, when another run holds the organization lock
// or the failure itself cannot be recorded.
func (s *mrpService) RunMRP(ctx context.Context, actor Actor, req RunMRPRequest) (*model.MRPRun, error) {
	horizon := req.HorizonDays
	if horizon < 0 {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "horizon_days must not be negative")
	}
	if horizon == 0 {
		horizon = s.cfg.DefaultHorizonDays
	}

	start := s.now().UTC()
	windowEnd := start.AddDate(0, 0, horizon)
	filters, err := json.Marshal(map[string]any{
		"horizon_days":         horizon,
		"window_start":         start,
		"window_end":           windowEnd,
		"shortage_action":      s.cfg.ShortageAction,
		"include_safety_stock": s.cfg.IncludeSafetyStock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mrp run filters: %w", err)
	}

	run := &model.MRPRun{
		OrganizationID: actor.OrganizationID,
		RunCode:        "MRP-" + s.node.Generate().String(),
		RunAt:          start,
		RequestedBy:    actor.UserID,
		HorizonDays:    horizon,
		Status:         model.MRPStatusRunning,
		StartedAt:      start,
		Filters:        datatypes.JSON(filters),
	}
	if err := s.mrpRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create mrp run: %w", err)
	}
	log.Printf("mrp: run %s started for org %s, horizon %d days", run.RunCode, actor.OrganizationID, horizon)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		release, err := s.locker.TryLock(txCtx, "mrp:"+actor.OrganizationID.String())
		if err != nil {
			return err
		}
		defer release()

		reqs, err := s.plan(txCtx, run, windowEnd)
		if err != nil {
			return err
		}
		if err := s.mrpRepo.CreateRequirements(txCtx, reqs); err != nil {
			return fmt.Errorf("failed to save requirements: %w", err)
		}

		shortages := 0
		for _, r := range reqs {
			if r.SuggestedAction != model.ActionNone {
				shortages++
			}
		}
		s.finish(run, model.MRPStatusCompleted)
		run.TotalRequirements = len(reqs)
		run.ShortageCount = shortages
		if err := s.mrpRepo.UpdateRun(txCtx, run); err != nil {
			return fmt.Errorf("failed to complete mrp run: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRunMRP, run.ID.String(), run.RunCode, map[string]any{
			"horizon_days":       horizon,
			"total_requirements": run.TotalRequirements,
			"shortage_count":     run.ShortageCount,
		})
	})

	if err != nil {
		s.finish(run, model.MRPStatusFailed)
		run.TotalRequirements = 0
		run.ShortageCount = 0
		run.ErrorMessage = err.Error()
		// The caller's deadline may be what failed the run; the outcome is still recorded.
		if uerr := s.mrpRepo.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
			log.Printf("mrp: failed to record failure of run %s: %v", run.RunCode, uerr)
			return run, fmt.Errorf("failed to record failure of mrp run %s: %w", run.RunCode, uerr)
		}
		log.Printf("mrp: run %s failed: %v", run.RunCode, err)
		s.hub.Publish(actor.OrganizationID, EventMRPRunFailed, run)
		if apperr.Retryable(err) {
			return run, err
		}
		return run, nil
	}

	log.Printf("mrp: run %s completed: %d requirements, %d shortages in %.3fs",
		run.RunCode, run.TotalRequirements, run.ShortageCount, run.DurationSeconds)
	s.hub.Publish(actor.OrganizationID, EventMRPRunCompleted, run)
	return run, nil
}

func (s *mrpService) finish(run *model.MRPRun, status model.MRPRunStatus) {
	ended := s.now().UTC()
	run.Status = status
	run.EndedAt = &ended
	run.DurationSeconds = ended.Sub(run.StartedAt).Seconds()
}

// plan nets every open sales line due in [run start, windowEnd] against its
// product's availability. Each line is netted against the same starting
// snapshot, so shortages on one product are not queued against each other.
func (s *mrpService) plan(ctx context.Context, run *model.MRPRun, windowEnd time.Time) ([]model.MRPRequirement, error) {
	org := run.OrganizationID
	lines, err := s.orderRepo.FindOpenSalesLines(ctx, org, run.StartedAt, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load open sales lines: %w", err)
	}
	policies, err := s.policyRepo.ListActive(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to load reorder policies: %w", err)
	}
	leadTimes := make(map[uuid.UUID]int, len(policies))
	for _, p := range policies {
		leadTimes[p.ProductID] = p.LeadTimeDays
	}

	snapshots := make(map[uuid.UUID]inventory.Snapshot)
	snapshot := func(productID uuid.UUID) (inventory.Snapshot, error) {
		if snap, ok := snapshots[productID]; ok {
			return snap, nil
		}
		snap, err := s.inventory.Snapshot(ctx, org, productID)
		if err != nil {
			return inventory.Snapshot{}, err
		}
		snapshots[productID] = snap
		return snap, nil
	}

	reqs := make([]model.MRPRequirement, 0, len(lines))
	for _, line := range lines {
		required := line.OpenQuantity()
		if !required.IsPositive() || line.RequiredDate == nil {
			continue
		}
		snap, err := snapshot(line.ProductID)
		if err != nil {
			return nil, err
		}
		r := s.net(run, snap, required, *line.RequiredDate, leadTimes[line.ProductID])
		r.Source = model.SourceSalesOrder
		orderID, lineID := line.OrderID, line.ID
		r.SourceOrderID = &orderID
		r.SourceLineID = &lineID
		reqs = append(reqs, r)
	}

	if s.cfg.IncludeSafetyStock {
		for _, p := range policies {
			if !p.SafetyStock.IsPositive() {
				continue
			}
			snap, err := snapshot(p.ProductID)
			if err != nil {
				return nil, err
			}
			if !snap.Available().LessThan(p.SafetyStock) {
				continue
			}
			r := s.net(run, snap, p.SafetyStock, run.StartedAt, p.LeadTimeDays)
			r.Source = model.SourceSafetyStock
			reqs = append(reqs, r)
		}
	}
	return reqs, nil
}

// net builds one requirement. The shortage is what availability, floored at
// zero, leaves uncovered.
func (s *mrpService) net(run *model.MRPRun, snap inventory.Snapshot, required decimal.Decimal, requiredDate time.Time, leadTimeDays int) model.MRPRequirement {
	available := snap.Available()
	r := model.MRPRequirement{
		RunID:                  run.ID,
		OrganizationID:         run.OrganizationID,
		ProductID:              snap.ProductID,
		ProductCode:            snap.Code,
		ProductName:            snap.Name,
		RequiredQuantity:       required,
		RequiredDate:           requiredDate,
		OnHandQuantity:         snap.OnHand,
		AllocatedQuantity:      snap.Allocated,
		AvailableQuantity:      available,
		ShortageQuantity:       decimal.Zero,
		SuggestedAction:        model.ActionNone,
		SuggestedOrderQuantity: decimal.Zero,
	}
	if !available.LessThan(required) {
		return r
	}

	shortage := required.Sub(decimal.Max(available, decimal.Zero))
	orderDate := requiredDate.AddDate(0, 0, -leadTimeDays)
	if orderDate.Before(run.StartedAt) {
		orderDate = run.StartedAt
	}
	r.ShortageQuantity = shortage
	r.SuggestedAction = s.cfg.ShortageAction
	r.SuggestedOrderQuantity = shortage
	r.SuggestedOrderDate = &orderDate
	return r
}

func (s *mrpService) GetRun(ctx context.Context, actor Actor, id string) (*model.MRPRun, error) {
	runID, err := parseID(id, "run id")
	if err != nil {
		return nil, err
	}
	run, err := s.mrpRepo.FindRunByID(ctx, actor.OrganizationID, runID)
	if err != nil {
		return nil, lookupErr(err, "mrp run")
	}
	return run, nil
}

func (s *mrpService) ListRuns(ctx context.Context, actor Actor, page, limit int) ([]model.MRPRun, int64, error) {
	page, limit = normalizePage(page, limit)
	runs, total, err := s.mrpRepo.ListRuns(ctx, actor.OrganizationID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mrp runs: %w", err)
	}
	return runs, total, nil
}

func (s *mrpService) ListRequirements(ctx context.Context, actor Actor, runID string, req ListRequirementsRequest) ([]model.MRPRequirement, int64, error) {
	run, err := s.GetRun(ctx, actor, runID)
	if err != nil {
		return nil, 0, err
	}
	productID, err := parseOptionalID(req.ProductID, "product_id")
	if err != nil {
		return nil, 0, err
	}
	filter := repository.RequirementFilter{
		ProductID: productID,
		Action:    model.SuggestedAction(req.Action),
		Source:    model.RequirementSource(req.Source),
	}

	page, limit := normalizePage(req.Page, req.Limit)
	reqs, total, err := s.mrpRepo.ListRequirements(ctx, run.ID, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requirements: %w", err)
	}
	return reqs, total, nil
}

// ExportRequirements renders the run as an xlsx workbook and suggests a file name.
func (s *mrpService) ExportRequirements(ctx context.Context, actor Actor, runID string) ([]byte, string, error) {
	run, err := s.GetRun(ctx, actor, runID)
	if err != nil {
		return nil, "", err
	}
	reqs, err := s.mrpRepo.AllRequirements(ctx, run.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load requirements: %w", err)
	}
	data, err := report.RequirementsXLSX(run, reqs)
	if err != nil {
		return nil, "", err
	}
	return data, run.RunCode + ".xlsx", nil
}
