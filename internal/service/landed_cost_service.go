package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"supplychain/internal/apperr"
	"supplychain/internal/landedcost"
	"supplychain/internal/model"
	"supplychain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateLandedCostRequest struct {
	PurchaseOrderID   string     `json:"purchase_order_id" binding:"required,uuid"`
	ShipmentReference string     `json:"shipment_reference" binding:"max=100"`
	ShipmentDate      *time.Time `json:"shipment_date"`
}

type AddLandedCostLineRequest struct {
	CostType         model.CostType         `json:"cost_type" binding:"required"`
	Description      string                 `json:"description"`
	Amount           decimal.Decimal        `json:"amount"`
	AllocationMethod model.AllocationMethod `json:"allocation_method" binding:"required"`
	SupplierID       string                 `json:"supplier_id" binding:"omitempty,uuid"`
	InvoiceReference string                 `json:"invoice_reference" binding:"max=100"`
}

// LandedCostDetail is a header with its lines, allocations, and any product
// cost changes its application made.
type LandedCostDetail struct {
	*model.LandedCostHeader
	CostChanges []model.ProductCostChange `json:"cost_changes"`
}

type LandedCostService interface {
	CreateHeader(ctx context.Context, actor Actor, req CreateLandedCostRequest) (*model.LandedCostHeader, error)
	AddLine(ctx context.Context, actor Actor, headerID string, req AddLandedCostLineRequest) (*model.LandedCostLine, error)
	RemoveLine(ctx context.Context, actor Actor, headerID, lineID string) error
	Calculate(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error)
	Apply(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error)
	GetHeader(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error)
	ListHeaders(ctx context.Context, actor Actor, status string, page, limit int) ([]model.LandedCostHeader, int64, error)
}

type landedCostService struct {
	landedRepo  repository.LandedCostRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	partnerRepo repository.PartnerRepository
	changeRepo  repository.CostChangeRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	locker      repository.Locker
	hub         Publisher
	now         func() time.Time
}

func NewLandedCostService(
	landedRepo repository.LandedCostRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	partnerRepo repository.PartnerRepository,
	changeRepo repository.CostChangeRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	locker repository.Locker,
	hub Publisher,
) LandedCostService {
	return &landedCostService{
		landedRepo:  landedRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		partnerRepo: partnerRepo,
		changeRepo:  changeRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		locker:      locker,
		hub:         publisherOrNop(hub),
		now:         time.Now,
	}
}

func headerLockKey(id uuid.UUID) string {
	return "landed_cost:" + id.String()
}

func (s *landedCostService) CreateHeader(ctx context.Context, actor Actor, req CreateLandedCostRequest) (*model.LandedCostHeader, error) {
	poID, err := parseID(req.PurchaseOrderID, "purchase_order_id")
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.FindPurchaseOrder(ctx, actor.OrganizationID, poID)
	if err != nil {
		return nil, lookupErr(err, "purchase order")
	}

	merchandise := landedcost.ComputeTotals(nil, purchaseLines(order.Lines)).MerchandiseValue
	header := &model.LandedCostHeader{
		OrganizationID:    actor.OrganizationID,
		PurchaseOrderID:   order.ID,
		ShipmentReference: req.ShipmentReference,
		ShipmentDate:      req.ShipmentDate,
		MerchandiseValue:  merchandise,
		TotalLandedCosts:  decimal.Zero,
		TotalValue:        merchandise,
		Status:            model.LandedCostDraft,
		CreatedBy:         actor.UserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.landedRepo.CreateHeader(txCtx, header); err != nil {
			return fmt.Errorf("failed to create landed cost header: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateLandedCost, header.ID.String(), order.OrderCode, req)
	})
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (s *landedCostService) AddLine(ctx context.Context, actor Actor, headerID string, req AddLandedCostLineRequest) (*model.LandedCostLine, error) {
	id, err := parseID(headerID, "landed cost id")
	if err != nil {
		return nil, err
	}
	if !req.CostType.Valid() {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "unknown cost type %q", req.CostType)
	}
	if !req.AllocationMethod.Valid() {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "unknown allocation method %q", req.AllocationMethod)
	}
	if !req.Amount.IsPositive() {
		return nil, apperr.Wrap(apperr.ErrInvalidParameter, "amount must be positive")
	}
	supplierID, err := parseOptionalID(req.SupplierID, "supplier_id")
	if err != nil {
		return nil, err
	}
	if supplierID != nil {
		if _, err := s.partnerRepo.FindByID(ctx, actor.OrganizationID, *supplierID); err != nil {
			return nil, lookupErr(err, "supplier")
		}
	}

	line := &model.LandedCostLine{
		HeaderID:         id,
		CostType:         req.CostType,
		Description:      req.Description,
		Amount:           req.Amount,
		AllocationMethod: req.AllocationMethod,
		SupplierID:       supplierID,
		InvoiceReference: req.InvoiceReference,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		header, err := s.editableHeader(txCtx, actor, id)
		if err != nil {
			return err
		}
		if err := s.landedRepo.CreateLine(txCtx, line); err != nil {
			return fmt.Errorf("failed to add landed cost line: %w", err)
		}
		header.TotalLandedCosts = header.TotalLandedCosts.Add(line.Amount)
		if err := s.markStale(txCtx, header); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionAddLandedCostLine, header.ID.String(), string(line.CostType), req)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *landedCostService) RemoveLine(ctx context.Context, actor Actor, headerID, lineID string) error {
	id, err := parseID(headerID, "landed cost id")
	if err != nil {
		return err
	}
	lid, err := parseID(lineID, "line id")
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		header, err := s.editableHeader(txCtx, actor, id)
		if err != nil {
			return err
		}
		lines, err := s.landedRepo.ListLines(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load landed cost lines: %w", err)
		}
		var removed *model.LandedCostLine
		for i := range lines {
			if lines[i].ID == lid {
				removed = &lines[i]
				break
			}
		}
		if removed == nil {
			return apperr.NotFound("landed cost line")
		}
		if _, err := s.landedRepo.DeleteLine(txCtx, id, lid); err != nil {
			return fmt.Errorf("failed to remove landed cost line: %w", err)
		}
		header.TotalLandedCosts = header.TotalLandedCosts.Sub(removed.Amount)
		if err := s.markStale(txCtx, header); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionRemoveLandedCostLine, header.ID.String(), string(removed.CostType),
			map[string]any{"line_id": removed.ID, "amount": removed.Amount})
	})
}

// editableHeader locks the header for a line change. Applied headers are final.
func (s *landedCostService) editableHeader(ctx context.Context, actor Actor, id uuid.UUID) (*model.LandedCostHeader, error) {
	header, err := s.landedRepo.FindHeaderForUpdate(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, lookupErr(err, "landed cost")
	}
	if header.Status == model.LandedCostApplied {
		return nil, apperr.Wrap(apperr.ErrInvalidState, "landed cost %s is already applied", header.ID)
	}
	return header, nil
}

// markStale drops allocations computed before a line change and sends the
// header back to draft.
func (s *landedCostService) markStale(ctx context.Context, header *model.LandedCostHeader) error {
	header.TotalValue = header.MerchandiseValue.Add(header.TotalLandedCosts)
	if header.Status == model.LandedCostCalculated {
		if err := s.landedRepo.DeleteAllocations(ctx, header.ID); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
		header.Status = model.LandedCostDraft
		header.CalculatedAt = nil
	}
	if err := s.landedRepo.UpdateHeader(ctx, header); err != nil {
		return fmt.Errorf("failed to update landed cost header: %w", err)
	}
	return nil
}

func (s *landedCostService) Calculate(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error) {
	id, err := parseID(headerID, "landed cost id")
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		release, err := s.locker.TryLock(txCtx, headerLockKey(id))
		if err != nil {
			return err
		}
		defer release()

		header, err := s.landedRepo.FindHeaderForUpdate(txCtx, actor.OrganizationID, id)
		if err != nil {
			return lookupErr(err, "landed cost")
		}
		if header.Status == model.LandedCostApplied {
			return apperr.Wrap(apperr.ErrInvalidState, "landed cost %s is already applied", header.ID)
		}

		order, err := s.orderRepo.FindPurchaseOrder(txCtx, actor.OrganizationID, header.PurchaseOrderID)
		if err != nil {
			return lookupErr(err, "purchase order")
		}
		costLines, err := s.landedRepo.ListLines(txCtx, header.ID)
		if err != nil {
			return fmt.Errorf("failed to load landed cost lines: %w", err)
		}

		lines := purchaseLines(order.Lines)
		costs := make([]landedcost.CostLine, len(costLines))
		for i, c := range costLines {
			costs[i] = landedcost.CostLine{ID: c.ID, Amount: c.Amount, Method: c.AllocationMethod}
		}
		allocs, err := landedcost.Allocate(costs, lines)
		if err != nil {
			return err
		}

		if err := s.landedRepo.DeleteAllocations(txCtx, header.ID); err != nil {
			return fmt.Errorf("failed to clear allocations: %w", err)
		}
		rows := make([]model.LandedCostAllocation, len(allocs))
		for i, a := range allocs {
			rows[i] = model.LandedCostAllocation{
				HeaderID:         header.ID,
				CostLineID:       a.CostLineID,
				PurchaseLineID:   a.PurchaseLineID,
				ProductID:        a.ProductID,
				Quantity:         a.Quantity,
				OriginalUnitCost: a.OriginalUnitCost,
				AllocationRatio:  a.Ratio.Round(8),
				AllocatedAmount:  a.AllocatedAmount,
				AllocatedPerUnit: a.AllocatedPerUnit,
				NewUnitCost:      a.NewUnitCost,
			}
		}
		if err := s.landedRepo.CreateAllocations(txCtx, rows); err != nil {
			return fmt.Errorf("failed to save allocations: %w", err)
		}

		totals := landedcost.ComputeTotals(costs, lines)
		now := s.now().UTC()
		header.MerchandiseValue = totals.MerchandiseValue
		header.TotalLandedCosts = totals.TotalLandedCosts
		header.TotalValue = totals.TotalValue
		header.Status = model.LandedCostCalculated
		header.CalculatedAt = &now
		if err := s.landedRepo.UpdateHeader(txCtx, header); err != nil {
			return fmt.Errorf("failed to update landed cost header: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCalculateLandedCost, header.ID.String(), header.ShipmentReference, map[string]any{
			"merchandise_value":  totals.MerchandiseValue,
			"total_landed_costs": totals.TotalLandedCosts,
			"allocations":        len(rows),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetHeader(ctx, actor, headerID)
}

// Apply overwrites every product's purchase cost with its landed unit cost
// from the stored allocations. The header must be calculated; nothing is
// written otherwise.
func (s *landedCostService) Apply(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error) {
	id, err := parseID(headerID, "landed cost id")
	if err != nil {
		return nil, err
	}

	var changes []model.ProductCostChange
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		release, err := s.locker.TryLock(txCtx, headerLockKey(id))
		if err != nil {
			return err
		}
		defer release()

		header, err := s.landedRepo.FindHeaderForUpdate(txCtx, actor.OrganizationID, id)
		if err != nil {
			return lookupErr(err, "landed cost")
		}
		if header.Status != model.LandedCostCalculated {
			return apperr.Wrap(apperr.ErrInvalidState, "landed cost %s is %s, calculate it before applying", header.ID, header.Status)
		}

		rows, err := s.landedRepo.ListAllocations(txCtx, header.ID)
		if err != nil {
			return fmt.Errorf("failed to load allocations: %w", err)
		}
		allocs, lines := fromAllocationRows(rows)
		costs := landedcost.ProductUnitCosts(allocs, lines)

		productIDs := make([]uuid.UUID, 0, len(costs))
		for pid := range costs {
			productIDs = append(productIDs, pid)
		}
		// fixed lock order across concurrent applies
		sort.Slice(productIDs, func(i, j int) bool {
			return bytes.Compare(productIDs[i][:], productIDs[j][:]) < 0
		})

		for _, pid := range productIDs {
			product, err := s.productRepo.FindByIDForUpdate(txCtx, actor.OrganizationID, pid)
			if err != nil {
				return lookupErr(err, "product")
			}
			change := model.ProductCostChange{
				OrganizationID:     actor.OrganizationID,
				ProductID:          pid,
				LandedCostHeaderID: header.ID,
				PreviousCost:       product.PurchaseCost,
				NewCost:            costs[pid],
				ChangedBy:          actor.UserID,
			}
			if err := s.productRepo.UpdatePurchaseCost(txCtx, pid, change.NewCost); err != nil {
				return fmt.Errorf("failed to update purchase cost of %s: %w", product.Code, err)
			}
			if err := s.changeRepo.Create(txCtx, &change); err != nil {
				return fmt.Errorf("failed to record cost change: %w", err)
			}
			changes = append(changes, change)
		}

		now := s.now().UTC()
		header.Status = model.LandedCostApplied
		header.AppliedBy = actor.UserID
		header.AppliedAt = &now
		if err := s.landedRepo.UpdateHeader(txCtx, header); err != nil {
			return fmt.Errorf("failed to update landed cost header: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionApplyLandedCost, header.ID.String(), header.ShipmentReference, changes)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("landed cost: %s applied, %d product costs updated", id, len(changes))
	detail, err := s.GetHeader(ctx, actor, headerID)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(actor.OrganizationID, EventLandedCostApplied, detail)
	return detail, nil
}

func (s *landedCostService) GetHeader(ctx context.Context, actor Actor, headerID string) (*LandedCostDetail, error) {
	id, err := parseID(headerID, "landed cost id")
	if err != nil {
		return nil, err
	}
	header, err := s.landedRepo.FindHeaderByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, lookupErr(err, "landed cost")
	}
	changes, err := s.changeRepo.ListByHeader(ctx, header.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cost changes: %w", err)
	}
	if changes == nil {
		changes = []model.ProductCostChange{}
	}
	return &LandedCostDetail{LandedCostHeader: header, CostChanges: changes}, nil
}

func (s *landedCostService) ListHeaders(ctx context.Context, actor Actor, status string, page, limit int) ([]model.LandedCostHeader, int64, error) {
	page, limit = normalizePage(page, limit)
	headers, total, err := s.landedRepo.ListHeaders(ctx, actor.OrganizationID, model.LandedCostStatus(status), page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list landed costs: %w", err)
	}
	return headers, total, nil
}

func purchaseLines(lines []model.OrderLine) []landedcost.PurchaseLine {
	out := make([]landedcost.PurchaseLine, len(lines))
	for i, l := range lines {
		out[i] = landedcost.PurchaseLine{ID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost}
	}
	return out
}

// fromAllocationRows rebuilds the allocation inputs from what Calculate stored,
// so Apply commits exactly the figures that were reviewed.
func fromAllocationRows(rows []model.LandedCostAllocation) ([]landedcost.Allocation, []landedcost.PurchaseLine) {
	allocs := make([]landedcost.Allocation, len(rows))
	seen := make(map[uuid.UUID]bool)
	var lines []landedcost.PurchaseLine
	for i, r := range rows {
		allocs[i] = landedcost.Allocation{
			CostLineID:       r.CostLineID,
			PurchaseLineID:   r.PurchaseLineID,
			ProductID:        r.ProductID,
			Quantity:         r.Quantity,
			OriginalUnitCost: r.OriginalUnitCost,
			Ratio:            r.AllocationRatio,
			AllocatedAmount:  r.AllocatedAmount,
			AllocatedPerUnit: r.AllocatedPerUnit,
			NewUnitCost:      r.NewUnitCost,
		}
		if !seen[r.PurchaseLineID] {
			seen[r.PurchaseLineID] = true
			lines = append(lines, landedcost.PurchaseLine{
				ID:        r.PurchaseLineID,
				ProductID: r.ProductID,
				Quantity:  r.Quantity,
				UnitCost:  r.OriginalUnitCost,
			})
		}
	}
	return allocs, lines
}
