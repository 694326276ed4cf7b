package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"supplychain/internal/apperr"
	"supplychain/internal/eoq"
	"supplychain/internal/inventory"
	"supplychain/internal/model"
	"supplychain/internal/reorder"
	"supplychain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreatePolicyRequest struct {
	ProductID           string              `json:"product_id" binding:"required,uuid"`
	PolicyType          model.PolicyType    `json:"policy_type" binding:"required"`
	MinQuantity         decimal.Decimal     `json:"min_quantity"`
	MaxQuantity         decimal.Decimal     `json:"max_quantity"`
	ReorderPoint        decimal.NullDecimal `json:"reorder_point"`
	ReorderQuantity     decimal.Decimal     `json:"reorder_quantity"`
	SafetyStock         decimal.Decimal     `json:"safety_stock"`
	LeadTimeDays        int                 `json:"lead_time_days" binding:"min=0"`
	AnnualDemand        decimal.NullDecimal `json:"annual_demand"`
	HoldingCostPercent  decimal.NullDecimal `json:"holding_cost_percent"`
	OrderingCost        decimal.NullDecimal `json:"ordering_cost"`
	PreferredSupplierID string              `json:"preferred_supplier_id" binding:"omitempty,uuid"`
	AutoReorder         bool                `json:"auto_reorder"`
}

type ListPoliciesRequest struct {
	ProductID  string
	ActiveOnly bool
	Page       int
	Limit      int
}

type EOQRequest struct {
	AnnualDemand       decimal.Decimal `json:"annual_demand"`
	OrderingCost       decimal.Decimal `json:"ordering_cost"`
	HoldingCostPercent decimal.Decimal `json:"holding_cost_percent"`
	UnitCost           decimal.Decimal `json:"unit_cost"`

	// Quantity, when set, also prices an arbitrary order size on the same cost curve.
	Quantity decimal.NullDecimal `json:"quantity"`
}

type EOQResponse struct {
	eoq.Result
	QuantityTotalCost *decimal.Decimal `json:"quantity_total_cost,omitempty"`
}

// ScanResult is the outcome of evaluating every active policy of an organization.
type ScanResult struct {
	Suggestions []reorder.Suggestion `json:"suggestions"`
	Evaluated   int                  `json:"evaluated"`
	Unsupported int                  `json:"unsupported"`
	Failed      int                  `json:"failed"`
}

type ReorderService interface {
	ComputeEOQ(ctx context.Context, req EOQRequest) (EOQResponse, error)
	CreatePolicy(ctx context.Context, actor Actor, req CreatePolicyRequest) (*model.ReorderPolicy, error)
	ListPolicies(ctx context.Context, actor Actor, req ListPoliciesRequest) ([]model.ReorderPolicy, int64, error)
	GetPolicy(ctx context.Context, actor Actor, id string) (*model.ReorderPolicy, error)
	EvaluateReorder(ctx context.Context, actor Actor, productID string) (*reorder.Suggestion, error)
	ScanReorders(ctx context.Context, actor Actor) (ScanResult, error)
}

type reorderService struct {
	policyRepo  repository.PolicyRepository
	partnerRepo repository.PartnerRepository
	auditRepo   repository.AuditRepository
	inventory   inventory.Reader
	txManager   repository.TransactionManager
	locker      repository.Locker
	hub         Publisher
}

func NewReorderService(
	policyRepo repository.PolicyRepository,
	partnerRepo repository.PartnerRepository,
	auditRepo repository.AuditRepository,
	inv inventory.Reader,
	txManager repository.TransactionManager,
	locker repository.Locker,
	hub Publisher,
) ReorderService {
	return &reorderService{
		policyRepo:  policyRepo,
		partnerRepo: partnerRepo,
		auditRepo:   auditRepo,
		inventory:   inv,
		txManager:   txManager,
		locker:      locker,
		hub:         publisherOrNop(hub),
	}
}

func (s *reorderService) ComputeEOQ(_ context.Context, req EOQRequest) (EOQResponse, error) {
	params := eoq.Params{
		AnnualDemand:       req.AnnualDemand,
		OrderingCost:       req.OrderingCost,
		HoldingCostPercent: req.HoldingCostPercent,
		UnitCost:           req.UnitCost,
	}
	res, err := eoq.Compute(params)
	if err != nil {
		return EOQResponse{}, err
	}

	out := EOQResponse{Result: res}
	if req.Quantity.Valid {
		total, err := eoq.TotalAnnualCost(params, req.Quantity.Decimal)
		if err != nil {
			return EOQResponse{}, err
		}
		total = total.Round(2)
		out.QuantityTotalCost = &total
	}
	return out, nil
}

func (s *reorderService) CreatePolicy(ctx context.Context, actor Actor, req CreatePolicyRequest) (*model.ReorderPolicy, error) {
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		return nil, err
	}
	supplierID, err := parseOptionalID(req.PreferredSupplierID, "preferred_supplier_id")
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(req); err != nil {
		return nil, err
	}

	snap, err := s.inventory.Snapshot(ctx, actor.OrganizationID, productID)
	if err != nil {
		return nil, err
	}
	if supplierID != nil {
		supplier, err := s.partnerRepo.FindByID(ctx, actor.OrganizationID, *supplierID)
		if err != nil {
			return nil, lookupErr(err, "preferred supplier")
		}
		if !supplier.IsSupplier() {
			return nil, apperr.Wrap(apperr.ErrInvalidParameter, "partner %s is not a supplier", supplier.Name)
		}
	}

	policy := &model.ReorderPolicy{
		OrganizationID:      actor.OrganizationID,
		ProductID:           productID,
		PolicyType:          req.PolicyType,
		MinQuantity:         req.MinQuantity,
		MaxQuantity:         req.MaxQuantity,
		ReorderPoint:        req.ReorderPoint,
		ReorderQuantity:     req.ReorderQuantity,
		SafetyStock:         req.SafetyStock,
		LeadTimeDays:        req.LeadTimeDays,
		AnnualDemand:        req.AnnualDemand,
		HoldingCostPercent:  req.HoldingCostPercent,
		OrderingCost:        req.OrderingCost,
		PreferredSupplierID: supplierID,
		AutoReorder:         req.AutoReorder,
		IsActive:            true,
		CreatedBy:           actor.UserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Serializes replacements so a product keeps a single active policy.
		release, err := s.locker.TryLock(txCtx, policyLockKey(actor.OrganizationID, productID))
		if err != nil {
			return err
		}
		defer release()

		prev, err := s.policyRepo.FindActiveByProduct(txCtx, actor.OrganizationID, productID)
		switch {
		case err == nil:
			if err := s.policyRepo.Deactivate(txCtx, prev.ID); err != nil {
				return fmt.Errorf("failed to deactivate previous policy: %w", err)
			}
			if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionDeactivateReorderPolicy, prev.ID.String(), snap.Code,
				map[string]any{"replaced_by_type": req.PolicyType}); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load active policy: %w", err)
		}

		if err := s.policyRepo.Create(txCtx, policy); err != nil {
			return fmt.Errorf("failed to create reorder policy: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateReorderPolicy, policy.ID.String(), snap.Code, req)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(actor.OrganizationID, EventReorderPolicySaved, policy)
	return policy, nil
}

func policyLockKey(orgID, productID uuid.UUID) string {
	return "reorder_policy:" + orgID.String() + ":" + productID.String()
}

// validatePolicy rejects unknown types and negative figures. Fields the type
// does not use are stored as given.
func validatePolicy(req CreatePolicyRequest) error {
	if !req.PolicyType.Valid() {
		return apperr.Wrap(apperr.ErrInvalidParameter, "unknown policy type %q", req.PolicyType)
	}
	fields := map[string]decimal.Decimal{
		"min_quantity":     req.MinQuantity,
		"max_quantity":     req.MaxQuantity,
		"reorder_quantity": req.ReorderQuantity,
		"safety_stock":     req.SafetyStock,
	}
	for name, v := range map[string]decimal.NullDecimal{
		"reorder_point":        req.ReorderPoint,
		"annual_demand":        req.AnnualDemand,
		"holding_cost_percent": req.HoldingCostPercent,
		"ordering_cost":        req.OrderingCost,
	} {
		if v.Valid {
			fields[name] = v.Decimal
		}
	}
	for name, v := range fields {
		if v.IsNegative() {
			return apperr.Wrap(apperr.ErrInvalidParameter, "%s must not be negative", name)
		}
	}
	if req.LeadTimeDays < 0 {
		return apperr.Wrap(apperr.ErrInvalidParameter, "lead_time_days must not be negative")
	}
	return nil
}

func (s *reorderService) ListPolicies(ctx context.Context, actor Actor, req ListPoliciesRequest) ([]model.ReorderPolicy, int64, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	productID, err := parseOptionalID(req.ProductID, "product_id")
	if err != nil {
		return nil, 0, err
	}
	policies, total, err := s.policyRepo.List(ctx, actor.OrganizationID, repository.PolicyFilter{
		ProductID:  productID,
		ActiveOnly: req.ActiveOnly,
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reorder policies: %w", err)
	}
	return policies, total, nil
}

func (s *reorderService) GetPolicy(ctx context.Context, actor Actor, id string) (*model.ReorderPolicy, error) {
	policyID, err := parseID(id, "policy id")
	if err != nil {
		return nil, err
	}
	policy, err := s.policyRepo.FindByID(ctx, actor.OrganizationID, policyID)
	if err != nil {
		return nil, lookupErr(err, "reorder policy")
	}
	return policy, nil
}

// EvaluateReorder returns nil, nil when the product has no active policy, does
// not exist, or is not below its threshold.
func (s *reorderService) EvaluateReorder(ctx context.Context, actor Actor, productID string) (*reorder.Suggestion, error) {
	id, err := parseID(productID, "product id")
	if err != nil {
		return nil, err
	}

	policy, err := s.policyRepo.FindActiveByProduct(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load reorder policy: %w", err)
	}

	snap, err := s.inventory.Snapshot(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reorder.Evaluate(*policy, snap, snap.PurchaseCost)
}

func (s *reorderService) ScanReorders(ctx context.Context, actor Actor) (ScanResult, error) {
	policies, err := s.policyRepo.ListActive(ctx, actor.OrganizationID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to list active policies: %w", err)
	}

	res := ScanResult{Suggestions: []reorder.Suggestion{}}
	for _, p := range policies {
		snap, err := s.inventory.Snapshot(ctx, actor.OrganizationID, p.ProductID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return ScanResult{}, err
		}
		res.Evaluated++

		sug, err := reorder.Evaluate(p, snap, snap.PurchaseCost)
		switch {
		case errors.Is(err, apperr.ErrNotSupported):
			res.Unsupported++
		case err != nil:
			log.Printf("reorder scan: policy %s for product %s: %v", p.ID, snap.Code, err)
			res.Failed++
		case sug != nil:
			res.Suggestions = append(res.Suggestions, *sug)
		}
	}
	return res, nil
}
