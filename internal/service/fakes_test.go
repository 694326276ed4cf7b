package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"supplychain/internal/inventory"
	"supplychain/internal/model"
	"supplychain/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// store is an in-memory stand-in for the database. fakeTx snapshots it on
// entry and restores it when the callback fails, which gives the fakes real
// rollback semantics.
type store struct {
	mu          sync.Mutex
	products    map[uuid.UUID]model.Product
	orders      map[uuid.UUID]model.Order
	partners    map[uuid.UUID]model.Partner
	policies    []model.ReorderPolicy
	runs        map[uuid.UUID]model.MRPRun
	reqs        []model.MRPRequirement
	headers     map[uuid.UUID]model.LandedCostHeader
	costLines   []model.LandedCostLine
	allocations []model.LandedCostAllocation
	changes     []model.ProductCostChange
	audits      []model.AuditLog

	failCreateRequirements error
	failUpdateRun          error
	failSnapshot           map[uuid.UUID]error
	// cancelOnSnapshot, when set, is called by the inventory reader before it
	// answers, like a caller whose deadline expires mid-run.
	cancelOnSnapshot context.CancelFunc
}

func newStore() *store {
	return &store{
		products:     map[uuid.UUID]model.Product{},
		orders:       map[uuid.UUID]model.Order{},
		partners:     map[uuid.UUID]model.Partner{},
		runs:         map[uuid.UUID]model.MRPRun{},
		headers:      map[uuid.UUID]model.LandedCostHeader{},
		failSnapshot: map[uuid.UUID]error{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *store) snapshot() *store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &store{
		products:    copyMap(s.products),
		orders:      copyMap(s.orders),
		partners:    copyMap(s.partners),
		policies:    append([]model.ReorderPolicy(nil), s.policies...),
		runs:        copyMap(s.runs),
		reqs:        append([]model.MRPRequirement(nil), s.reqs...),
		headers:     copyMap(s.headers),
		costLines:   append([]model.LandedCostLine(nil), s.costLines...),
		allocations: append([]model.LandedCostAllocation(nil), s.allocations...),
		changes:     append([]model.ProductCostChange(nil), s.changes...),
		audits:      append([]model.AuditLog(nil), s.audits...),
	}
}

func (s *store) restore(from *store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = from.products
	s.orders = from.orders
	s.partners = from.partners
	s.policies = from.policies
	s.runs = from.runs
	s.reqs = from.reqs
	s.headers = from.headers
	s.costLines = from.costLines
	s.allocations = from.allocations
	s.changes = from.changes
	s.audits = from.audits
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func paginate[T any](items []T, p, limit int) []T {
	start := (p - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// seeding helpers

func (s *store) addProduct(org uuid.UUID, code string, onHand, allocated, cost string) model.Product {
	p := model.Product{
		ID:             uuid.New(),
		OrganizationID: org,
		Code:           code,
		Name:           "Product " + code,
		CurrentStock:   decimal.RequireFromString(onHand),
		AllocatedStock: decimal.RequireFromString(allocated),
		PurchaseCost:   decimal.RequireFromString(cost),
	}
	s.products[p.ID] = p
	return p
}

func (s *store) addOrder(org uuid.UUID, orderType string, lines ...model.OrderLine) model.Order {
	o := model.Order{
		ID:             uuid.New(),
		OrganizationID: org,
		OrderCode:      orderType + "-" + uuid.NewString()[:8],
		Type:           orderType,
		Status:         model.OrderStatusOpen,
	}
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].OrderID = o.ID
	}
	o.Lines = lines
	s.orders[o.ID] = o
	return o
}

// fakeTx

type fakeTx struct{ st *store }

func (f fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	saved := f.st.snapshot()
	if err := fn(ctx); err != nil {
		f.st.restore(saved)
		return err
	}
	return nil
}

// products and inventory

type fakeProducts struct{ st *store }

func (f fakeProducts) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	p, ok := f.st.products[id]
	if !ok || p.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f fakeProducts) FindByIDForUpdate(ctx context.Context, orgID, id uuid.UUID) (*model.Product, error) {
	return f.FindByID(ctx, orgID, id)
}

func (f fakeProducts) UpdatePurchaseCost(_ context.Context, id uuid.UUID, cost decimal.Decimal) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	p := f.st.products[id]
	p.PurchaseCost = cost
	f.st.products[id] = p
	return nil
}

type fakeInventory struct {
	st    *store
	inner inventory.Reader
}

func newFakeInventory(st *store) fakeInventory {
	return fakeInventory{st: st, inner: repository.NewInventoryReader(fakeProducts{st})}
}

func (f fakeInventory) Snapshot(ctx context.Context, orgID, productID uuid.UUID) (inventory.Snapshot, error) {
	if f.st.cancelOnSnapshot != nil {
		f.st.cancelOnSnapshot()
		return inventory.Snapshot{}, ctx.Err()
	}
	if err := f.st.failSnapshot[productID]; err != nil {
		return inventory.Snapshot{}, err
	}
	return f.inner.Snapshot(ctx, orgID, productID)
}

// orders

type fakeOrders struct{ st *store }

func (f fakeOrders) FindOpenSalesLines(_ context.Context, orgID uuid.UUID, from, to time.Time) ([]model.OrderLine, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.OrderLine
	for _, o := range f.st.orders {
		if o.OrganizationID != orgID || o.Type != model.OrderTypeSales || o.Status != model.OrderStatusOpen {
			continue
		}
		for _, l := range o.Lines {
			if l.RequiredDate == nil || l.RequiredDate.Before(from) || l.RequiredDate.After(to) {
				continue
			}
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequiredDate.Before(*out[j].RequiredDate) })
	return out, nil
}

func (f fakeOrders) FindPurchaseOrder(_ context.Context, orgID, id uuid.UUID) (*model.Order, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	o, ok := f.st.orders[id]
	if !ok || o.OrganizationID != orgID || o.Type != model.OrderTypePurchase {
		return nil, gorm.ErrRecordNotFound
	}
	return &o, nil
}

// partners

type fakePartners struct{ st *store }

func (f fakePartners) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.Partner, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	p, ok := f.st.partners[id]
	if !ok || p.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

// policies

type fakePolicies struct{ st *store }

func (f fakePolicies) Create(_ context.Context, policy *model.ReorderPolicy) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&policy.ID)
	policy.CreatedAt = time.Now()
	f.st.policies = append(f.st.policies, *policy)
	return nil
}

func (f fakePolicies) FindByID(_ context.Context, orgID, id uuid.UUID) (*model.ReorderPolicy, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for _, p := range f.st.policies {
		if p.ID == id && p.OrganizationID == orgID {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakePolicies) FindActiveByProduct(_ context.Context, orgID, productID uuid.UUID) (*model.ReorderPolicy, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for i := len(f.st.policies) - 1; i >= 0; i-- {
		p := f.st.policies[i]
		if p.OrganizationID == orgID && p.ProductID == productID && p.IsActive {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakePolicies) ListActive(_ context.Context, orgID uuid.UUID) ([]model.ReorderPolicy, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.ReorderPolicy
	for _, p := range f.st.policies {
		if p.OrganizationID == orgID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakePolicies) List(_ context.Context, orgID uuid.UUID, filter repository.PolicyFilter, p, limit int) ([]model.ReorderPolicy, int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.ReorderPolicy
	for _, pol := range f.st.policies {
		if pol.OrganizationID != orgID {
			continue
		}
		if filter.ProductID != nil && pol.ProductID != *filter.ProductID {
			continue
		}
		if filter.ActiveOnly && !pol.IsActive {
			continue
		}
		out = append(out, pol)
	}
	return paginate(out, p, limit), int64(len(out)), nil
}

func (f fakePolicies) Deactivate(_ context.Context, id uuid.UUID) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for i := range f.st.policies {
		if f.st.policies[i].ID == id {
			f.st.policies[i].IsActive = false
		}
	}
	return nil
}

// mrp

type fakeMRP struct{ st *store }

func (f fakeMRP) CreateRun(_ context.Context, run *model.MRPRun) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&run.ID)
	f.st.runs[run.ID] = *run
	return nil
}

func (f fakeMRP) UpdateRun(ctx context.Context, run *model.MRPRun) error {
	// gorm refuses to run a statement on a done context
	if err := ctx.Err(); err != nil {
		return err
	}
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.failUpdateRun != nil {
		return f.st.failUpdateRun
	}
	f.st.runs[run.ID] = *run
	return nil
}

func (f fakeMRP) FindRunByID(_ context.Context, orgID, id uuid.UUID) (*model.MRPRun, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	r, ok := f.st.runs[id]
	if !ok || r.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f fakeMRP) ListRuns(_ context.Context, orgID uuid.UUID, p, limit int) ([]model.MRPRun, int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.MRPRun
	for _, r := range f.st.runs {
		if r.OrganizationID == orgID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.After(out[j].RunAt) })
	return paginate(out, p, limit), int64(len(out)), nil
}

func (f fakeMRP) CreateRequirements(_ context.Context, reqs []model.MRPRequirement) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	if f.st.failCreateRequirements != nil {
		return f.st.failCreateRequirements
	}
	for i := range reqs {
		newID(&reqs[i].ID)
		f.st.reqs = append(f.st.reqs, reqs[i])
	}
	return nil
}

func (f fakeMRP) requirements(runID uuid.UUID, filter repository.RequirementFilter) []model.MRPRequirement {
	var out []model.MRPRequirement
	for _, r := range f.st.reqs {
		if r.RunID != runID {
			continue
		}
		if filter.ProductID != nil && r.ProductID != *filter.ProductID {
			continue
		}
		if filter.Action != "" && r.SuggestedAction != filter.Action {
			continue
		}
		if filter.Source != "" && r.Source != filter.Source {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (f fakeMRP) ListRequirements(_ context.Context, runID uuid.UUID, filter repository.RequirementFilter, p, limit int) ([]model.MRPRequirement, int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	out := f.requirements(runID, filter)
	return paginate(out, p, limit), int64(len(out)), nil
}

func (f fakeMRP) AllRequirements(_ context.Context, runID uuid.UUID) ([]model.MRPRequirement, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	return f.requirements(runID, repository.RequirementFilter{}), nil
}

// landed cost

type fakeLanded struct{ st *store }

func (f fakeLanded) CreateHeader(_ context.Context, h *model.LandedCostHeader) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&h.ID)
	h.CreatedAt = time.Now()
	f.st.headers[h.ID] = *h
	return nil
}

func (f fakeLanded) UpdateHeader(_ context.Context, h *model.LandedCostHeader) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	stored := *h
	stored.Lines, stored.Allocations = nil, nil
	f.st.headers[h.ID] = stored
	return nil
}

func (f fakeLanded) FindHeaderByID(_ context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	h, ok := f.st.headers[id]
	if !ok || h.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	for _, l := range f.st.costLines {
		if l.HeaderID == id {
			h.Lines = append(h.Lines, l)
		}
	}
	for _, a := range f.st.allocations {
		if a.HeaderID == id {
			h.Allocations = append(h.Allocations, a)
		}
	}
	return &h, nil
}

func (f fakeLanded) FindHeaderForUpdate(_ context.Context, orgID, id uuid.UUID) (*model.LandedCostHeader, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	h, ok := f.st.headers[id]
	if !ok || h.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return &h, nil
}

func (f fakeLanded) ListHeaders(_ context.Context, orgID uuid.UUID, status model.LandedCostStatus, p, limit int) ([]model.LandedCostHeader, int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.LandedCostHeader
	for _, h := range f.st.headers {
		if h.OrganizationID == orgID && (status == "" || h.Status == status) {
			out = append(out, h)
		}
	}
	return paginate(out, p, limit), int64(len(out)), nil
}

func (f fakeLanded) CreateLine(_ context.Context, l *model.LandedCostLine) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&l.ID)
	f.st.costLines = append(f.st.costLines, *l)
	return nil
}

func (f fakeLanded) DeleteLine(_ context.Context, headerID, lineID uuid.UUID) (int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var kept []model.LandedCostLine
	var n int64
	for _, l := range f.st.costLines {
		if l.ID == lineID && l.HeaderID == headerID {
			n++
			continue
		}
		kept = append(kept, l)
	}
	f.st.costLines = kept
	return n, nil
}

func (f fakeLanded) ListLines(_ context.Context, headerID uuid.UUID) ([]model.LandedCostLine, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.LandedCostLine
	for _, l := range f.st.costLines {
		if l.HeaderID == headerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f fakeLanded) DeleteAllocations(_ context.Context, headerID uuid.UUID) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var kept []model.LandedCostAllocation
	for _, a := range f.st.allocations {
		if a.HeaderID != headerID {
			kept = append(kept, a)
		}
	}
	f.st.allocations = kept
	return nil
}

func (f fakeLanded) CreateAllocations(_ context.Context, allocations []model.LandedCostAllocation) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	for i := range allocations {
		newID(&allocations[i].ID)
		f.st.allocations = append(f.st.allocations, allocations[i])
	}
	return nil
}

func (f fakeLanded) ListAllocations(_ context.Context, headerID uuid.UUID) ([]model.LandedCostAllocation, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.LandedCostAllocation
	for _, a := range f.st.allocations {
		if a.HeaderID == headerID {
			out = append(out, a)
		}
	}
	return out, nil
}

// cost changes and audit

type fakeChanges struct{ st *store }

func (f fakeChanges) Create(_ context.Context, c *model.ProductCostChange) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&c.ID)
	f.st.changes = append(f.st.changes, *c)
	return nil
}

func (f fakeChanges) ListByHeader(_ context.Context, headerID uuid.UUID) ([]model.ProductCostChange, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.ProductCostChange
	for _, c := range f.st.changes {
		if c.LandedCostHeaderID == headerID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeAudit struct{ st *store }

func (f fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	newID(&entry.ID)
	entry.CreatedAt = time.Now()
	f.st.audits = append(f.st.audits, *entry)
	return nil
}

func (f fakeAudit) List(_ context.Context, orgID uuid.UUID, filter repository.AuditFilter, p, limit int) ([]model.AuditLog, int64, error) {
	f.st.mu.Lock()
	defer f.st.mu.Unlock()
	var out []model.AuditLog
	for i := len(f.st.audits) - 1; i >= 0; i-- {
		a := f.st.audits[i]
		if a.OrganizationID != orgID {
			continue
		}
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.EntityID != "" && a.EntityID != filter.EntityID {
			continue
		}
		out = append(out, a)
	}
	return paginate(out, p, limit), int64(len(out)), nil
}

func (s *store) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.audits))
	for i, a := range s.audits {
		out[i] = a.Action
	}
	return out
}

// publisher

type published struct {
	org   uuid.UUID
	event string
}

type fakeHub struct {
	mu     sync.Mutex
	events []published
}

func (h *fakeHub) Publish(orgID uuid.UUID, event string, _ any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, published{org: orgID, event: event})
}

func (h *fakeHub) names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.event
	}
	return out
}

var (
	_ repository.ProductRepository    = fakeProducts{}
	_ repository.OrderRepository      = fakeOrders{}
	_ repository.PartnerRepository    = fakePartners{}
	_ repository.PolicyRepository     = fakePolicies{}
	_ repository.MRPRepository        = fakeMRP{}
	_ repository.LandedCostRepository = fakeLanded{}
	_ repository.CostChangeRepository = fakeChanges{}
	_ repository.AuditRepository      = fakeAudit{}
	_ repository.TransactionManager   = fakeTx{}
	_ inventory.Reader                = fakeInventory{}
	_ Publisher                       = (*fakeHub)(nil)
)
