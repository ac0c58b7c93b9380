package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"
	ws "ecofood/internal/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// memStore backs the fake repositories. txMu serializes transactions the way
// row locks serialize them in PostgreSQL; mu guards the maps.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts  map[uuid.UUID]model.Account
	products  map[uuid.UUID]model.Product
	requests  map[uuid.UUID]model.ProductRequest
	audits    []model.AuditLog
	movements []model.StockMovement
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]model.Account{},
		products: map[uuid.UUID]model.Product{},
		requests: map[uuid.UUID]model.ProductRequest{},
	}
}

type snapshot struct {
	accounts  map[uuid.UUID]model.Account
	products  map[uuid.UUID]model.Product
	requests  map[uuid.UUID]model.ProductRequest
	audits    []model.AuditLog
	movements []model.StockMovement
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		accounts:  map[uuid.UUID]model.Account{},
		products:  map[uuid.UUID]model.Product{},
		requests:  map[uuid.UUID]model.ProductRequest{},
		audits:    append([]model.AuditLog(nil), s.audits...),
		movements: append([]model.StockMovement(nil), s.movements...),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts, s.products, s.requests = snap.accounts, snap.products, snap.requests
	s.audits, s.movements = snap.audits, snap.movements
}

type fakeTx struct{ store *memStore }

func (f fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	f.store.txMu.Lock()
	defer f.store.txMu.Unlock()
	snap := f.store.snapshot()
	if err := fn(ctx); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

// accounts

type fakeAccountRepo struct{ store *memStore }

func (r fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.accounts {
		if existing.Email == a.Email {
			return apperror.Conflict("account already exists")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	r.store.accounts[a.ID] = *a
	return nil
}

func (r fakeAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account")
	}
	return &a, nil
}

func (r fakeAccountRepo) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.accounts {
		if a.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &a, nil
		}
	}
	return nil, apperror.NotFound("account")
}

func (r fakeAccountRepo) FindPrincipal(_ context.Context) (*model.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.accounts {
		if a.IsProtected() {
			return &a, nil
		}
	}
	return nil, apperror.NotFound("principal admin")
}

func (r fakeAccountRepo) List(_ context.Context, f repository.AccountFilter) ([]model.Account, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Account
	for _, a := range r.store.accounts {
		if (f.Role == "" || a.Role == f.Role) && (f.Status == "" || a.Status == f.Status) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (r fakeAccountRepo) ListActiveCompanies(_ context.Context) ([]model.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Account
	for _, a := range r.store.accounts {
		if a.Role == model.RoleCompany && a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeAccountRepo) Update(_ context.Context, a *model.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.accounts[a.ID] = *a
	return nil
}

func (r fakeAccountRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[id]; !ok {
		return apperror.NotFound("account")
	}
	delete(r.store.accounts, id)
	return nil
}

// products

type fakeProductRepo struct{ store *memStore }

func (r fakeProductRepo) withCompany(p model.Product) *model.Product {
	if c, ok := r.store.accounts[p.CompanyID]; ok {
		p.Company = &c
	}
	return &p
}

func (r fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	r.store.products[p.ID] = *p
	return nil
}

func (r fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *p
	stored.Company = nil
	r.store.products[p.ID] = stored
	return nil
}

func (r fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.products[id]; !ok {
		return apperror.NotFound("product")
	}
	delete(r.store.products, id)
	return nil
}

func (r fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, apperror.NotFound("product")
	}
	return r.withCompany(p), nil
}

func (r fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r fakeProductRepo) ListAvailable(_ context.Context, f repository.CatalogFilter) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		if p.Quantity <= 0 {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.PriceBucket == repository.PriceFree && !p.Price.IsZero() {
			continue
		}
		if f.PriceBucket == repository.PricePriced && !p.Price.IsPositive() {
			continue
		}
		if f.CompanyID != nil && p.CompanyID != *f.CompanyID {
			continue
		}
		out = append(out, *r.withCompany(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresOn.Before(out[j].ExpiresOn) })
	return out, nil
}

func (r fakeProductRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakeProductRepo) List(_ context.Context, _, _ int, _ string) ([]model.Product, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r fakeProductRepo) DecrementStock(_ context.Context, id uuid.UUID, qty int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return 0, apperror.NotFound("product")
	}
	if p.Quantity < qty {
		return 0, apperror.Conflict("insufficient stock")
	}
	p.Quantity -= qty
	r.store.products[id] = p
	return p.Quantity, nil
}

// requests

type fakeRequestRepo struct {
	store *memStore
	now   func() time.Time
}

func (r fakeRequestRepo) Create(_ context.Context, req *model.ProductRequest) error {
	if err := req.PrepareForInsert(r.now()); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	r.store.requests[req.ID] = *req
	return nil
}

func (r fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return nil, apperror.NotFound("request")
	}
	return &req, nil
}

func (r fakeRequestRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	return r.FindByID(ctx, id)
}

func (r fakeRequestRepo) list(match func(model.ProductRequest) bool, status string) []model.ProductRequest {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.ProductRequest
	for _, req := range r.store.requests {
		if match(req) && (status == "" || req.Status == status) {
			out = append(out, req)
		}
	}
	repository.SortNewestFirst(out)
	return out
}

func (r fakeRequestRepo) ListByCustomer(_ context.Context, id uuid.UUID, status string) ([]model.ProductRequest, error) {
	return r.list(func(req model.ProductRequest) bool { return req.CustomerID == id }, status), nil
}

func (r fakeRequestRepo) ListByCompany(_ context.Context, id uuid.UUID, status string) ([]model.ProductRequest, error) {
	return r.list(func(req model.ProductRequest) bool { return req.CompanyID == id }, status), nil
}

func (r fakeRequestRepo) SetStatus(_ context.Context, id uuid.UUID, change model.StatusChange) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[id]
	if !ok {
		return apperror.NotFound("request")
	}
	if req.Status != model.RequestPending {
		return apperror.InvalidState("request is already " + req.Status)
	}
	applyChange(&req, change)
	r.store.requests[id] = req
	return nil
}

func (r fakeRequestRepo) CountByStatus(_ context.Context, column string, actorID uuid.UUID) ([]model.StatusCount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	counts := map[string]int64{}
	for _, req := range r.store.requests {
		owner := req.CustomerID
		if column == repository.ColumnCompany {
			owner = req.CompanyID
		}
		if owner == actorID {
			counts[req.Status]++
		}
	}
	var out []model.StatusCount
	for status, n := range counts {
		out = append(out, model.StatusCount{Status: status, Count: n})
	}
	return out, nil
}

// audit and stock movements

type fakeAuditRepo struct{ store *memStore }

func (r fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.AuditLog
	for _, l := range r.store.audits {
		if action == "" || l.Action == action {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

type fakeMovementRepo struct{ store *memStore }

func (r fakeMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m.ID = uuid.New()
	r.store.movements = append(r.store.movements, *m)
	return nil
}

func (r fakeMovementRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.store.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(evt ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name)
	}
	return names
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
