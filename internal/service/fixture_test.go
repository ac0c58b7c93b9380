package service

import (
	"context"
	"testing"
	"time"

	"ecofood/internal/auth"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memStore
	events *recordingPublisher
	clock  time.Time
	tokens *auth.TokenIssuer

	requests *requestService
	catalog  *catalogService
	products *productService
	stats    *statisticsService
	accounts *accountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  newMemStore(),
		events: &recordingPublisher{},
		clock:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		tokens: auth.NewTokenIssuer("test-secret", time.Hour),
	}
	now := func() time.Time { return f.clock }

	accountRepo := fakeAccountRepo{f.store}
	productRepo := fakeProductRepo{f.store}
	requestRepo := fakeRequestRepo{store: f.store, now: now}
	auditRepo := fakeAuditRepo{f.store}
	movementRepo := fakeMovementRepo{f.store}
	tx := fakeTx{f.store}
	log := quietLogger()

	f.requests = NewRequestService(requestRepo, productRepo, accountRepo, movementRepo, auditRepo, tx, f.events, log).(*requestService)
	f.requests.now = now
	f.catalog = NewCatalogService(productRepo, accountRepo, model.DefaultExpiringWindowDays).(*catalogService)
	f.catalog.now = now
	f.products = NewProductService(productRepo, accountRepo, movementRepo, auditRepo, tx, f.events, log, model.DefaultExpiringWindowDays).(*productService)
	f.products.now = now
	f.stats = NewStatisticsService(requestRepo, nil, model.DefaultExpiringWindowDays).(*statisticsService)
	f.accounts = NewAccountService(accountRepo, auditRepo, tx, f.tokens, log).(*accountService)
	f.accounts.hashCost = bcrypt.MinCost
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) account(role, name string) Actor {
	f.t.Helper()
	a := model.Account{
		ID:      uuid.New(),
		Name:    name,
		Email:   name + "@ecofood.cl",
		Role:    role,
		Status:  model.AccountActive,
		Address: "Av. Siempre Viva 742",
		Commune: "Santiago",
	}
	require.NoError(f.t, fakeAccountRepo{f.store}.Create(f.ctx, &a))
	return Actor{ID: a.ID, Role: role}
}

func (f *fixture) deactivate(actor Actor) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	a := f.store.accounts[actor.ID]
	a.Status = model.AccountInactive
	f.store.accounts[actor.ID] = a
}

func (f *fixture) product(company Actor, name string, qty int, price string, expiresIn time.Duration) model.Product {
	f.t.Helper()
	p := model.Product{
		CompanyID: company.ID,
		Name:      name,
		ExpiresOn: f.clock.Add(expiresIn),
		Quantity:  qty,
		Price:     decimal.RequireFromString(price),
		State:     model.StoredState(decimal.RequireFromString(price)),
	}
	require.NoError(f.t, fakeProductRepo{f.store}.Create(f.ctx, &p))
	return p
}

func (f *fixture) stock(id uuid.UUID) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.products[id].Quantity
}

func (f *fixture) storedRequest(id uuid.UUID) model.ProductRequest {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.requests[id]
}

func (f *fixture) submit(customer Actor, productID uuid.UUID, qty int) *model.ProductRequest {
	f.t.Helper()
	req, err := f.requests.Submit(f.ctx, customer, SubmitRequestInput{ProductID: productID.String(), Quantity: qty})
	require.NoError(f.t, err)
	return req
}

func (f *fixture) auditActions() []string {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	actions := make([]string, 0, len(f.store.audits))
	for _, a := range f.store.audits {
		actions = append(actions, a.Action)
	}
	return actions
}

func accountFilter(role string) repository.AccountFilter {
	return repository.AccountFilter{Role: role}
}
