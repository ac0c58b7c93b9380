package service

import (
	"context"
	"strings"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// CatalogQuery holds the optional catalog filters bound from the query string.
type CatalogQuery struct {
	Search    string `form:"search"`
	Price     string `form:"precio"`
	CompanyID string `form:"empresaId"`
}

type CompanyOption struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"nombre"`
}

// CatalogService reads the products customers can request. Every call is a
// fresh snapshot, and expiry flags are computed against the current clock.
type CatalogService interface {
	ListAvailable(ctx context.Context, q CatalogQuery) ([]ProductResponse, error)
	ListCompanies(ctx context.Context) ([]CompanyOption, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	accountRepo repository.AccountRepository
	windowDays  int
	now         func() time.Time
}

func NewCatalogService(productRepo repository.ProductRepository, accountRepo repository.AccountRepository, windowDays int) CatalogService {
	if windowDays < 0 {
		windowDays = model.DefaultExpiringWindowDays
	}
	return &catalogService{
		productRepo: productRepo,
		accountRepo: accountRepo,
		windowDays:  windowDays,
		now:         time.Now,
	}
}

func (q CatalogQuery) filter() (repository.CatalogFilter, error) {
	filter := repository.CatalogFilter{Search: strings.TrimSpace(q.Search)}

	switch q.Price {
	case repository.PriceAny, repository.PriceFree, repository.PricePriced:
		filter.PriceBucket = q.Price
	default:
		return filter, apperror.Validation("precio must be free or priced")
	}

	if q.CompanyID != "" {
		id, err := parseID(q.CompanyID, "empresaId")
		if err != nil {
			return filter, err
		}
		filter.CompanyID = &id
	}
	return filter, nil
}

func (s *catalogService) ListAvailable(ctx context.Context, q CatalogQuery) ([]ProductResponse, error) {
	filter, err := q.filter()
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.ListAvailable(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return lo.Map(products, func(p model.Product, _ int) ProductResponse {
		return toProductResponse(&p, now, s.windowDays)
	}), nil
}

func (s *catalogService) ListCompanies(ctx context.Context) ([]CompanyOption, error) {
	companies, err := s.accountRepo.ListActiveCompanies(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(companies, func(a model.Account, _ int) CompanyOption {
		return CompanyOption{ID: a.ID, Name: a.Name}
	}), nil
}
