package service

import (
	"context"
	"strings"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"
	ws "ecofood/internal/websocket"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ProductInput is the payload for creating or editing a product.
// CompanyID is only honoured for admins creating on behalf of a company.
type ProductInput struct {
	Name        string          `json:"nombre" binding:"required"`
	Description string          `json:"descripcion" binding:"required"`
	ExpiresOn   string          `json:"vencimiento" binding:"required" example:"2025-03-31"`
	Quantity    int             `json:"cantidad" binding:"min=0"`
	Price       decimal.Decimal `json:"precio" swaggertype:"number"`
	CompanyID   string          `json:"empresaId,omitempty"`
}

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"empresaId"`
	CompanyName  string          `json:"nombreEmpresa,omitempty"`
	Name         string          `json:"nombre"`
	Description  string          `json:"descripcion"`
	ExpiresOn    string          `json:"vencimiento"`
	Quantity     int             `json:"cantidad"`
	Price        decimal.Decimal `json:"precio" swaggertype:"number"`
	State        string          `json:"estado"`
	Availability string          `json:"disponibilidad"`
	DaysLeft     int             `json:"diasRestantes"`
	CreatedAt    time.Time       `json:"fechaCreacion"`
}

func toProductResponse(p *model.Product, now time.Time, windowDays int) ProductResponse {
	res := ProductResponse{
		ID:           p.ID,
		CompanyID:    p.CompanyID,
		Name:         p.Name,
		Description:  p.Description,
		ExpiresOn:    p.ExpiresOn.Format(dateLayout),
		Quantity:     p.Quantity,
		Price:        p.Price,
		State:        p.State,
		Availability: p.DerivedStatus(now, windowDays),
		DaysLeft:     p.DaysUntilExpiry(now),
		CreatedAt:    p.CreatedAt,
	}
	if p.Company != nil {
		res.CompanyName = p.Company.Name
	}
	return res
}

type ProductService interface {
	Create(ctx context.Context, actor Actor, in ProductInput) (*ProductResponse, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in ProductInput) (*ProductResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	ListMine(ctx context.Context, actor Actor) ([]ProductResponse, error)
	ListAll(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	Movements(ctx context.Context, actor Actor, id uuid.UUID) ([]model.StockMovement, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	accountRepo  repository.AccountRepository
	movementRepo repository.StockMovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	log          logrus.FieldLogger
	windowDays   int
	now          func() time.Time
}

func NewProductService(
	productRepo repository.ProductRepository,
	accountRepo repository.AccountRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log logrus.FieldLogger,
	windowDays int,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log.WithField("component", "products"),
		windowDays:   windowDays,
		now:          time.Now,
	}
}

// apply validates the input and copies it onto product, recomputing the stored estado.
func (in ProductInput) apply(product *model.Product) error {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" {
		return apperror.Validation("nombre is required")
	}
	if description == "" {
		return apperror.Validation("descripcion is required")
	}
	expires, err := time.Parse(dateLayout, strings.TrimSpace(in.ExpiresOn))
	if err != nil {
		return apperror.Validation("vencimiento must be a date formatted YYYY-MM-DD")
	}
	if in.Quantity < 0 {
		return apperror.Validation("cantidad cannot be negative")
	}
	if in.Price.IsNegative() {
		return apperror.Validation("precio cannot be negative")
	}

	product.Name = name
	product.Description = description
	product.ExpiresOn = expires
	product.Quantity = in.Quantity
	product.Price = in.Price
	product.State = model.StoredState(in.Price)
	return nil
}

func (s *productService) Create(ctx context.Context, actor Actor, in ProductInput) (*ProductResponse, error) {
	if err := requireActive(ctx, s.accountRepo, actor); err != nil {
		return nil, err
	}
	companyID, err := s.owningCompany(ctx, actor, in.CompanyID)
	if err != nil {
		return nil, err
	}

	product := model.Product{CompanyID: companyID}
	if err := in.apply(&product); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreateProduct, product.ID.String(), product.Name, in))
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ws.Event{Name: EventCatalogChanged, Data: map[string]interface{}{"productoId": product.ID}})
	res := toProductResponse(&product, s.now(), s.windowDays)
	return &res, nil
}

// owningCompany resolves which company a new product belongs to.
func (s *productService) owningCompany(ctx context.Context, actor Actor, requested string) (uuid.UUID, error) {
	switch {
	case actor.IsCompany():
		return actor.ID, nil
	case actor.IsAdmin():
		companyID, err := parseID(requested, "empresaId")
		if err != nil {
			return uuid.Nil, err
		}
		company, err := s.accountRepo.FindByID(ctx, companyID)
		if err != nil {
			return uuid.Nil, err
		}
		if company.Role != model.RoleCompany {
			return uuid.Nil, apperror.Validation("empresaId must reference a company account")
		}
		return companyID, nil
	default:
		return uuid.Nil, apperror.Forbidden("only companies and admins manage products")
	}
}

func (s *productService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProductInput) (*ProductResponse, error) {
	var product *model.Product
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := requireActive(txCtx, s.accountRepo, actor); err != nil {
			return err
		}
		var err error
		product, err = s.productRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(product.CompanyID) {
			return apperror.Forbidden("product belongs to another company")
		}
		if err := in.apply(product); err != nil {
			return err
		}
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionUpdateProduct, product.ID.String(), product.Name, in))
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ws.Event{Name: EventCatalogChanged, Data: map[string]interface{}{"productoId": product.ID}})
	res := toProductResponse(product, s.now(), s.windowDays)
	return &res, nil
}

func (s *productService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := requireActive(txCtx, s.accountRepo, actor); err != nil {
			return err
		}
		product, err := s.productRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !actor.CanManage(product.CompanyID) {
			return apperror.Forbidden("product belongs to another company")
		}
		if err := s.productRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionDeleteProduct, id.String(), product.Name, map[string]bool{"deleted": true}))
	})
	if err != nil {
		return err
	}

	s.events.Publish(ws.Event{Name: EventCatalogChanged, Data: map[string]interface{}{"productoId": id}})
	return nil
}

func (s *productService) ListMine(ctx context.Context, actor Actor) ([]ProductResponse, error) {
	if !actor.IsCompany() {
		return nil, apperror.Forbidden("only companies own products")
	}
	products, err := s.productRepo.ListByCompany(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return lo.Map(products, func(p model.Product, _ int) ProductResponse {
		return toProductResponse(&p, now, s.windowDays)
	}), nil
}

func (s *productService) ListAll(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	page, limit = normalizePage(page, limit)
	products, total, err := s.productRepo.List(ctx, page, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	return lo.Map(products, func(p model.Product, _ int) ProductResponse {
		return toProductResponse(&p, now, s.windowDays)
	}), total, nil
}

func (s *productService) Movements(ctx context.Context, actor Actor, id uuid.UUID) ([]model.StockMovement, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(product.CompanyID) {
		return nil, apperror.Forbidden("product belongs to another company")
	}
	return s.movementRepo.ListByProduct(ctx, id)
}
