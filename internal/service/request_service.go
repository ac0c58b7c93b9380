package service

import (
	"context"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/metrics"
	"ecofood/internal/model"
	"ecofood/internal/repository"
	ws "ecofood/internal/websocket"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	unknownCompanyName  = "Empresa desconocida"
	unknownCustomerName = "Cliente"
)

type SubmitRequestInput struct {
	ProductID string `json:"productoId" binding:"required"`
	Quantity  int    `json:"cantidad" binding:"required"`
}

type RejectRequestInput struct {
	Reason string `json:"motivo"`
}

// RequestService drives product requests through pendiente -> aprobada | rechazada.
type RequestService interface {
	Submit(ctx context.Context, actor Actor, in SubmitRequestInput) (*model.ProductRequest, error)
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProductRequest, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.ProductRequest, error)
	ListMine(ctx context.Context, actor Actor, status string) ([]model.ProductRequest, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProductRequest, error)
}

type requestService struct {
	requestRepo  repository.RequestRepository
	productRepo  repository.ProductRepository
	accountRepo  repository.AccountRepository
	movementRepo repository.StockMovementRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewRequestService(
	requestRepo repository.RequestRepository,
	productRepo repository.ProductRepository,
	accountRepo repository.AccountRepository,
	movementRepo repository.StockMovementRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	log logrus.FieldLogger,
) RequestService {
	return &requestService{
		requestRepo:  requestRepo,
		productRepo:  productRepo,
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       publisherOrNoop(events),
		log:          log.WithField("component", "requests"),
		now:          time.Now,
	}
}

func (s *requestService) Submit(ctx context.Context, actor Actor, in SubmitRequestInput) (*model.ProductRequest, error) {
	req, err := s.submit(ctx, actor, in)
	recordOutcome("submit", err)
	return req, err
}

func (s *requestService) submit(ctx context.Context, actor Actor, in SubmitRequestInput) (*model.ProductRequest, error) {
	if !actor.IsCustomer() {
		return nil, apperror.Forbidden("only customers can request products")
	}
	productID, err := parseID(in.ProductID, "productoId")
	if err != nil {
		return nil, err
	}

	customer, err := s.accountRepo.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive() {
		return nil, apperror.Forbidden("account is inactive")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	req := &model.ProductRequest{
		CustomerID:        customer.ID,
		ProductID:         product.ID,
		CompanyID:         product.CompanyID,
		Quantity:          in.Quantity,
		AvailableSnapshot: product.Quantity,
		UnitPrice:         product.Price,
		ProductName:       product.Name,
		CompanyName:       unknownCompanyName,
		CustomerName:      customer.Name,
		CustomerEmail:     customer.Email,
	}
	if product.Company != nil && product.Company.Name != "" {
		req.CompanyName = product.Company.Name
	}
	if req.CustomerName == "" {
		req.CustomerName = unknownCustomerName
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, req); err != nil {
			return err
		}
		return s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionCreateRequest, req.ID.String(), req.ProductName, map[string]interface{}{
			"productoId": req.ProductID,
			"cantidad":   req.Quantity,
		}))
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"request_id": req.ID, "product_id": req.ProductID, "quantity": req.Quantity}).Info("request submitted")
	s.events.Publish(ws.Event{Name: EventRequestCreated, Data: req, Recipients: []uuid.UUID{req.CompanyID, req.CustomerID}})
	return req, nil
}

// Approve marks a pending request approved and takes its quantity out of the
// product's current stock, all in one transaction. When stock no longer covers
// the request nothing changes and the request stays pending.
func (s *requestService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProductRequest, error) {
	var (
		req       *model.ProductRequest
		remaining int
	)
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.lockForResolution(txCtx, actor, id)
		if err != nil {
			return err
		}

		change := model.StatusChange{Status: model.RequestApproved, At: s.now(), ResolvedBy: actor.auditID()}
		if err := s.requestRepo.SetStatus(txCtx, id, change); err != nil {
			return err
		}

		remaining, err = s.productRepo.DecrementStock(txCtx, req.ProductID, req.Quantity)
		if err != nil {
			return err
		}

		requestID := req.ID
		if err := s.movementRepo.Create(txCtx, &model.StockMovement{
			ProductID:       req.ProductID,
			RequestID:       &requestID,
			QuantityChanged: -req.Quantity,
			StockAfter:      remaining,
		}); err != nil {
			return err
		}

		if err := s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionApproveRequest, req.ID.String(), req.ProductName, map[string]interface{}{
			"cantidad":       req.Quantity,
			"stockRestante":  remaining,
			"fechaRespuesta": change.At,
			"clienteId":      req.CustomerID,
		})); err != nil {
			return err
		}

		applyChange(req, change)
		return nil
	})
	recordOutcome("approve", err)
	if err != nil {
		s.log.WithError(err).WithField("request_id", id).Info("approve refused")
		return nil, err
	}

	metrics.RecordStockDecrement(req.Quantity)
	s.log.WithFields(logrus.Fields{"request_id": req.ID, "product_id": req.ProductID, "stock_after": remaining}).Info("request approved")
	s.events.Publish(ws.Event{Name: EventRequestApproved, Data: req, Recipients: []uuid.UUID{req.CustomerID, req.CompanyID}})
	s.events.Publish(ws.Event{Name: EventProductStockChanged, Data: map[string]interface{}{
		"productoId": req.ProductID,
		"cantidad":   remaining,
	}})
	return req, nil
}

func (s *requestService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.ProductRequest, error) {
	var req *model.ProductRequest
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.lockForResolution(txCtx, actor, id)
		if err != nil {
			return err
		}

		change := model.StatusChange{Status: model.RequestRejected, At: s.now(), ResolvedBy: actor.auditID(), Reason: reason}
		if err := s.requestRepo.SetStatus(txCtx, id, change); err != nil {
			return err
		}
		if err := s.auditRepo.Log(txCtx, auditEntry(actor, model.ActionRejectRequest, req.ID.String(), req.ProductName, map[string]interface{}{
			"motivo":         reason,
			"fechaRespuesta": change.At,
		})); err != nil {
			return err
		}

		applyChange(req, change)
		return nil
	})
	recordOutcome("reject", err)
	if err != nil {
		return nil, err
	}

	s.log.WithField("request_id", req.ID).Info("request rejected")
	s.events.Publish(ws.Event{Name: EventRequestRejected, Data: req, Recipients: []uuid.UUID{req.CustomerID, req.CompanyID}})
	return req, nil
}

// lockForResolution loads the request row for update and checks it can still be
// resolved by actor.
func (s *requestService) lockForResolution(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProductRequest, error) {
	if err := requireActive(ctx, s.accountRepo, actor); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsTerminal() {
		return nil, apperror.InvalidState("request is already " + req.Status)
	}
	if !actor.CanManage(req.CompanyID) {
		return nil, apperror.Forbidden("request belongs to another company")
	}
	return req, nil
}

func applyChange(req *model.ProductRequest, change model.StatusChange) {
	at := change.At
	req.Status = change.Status
	req.RespondedAt = &at
	req.ResolvedBy = change.ResolvedBy
	req.RejectionReason = change.Reason
}

func (s *requestService) ListMine(ctx context.Context, actor Actor, status string) ([]model.ProductRequest, error) {
	if status != "" && status != model.RequestPending && status != model.RequestApproved && status != model.RequestRejected {
		return nil, apperror.Validationf("unknown estado %q", status)
	}
	switch {
	case actor.IsCustomer():
		return s.requestRepo.ListByCustomer(ctx, actor.ID, status)
	case actor.IsCompany():
		return s.requestRepo.ListByCompany(ctx, actor.ID, status)
	default:
		return nil, apperror.Forbidden("only customers and companies have request lists")
	}
}

func (s *requestService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProductRequest, error) {
	req, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || (actor.IsCustomer() && req.CustomerID == actor.ID) || (actor.IsCompany() && req.CompanyID == actor.ID) {
		return req, nil
	}
	return nil, apperror.Forbidden("request belongs to another account")
}

func recordOutcome(operation string, err error) {
	result := "ok"
	if err != nil {
		result = string(apperror.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	metrics.RecordTransition(operation, result)
}
