package model

import (
	"time"

	"ecofood/internal/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request estado values
const (
	RequestPending  = "pendiente"
	RequestApproved = "aprobada"
	RequestRejected = "rechazada"
)

// ProductRequest is a customer's ask to acquire a quantity of a product.
// Display fields are snapshots taken at creation and are never re-joined.
type ProductRequest struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"clienteId"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"productoId"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"empresaId"`
	Quantity          int             `gorm:"type:int;not null" json:"cantidad"`
	AvailableSnapshot int             `gorm:"type:int;not null" json:"cantidadDisponible"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"precioUnitario"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"precioTotal"`
	Status            string          `gorm:"type:varchar(20);not null;default:'pendiente';index" json:"estado"`
	RequestedAt       time.Time       `gorm:"not null;index" json:"fechaSolicitud"`
	RespondedAt       *time.Time      `json:"fechaRespuesta"`
	ResolvedBy        *uuid.UUID      `gorm:"type:uuid" json:"resueltaPor,omitempty"`
	RejectionReason   string          `gorm:"type:text" json:"motivoRechazo,omitempty"`

	ProductName   string `gorm:"type:varchar(255)" json:"nombreProducto"`
	CompanyName   string `gorm:"type:varchar(255)" json:"nombreEmpresa"`
	CustomerName  string `gorm:"type:varchar(255)" json:"nombreCliente"`
	CustomerEmail string `gorm:"type:varchar(255)" json:"emailCliente"`
}

// IsTerminal reports whether the request was already approved or rejected.
func (r *ProductRequest) IsTerminal() bool {
	return r.Status == RequestApproved || r.Status == RequestRejected
}

// PrepareForInsert forces the initial state of a new request and validates the
// requested quantity against the snapshot of available stock.
func (r *ProductRequest) PrepareForInsert(now time.Time) error {
	if r.Quantity <= 0 {
		return apperror.Validation("quantity must be greater than 0")
	}
	if r.Quantity > r.AvailableSnapshot {
		return apperror.Validationf("requested quantity %d exceeds available stock %d", r.Quantity, r.AvailableSnapshot)
	}
	r.Status = RequestPending
	r.RequestedAt = now
	r.RespondedAt = nil
	r.ResolvedBy = nil
	r.RejectionReason = ""
	r.TotalPrice = r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
	return nil
}

// ValidTransition reports whether a request may move from one estado to another.
func ValidTransition(from, to string) bool {
	return from == RequestPending && (to == RequestApproved || to == RequestRejected)
}

// RequestCounts is the per-status breakdown of an actor's requests.
type RequestCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pendientes"`
	Approved int64 `json:"aprobadas"`
	Rejected int64 `json:"rechazadas"`
}

// Add accumulates n requests with the given estado.
func (c *RequestCounts) Add(status string, n int64) {
	c.Total += n
	switch status {
	case RequestPending:
		c.Pending += n
	case RequestApproved:
		c.Approved += n
	case RequestRejected:
		c.Rejected += n
	}
}

// StatusChange describes a terminal transition applied to a pending request.
type StatusChange struct {
	Status     string
	At         time.Time
	ResolvedBy *uuid.UUID
	Reason     string
}
