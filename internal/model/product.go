package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stored product estado values
const (
	ProductStateActive = "activo"
	ProductStateFree   = "gratuito"
)

// Derived product status, computed on every read
const (
	ProductAvailable    = "available"
	ProductDepleted     = "depleted"
	ProductFree         = "free"
	ProductExpiringSoon = "expiring-soon"
)

// DefaultExpiringWindowDays is how many days before expiry a product is flagged.
const DefaultExpiringWindowDays = 3

// Product is a catalog item offered by a company.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"empresaId"`
	Company     *Account        `gorm:"foreignKey:CompanyID" json:"-"`
	Name        string          `gorm:"type:varchar(255);not null" json:"nombre"`
	Description string          `gorm:"type:text" json:"descripcion"`
	ExpiresOn   time.Time       `gorm:"type:date;not null" json:"vencimiento"`
	Quantity    int             `gorm:"type:int;default:0;not null" json:"cantidad"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"precio"`
	State       string          `gorm:"type:varchar(20);not null;default:'activo'" json:"estado"`
	CreatedAt   time.Time       `json:"fechaCreacion"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// StoredState returns the estado value persisted for the given price.
func StoredState(price decimal.Decimal) string {
	if price.IsZero() {
		return ProductStateFree
	}
	return ProductStateActive
}

// IsFree reports whether the product is offered at no cost.
func (p *Product) IsFree() bool {
	return p.Price.IsZero()
}

// DaysUntilExpiry returns the number of days until expiry, rounded up.
// Negative values mean the product already expired.
func (p *Product) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(p.ExpiresOn.Sub(now).Hours() / 24))
}

// ExpiringSoon reports whether expiry falls within [0, windowDays] days from now.
func (p *Product) ExpiringSoon(now time.Time, windowDays int) bool {
	days := p.ExpiresOn.Sub(now).Hours() / 24
	return days >= 0 && days <= float64(windowDays)
}

// DerivedStatus computes the display status for now.
func (p *Product) DerivedStatus(now time.Time, windowDays int) string {
	switch {
	case p.Quantity <= 0:
		return ProductDepleted
	case p.IsFree():
		return ProductFree
	case p.ExpiringSoon(now, windowDays):
		return ProductExpiringSoon
	default:
		return ProductAvailable
	}
}

// StockMovement records every stock change applied by an approved request.
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	RequestID       *uuid.UUID `gorm:"type:uuid;index" json:"request_id"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `json:"created_at"`
}
