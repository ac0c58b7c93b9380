package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants
const (
	RoleAdmin    = "admin"
	RoleCompany  = "company"
	RoleCustomer = "customer"
)

// AccountStatus enum constants
const (
	AccountActive   = "activo"
	AccountInactive = "inactivo"
)

// Account is a registered admin, company or customer identity.
// Role-specific columns stay empty for roles that do not use them.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"nombre"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;index" json:"tipo"` // admin, company, customer
	Status    string    `gorm:"type:varchar(20);not null;default:'activo';index" json:"estado"`
	Principal bool      `gorm:"default:false" json:"principal"` // only meaningful for admins

	// Company fields
	TaxID string `gorm:"type:varchar(40)" json:"rut,omitempty"`

	// Shared by companies and customers
	Address string `gorm:"type:varchar(255)" json:"direccion,omitempty"`
	Phone   string `gorm:"type:varchar(30)" json:"telefono,omitempty"`

	// Customer fields
	Commune string `gorm:"type:varchar(100)" json:"comuna,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsProtected reports whether the account is the principal admin, which no
// client operation may edit, deactivate or delete.
func (a *Account) IsProtected() bool {
	return a.Role == RoleAdmin && a.Principal
}

func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCompany || role == RoleCustomer
}
