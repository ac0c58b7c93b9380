package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionRegisterAccount     = "REGISTER_ACCOUNT"
	ActionCreateAccount       = "CREATE_ACCOUNT"
	ActionUpdateAccount       = "UPDATE_ACCOUNT"
	ActionChangeAccountStatus = "CHANGE_ACCOUNT_STATUS"
	ActionDeleteAccount       = "DELETE_ACCOUNT"
	ActionCreateProduct       = "CREATE_PRODUCT"
	ActionUpdateProduct       = "UPDATE_PRODUCT"
	ActionDeleteProduct       = "DELETE_PRODUCT"

	// Request lifecycle actions
	ActionCreateRequest  = "CREATE_REQUEST"
	ActionApproveRequest = "APPROVE_REQUEST"
	ActionRejectRequest  = "REJECT_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID  *uuid.UUID `gorm:"type:uuid;index" json:"account_id"` // Nullable for bootstrap actions
	Account    *Account   `gorm:"foreignKey:AccountID" json:"account"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
