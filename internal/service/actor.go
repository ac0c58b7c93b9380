package service

import (
	"context"
	"errors"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/google/uuid"
)

// Actor is the authenticated account performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

func (a Actor) IsCompany() bool {
	return a.Role == model.RoleCompany
}

func (a Actor) IsCustomer() bool {
	return a.Role == model.RoleCustomer
}

// CanManage reports whether the actor may act on a resource owned by companyID.
func (a Actor) CanManage(companyID uuid.UUID) bool {
	return a.IsAdmin() || (a.IsCompany() && a.ID == companyID)
}

func (a Actor) auditID() *uuid.UUID {
	if a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("admin role required")
	}
	return nil
}

// requireActive reloads the actor's account. Tokens outlive deactivation, so
// operations that change stock or catalog data check the stored status.
func requireActive(ctx context.Context, accounts repository.AccountRepository, actor Actor) error {
	account, err := accounts.FindByID(ctx, actor.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Forbidden("account no longer exists")
	}
	if err != nil {
		return err
	}
	if !account.IsActive() {
		return apperror.Forbidden("account is inactive")
	}
	return nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validationf("invalid %s", field)
	}
	return id, nil
}
