package repository

import (
	"context"
	"strings"

	"ecofood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountFilter narrows account listings. Empty fields are ignored.
type AccountFilter struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

// AccountRepository defines the interface for data access of Account entities
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindPrincipal(ctx context.Context) (*model.Account, error)
	List(ctx context.Context, filter AccountFilter) ([]model.Account, int64, error)
	ListActiveCompanies(ctx context.Context) ([]model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new instance of AccountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	account.Email = normalizeEmail(account.Email)
	return mapError(GetDB(ctx, r.db).Create(account).Error, "account")
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).First(&account, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).First(&account, "email = ?", normalizeEmail(email)).Error; err != nil {
		return nil, mapError(err, "account")
	}
	return &account, nil
}

func (r *accountRepository) FindPrincipal(ctx context.Context) (*model.Account, error) {
	var account model.Account
	if err := GetDB(ctx, r.db).Where("role = ? AND principal = ?", model.RoleAdmin, true).
		First(&account).Error; err != nil {
		return nil, mapError(err, "principal admin")
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]model.Account, int64, error) {
	var accounts []model.Account
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Account{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := containsPattern(filter.Search)
		query = query.Where("name ILIKE ? OR email ILIKE ?", like, like)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "account")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&accounts).Error; err != nil {
		return nil, 0, mapError(err, "account")
	}

	return accounts, total, nil
}

func (r *accountRepository) ListActiveCompanies(ctx context.Context) ([]model.Account, error) {
	var companies []model.Account
	err := GetDB(ctx, r.db).
		Where("role = ? AND status = ?", model.RoleCompany, model.AccountActive).
		Order("name asc").
		Find(&companies).Error
	return companies, mapError(err, "company")
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	account.Email = normalizeEmail(account.Email)
	return mapError(GetDB(ctx, r.db).Save(account).Error, "account")
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Account{})
	if res.Error != nil {
		return mapError(res.Error, "account")
	}
	if res.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound, "account")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
