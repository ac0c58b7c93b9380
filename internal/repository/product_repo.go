package repository

import (
	"context"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Price buckets accepted by CatalogFilter.
const (
	PriceAny    = ""
	PriceFree   = "free"
	PricePriced = "priced"
)

// CatalogFilter narrows the catalog. Empty fields are ignored.
type CatalogFilter struct {
	Search      string
	PriceBucket string
	CompanyID   *uuid.UUID
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListAvailable(ctx context.Context, filter CatalogFilter) ([]model.Product, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Product, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	// DecrementStock subtracts qty only if enough stock remains and returns the new quantity.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error)
}

type productRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db, now: time.Now}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return mapError(GetDB(ctx, r.db).Create(product).Error, "product")
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return mapError(GetDB(ctx, r.db).Omit("Company").Save(product).Error, "product")
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return mapError(res.Error, "product")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("product")
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Company").First(&product, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "product")
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, mapError(err, "product")
	}
	return &product, nil
}

func (r *productRepository) ListAvailable(ctx context.Context, filter CatalogFilter) ([]model.Product, error) {
	var products []model.Product

	query := GetDB(ctx, r.db).Preload("Company").Where("quantity > 0")
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", containsPattern(filter.Search))
	}
	switch filter.PriceBucket {
	case PriceFree:
		query = query.Where("price = 0")
	case PricePriced:
		query = query.Where("price > 0")
	}
	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}

	if err := query.Order("expires_on asc").Find(&products).Error; err != nil {
		return nil, mapError(err, "product")
	}
	return products, nil
}

func (r *productRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := GetDB(ctx, r.db).Where("company_id = ?", companyID).Order("created_at desc").Find(&products).Error
	return products, mapError(err, "product")
}

func (r *productRepository) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if search != "" {
		db = db.Where("name ILIKE ?", containsPattern(search))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "product")
	}

	offset := (page - 1) * limit
	if err := db.Preload("Company").Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, mapError(err, "product")
	}

	return products, total, nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	db := GetDB(ctx, r.db)

	var updated model.Product
	res := db.Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "quantity"}}}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return 0, mapError(res.Error, "product")
	}
	if res.RowsAffected > 0 {
		return updated.Quantity, nil
	}

	var count int64
	if err := db.Model(&model.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return 0, mapError(err, "product")
	}
	if count == 0 {
		return 0, apperror.NotFound("product")
	}
	return 0, apperror.Conflict("insufficient stock")
}
