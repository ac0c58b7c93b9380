package repository

import (
	"context"

	"ecofood/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return mapError(GetDB(ctx, r.db).Create(movement).Error, "stock movement")
}

func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := GetDB(ctx, r.db).Where("product_id = ?", productID).Order("created_at desc").Find(&movements).Error
	return movements, mapError(err, "stock movement")
}
