package repository

import (
	"context"
	"time"

	"ecofood/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	// Overview counts accounts, products and requests across the whole marketplace.
	Overview(ctx context.Context, now time.Time, windowDays int) (*model.Overview, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

type accountCount struct {
	Role   string
	Status string
	Count  int64
}

type productCounts struct {
	Total        int64
	Depleted     int64
	ExpiringSoon int64
}

func (r *statisticsRepository) Overview(ctx context.Context, now time.Time, windowDays int) (*model.Overview, error) {
	db := GetDB(ctx, r.db)
	overview := &model.Overview{}

	var accounts []accountCount
	if err := db.Model(&model.Account{}).
		Select("role, status, COUNT(*) AS count").
		Group("role, status").
		Scan(&accounts).Error; err != nil {
		return nil, mapError(err, "account")
	}
	for _, row := range accounts {
		overview.TotalAccounts += row.Count
		switch {
		case row.Role == model.RoleAdmin:
			overview.Admins += row.Count
		case row.Role == model.RoleCompany && row.Status == model.AccountActive:
			overview.ActiveCompanies += row.Count
		case row.Role == model.RoleCustomer && row.Status == model.AccountActive:
			overview.ActiveCustomers += row.Count
		}
	}

	var products productCounts
	if err := db.Model(&model.Product{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE quantity = 0) AS depleted,
			COUNT(*) FILTER (WHERE quantity > 0 AND price > 0 AND expires_on >= ? AND expires_on <= ?) AS expiring_soon`,
			now, now.AddDate(0, 0, windowDays)).
		Scan(&products).Error; err != nil {
		return nil, mapError(err, "product")
	}
	overview.TotalProducts = products.Total
	overview.DepletedProducts = products.Depleted
	overview.ExpiringSoonProducts = products.ExpiringSoon

	var requests []model.StatusCount
	if err := db.Model(&model.ProductRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&requests).Error; err != nil {
		return nil, mapError(err, "request")
	}
	for _, row := range requests {
		overview.Requests.Add(row.Status, row.Count)
	}

	return overview, nil
}
