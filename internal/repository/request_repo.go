package repository

import (
	"context"
	"sort"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RequestRepository interface {
	// Create forces the pending state and stamps the request time before inserting.
	Create(ctx context.Context, req *model.ProductRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status string) ([]model.ProductRequest, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID, status string) ([]model.ProductRequest, error)
	// SetStatus moves a pending request to a terminal status. It never touches stock.
	SetStatus(ctx context.Context, id uuid.UUID, change model.StatusChange) error
	CountByStatus(ctx context.Context, column string, actorID uuid.UUID) ([]model.StatusCount, error)
}

// Columns that key request listings and counts.
const (
	ColumnCustomer = "customer_id"
	ColumnCompany  = "company_id"
)

type requestRepository struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewRequestRepository(db *gorm.DB, log logrus.FieldLogger) RequestRepository {
	return &requestRepository{db: db, log: log, now: time.Now}
}

func (r *requestRepository) Create(ctx context.Context, req *model.ProductRequest) error {
	if err := req.PrepareForInsert(r.now()); err != nil {
		return err
	}
	return mapError(GetDB(ctx, r.db).Create(req).Error, "request")
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	var req model.ProductRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "request")
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ProductRequest, error) {
	var req model.ProductRequest
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error; err != nil {
		return nil, mapError(err, "request")
	}
	return &req, nil
}

func (r *requestRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status string) ([]model.ProductRequest, error) {
	return r.listBy(ctx, ColumnCustomer, customerID, status)
}

func (r *requestRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, status string) ([]model.ProductRequest, error) {
	return r.listBy(ctx, ColumnCompany, companyID, status)
}

// listBy asks the database for requests newest first. If the ordered query
// fails, it logs a warning and sorts an unordered fetch in memory instead.
func (r *requestRepository) listBy(ctx context.Context, column string, id uuid.UUID, status string) ([]model.ProductRequest, error) {
	scoped := func() *gorm.DB {
		query := GetDB(ctx, r.db).Where(column+" = ?", id)
		if status != "" {
			query = query.Where("status = ?", status)
		}
		return query
	}

	var requests []model.ProductRequest
	err := scoped().Order("requested_at desc").Find(&requests).Error
	if err == nil {
		return requests, nil
	}

	r.log.WithError(err).WithFields(logrus.Fields{
		"column": column,
		"id":     id,
	}).Warn("ordered request query failed, sorting in memory")

	requests = nil
	if err := scoped().Find(&requests).Error; err != nil {
		return nil, mapError(err, "request")
	}
	SortNewestFirst(requests)
	return requests, nil
}

// SortNewestFirst orders requests by RequestedAt descending; zero timestamps go last.
func SortNewestFirst(requests []model.ProductRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i].RequestedAt, requests[j].RequestedAt
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.After(b)
	})
}

func (r *requestRepository) SetStatus(ctx context.Context, id uuid.UUID, change model.StatusChange) error {
	if !model.ValidTransition(model.RequestPending, change.Status) {
		return apperror.Validationf("invalid target status %q", change.Status)
	}

	db := GetDB(ctx, r.db)
	res := db.Model(&model.ProductRequest{}).
		Where("id = ? AND status = ?", id, model.RequestPending).
		Updates(map[string]interface{}{
			"status":           change.Status,
			"responded_at":     change.At,
			"resolved_by":      change.ResolvedBy,
			"rejection_reason": change.Reason,
		})
	if res.Error != nil {
		return mapError(res.Error, "request")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current model.ProductRequest
	if err := db.Select("id", "status").First(&current, "id = ?", id).Error; err != nil {
		return mapError(err, "request")
	}
	return apperror.InvalidState("request is already " + current.Status)
}

func (r *requestRepository) CountByStatus(ctx context.Context, column string, actorID uuid.UUID) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := GetDB(ctx, r.db).Model(&model.ProductRequest{}).
		Select("status, COUNT(*) AS count").
		Where(column+" = ?", actorID).
		Group("status").
		Scan(&counts).Error
	return counts, mapError(err, "request")
}
