package service

import (
	"context"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/google/uuid"
)

type StatisticsService interface {
	// StatsFor counts the requests an account placed (customer) or received (company).
	StatsFor(ctx context.Context, actorID uuid.UUID, role string) (*model.RequestCounts, error)
	Overview(ctx context.Context) (*model.Overview, error)
}

type statisticsService struct {
	requestRepo repository.RequestRepository
	statsRepo   repository.StatisticsRepository
	windowDays  int
	now         func() time.Time
}

func NewStatisticsService(requestRepo repository.RequestRepository, statsRepo repository.StatisticsRepository, windowDays int) StatisticsService {
	return &statisticsService{
		requestRepo: requestRepo,
		statsRepo:   statsRepo,
		windowDays:  windowDays,
		now:         time.Now,
	}
}

func (s *statisticsService) StatsFor(ctx context.Context, actorID uuid.UUID, role string) (*model.RequestCounts, error) {
	var column string
	switch role {
	case model.RoleCustomer:
		column = repository.ColumnCustomer
	case model.RoleCompany:
		column = repository.ColumnCompany
	default:
		return nil, apperror.Validationf("statistics are not kept for role %q", role)
	}

	rows, err := s.requestRepo.CountByStatus(ctx, column, actorID)
	if err != nil {
		return nil, err
	}

	counts := &model.RequestCounts{}
	for _, row := range rows {
		counts.Add(row.Status, row.Count)
	}
	return counts, nil
}

func (s *statisticsService) Overview(ctx context.Context) (*model.Overview, error) {
	return s.statsRepo.Overview(ctx, s.now(), s.windowDays)
}
