package service

import (
	"context"
	"encoding/json"

	"ecofood/internal/model"
	"ecofood/internal/repository"
)

type AuditLogResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	Action      string `json:"action"`
	EntityID    string `json:"entity_id"`
	EntityName  string `json:"entity_name"`
	Details     string `json:"details"`
	CreatedAt   string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns a page of audit entries, newest first, with the acting account attached
func (s *auditService) GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	page, limit = normalizePage(page, limit)

	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		accountName := "System"
		accountID := ""
		if l.Account != nil {
			accountName = l.Account.Name
		}
		if l.AccountID != nil {
			accountID = l.AccountID.String()
		}

		res = append(res, AuditLogResponse{
			ID:          l.ID.String(),
			AccountID:   accountID,
			AccountName: accountName,
			Action:      l.Action,
			EntityID:    l.EntityID,
			EntityName:  l.EntityName,
			Details:     l.Details,
			CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// auditEntry builds an audit row; details are serialized as JSON.
func auditEntry(actor Actor, action, entityID, entityName string, details interface{}) *model.AuditLog {
	payload, _ := json.Marshal(details)
	return &model.AuditLog{
		AccountID:  actor.auditID(),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
