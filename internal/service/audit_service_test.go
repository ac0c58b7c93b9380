package service

import (
	"testing"
	"time"

	"ecofood/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAuditLogsFiltersByAction(t *testing.T) {
	f := newFixture(t)
	company := f.account(model.RoleCompany, "verdeo")
	customer := f.account(model.RoleCustomer, "ana")
	p := f.product(company, "Pan integral", 10, "0", 72*time.Hour)
	req := f.submit(customer, p.ID, 2)
	_, err := f.requests.Approve(f.ctx, company, req.ID)
	require.NoError(t, err)

	audits := NewAuditService(fakeAuditRepo{f.store})

	all, total, err := audits.GetAuditLogs(f.ctx, "", 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	approved, total, err := audits.GetAuditLogs(f.ctx, model.ActionApproveRequest, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	entry := approved[0]
	assert.Equal(t, model.ActionApproveRequest, entry.Action)
	assert.Equal(t, req.ID.String(), entry.EntityID)
	assert.Equal(t, "Pan integral", entry.EntityName)
	assert.Equal(t, company.ID.String(), entry.AccountID)
	assert.Equal(t, "System", entry.AccountName, "account is not preloaded by the fake")
	assert.Contains(t, entry.Details, `"cantidad":2`)
}
