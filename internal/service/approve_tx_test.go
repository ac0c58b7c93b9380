package service

import (
	"context"
	"testing"

	"ecofood/internal/apperror"
	"ecofood/internal/model"
	"ecofood/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLRequestService(t *testing.T) (RequestService, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	svc := NewRequestService(
		repository.NewRequestRepository(db, quietLogger()),
		repository.NewProductRepository(db),
		repository.NewAccountRepository(db),
		repository.NewStockMovementRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransactionManager(db),
		nil,
		quietLogger(),
	)
	return svc, mock
}

func expectAccount(mock sqlmock.Sqlmock, id uuid.UUID, role, status string) {
	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "status"}).AddRow(id, role, status))
}

func TestApproveRollsBackWhenStockRanOut(t *testing.T) {
	svc, mock := newSQLRequestService(t)
	company := uuid.New()
	requestID := uuid.New()
	productID := uuid.New()

	mock.ExpectBegin()
	expectAccount(mock, company, model.RoleCompany, model.AccountActive)
	mock.ExpectQuery(`SELECT \* FROM "product_requests" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "product_id", "company_id", "quantity", "available_snapshot", "status"}).
			AddRow(requestID, uuid.New(), productID, company, 4, 10, model.RequestPending))
	mock.ExpectExec(`UPDATE "product_requests" SET .* WHERE .*id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE "products" SET "quantity"=quantity - \$1,"updated_at"=\$2 WHERE .*RETURNING "quantity"`).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	req, err := svc.Approve(context.Background(), Actor{ID: company, Role: model.RoleCompany}, requestID)
	assert.Nil(t, req)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "insufficient stock", apperror.MessageOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveByInactiveCompanyTouchesNothing(t *testing.T) {
	svc, mock := newSQLRequestService(t)
	company := uuid.New()

	mock.ExpectBegin()
	expectAccount(mock, company, model.RoleCompany, model.AccountInactive)
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), Actor{ID: company, Role: model.RoleCompany}, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
