package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ecofood/internal/apperror"
	"ecofood/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestListByCustomerOrdered(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())
	customer := uuid.New()
	newer := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "product_requests" WHERE customer_id = \$1 ORDER BY requested_at desc`).
		WithArgs(customer).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "requested_at"}).
			AddRow(uuid.New(), customer, model.RequestPending, newer).
			AddRow(uuid.New(), customer, model.RequestApproved, older))

	requests, err := repo.ListByCustomer(context.Background(), customer, "")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, newer, requests[0].RequestedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCompanyFallsBackToMemorySort(t *testing.T) {
	db, mock := newMockDB(t)
	log, hook := test.NewNullLogger()
	repo := NewRequestRepository(db, log)
	company := uuid.New()

	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	t3 := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "product_requests" WHERE company_id = \$1 AND status = \$2 ORDER BY requested_at desc`).
		WithArgs(company, model.RequestPending).
		WillReturnError(errors.New("missing index"))
	mock.ExpectQuery(`SELECT \* FROM "product_requests" WHERE company_id = \$1 AND status = \$2$`).
		WithArgs(company, model.RequestPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "status", "requested_at"}).
			AddRow(uuid.New(), company, model.RequestPending, t1).
			AddRow(uuid.New(), company, model.RequestPending, t3).
			AddRow(uuid.New(), company, model.RequestPending, t2))

	requests, err := repo.ListByCompany(context.Background(), company, model.RequestPending)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, []time.Time{t3, t2, t1}, []time.Time{
		requests[0].RequestedAt, requests[1].RequestedAt, requests[2].RequestedAt,
	})

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFallbackFailureIsReported(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())
	customer := uuid.New()

	mock.ExpectQuery(`ORDER BY requested_at desc`).WillReturnError(errors.New("missing index"))
	mock.ExpectQuery(`SELECT \* FROM "product_requests" WHERE customer_id = \$1$`).
		WillReturnError(context.DeadlineExceeded)

	_, err := repo.ListByCustomer(context.Background(), customer, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrTransient)
}

func TestSortNewestFirstPutsMissingTimestampsLast(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	requests := []model.ProductRequest{{RequestedAt: time.Time{}}, {RequestedAt: t1}, {RequestedAt: t2}}

	SortNewestFirst(requests)

	assert.Equal(t, t2, requests[0].RequestedAt)
	assert.Equal(t, t1, requests[1].RequestedAt)
	assert.True(t, requests[2].RequestedAt.IsZero())
}

func TestCreateRejectsQuantityAboveSnapshotWithoutInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())

	err := repo.Create(context.Background(), &model.ProductRequest{Quantity: 6, AvailableSnapshot: 5})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusComparesAndSets(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())
	id := uuid.New()
	resolver := uuid.New()

	mock.ExpectExec(`UPDATE "product_requests" SET .* WHERE id = \$5 AND status = \$6`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), model.RequestApproved, id, model.RequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetStatus(context.Background(), id, model.StatusChange{
		Status:     model.RequestApproved,
		At:         time.Now(),
		ResolvedBy: &resolver,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusOnTerminalRequest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())
	id := uuid.New()

	mock.ExpectExec(`UPDATE "product_requests"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT "id","status" FROM "product_requests" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(id, model.RequestApproved))

	err := repo.SetStatus(context.Background(), id, model.StatusChange{Status: model.RequestRejected, At: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatusUnknownRequest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())

	mock.ExpectExec(`UPDATE "product_requests"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT "id","status" FROM "product_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))

	err := repo.SetStatus(context.Background(), uuid.New(), model.StatusChange{Status: model.RequestApproved, At: time.Now()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSetStatusRejectsNonTerminalTarget(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())

	err := repo.SetStatus(context.Background(), uuid.New(), model.StatusChange{Status: model.RequestPending})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db).(*productRepository)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return at }
	id := uuid.New()

	mock.ExpectQuery(`UPDATE "products" SET "quantity"=quantity - \$1,"updated_at"=\$2 WHERE .*id = \$3 AND quantity >= \$4.* RETURNING "quantity"`).
		WithArgs(4, at, id, 4).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(6))

	remaining, err := repo.DecrementStock(context.Background(), id, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStockInsufficient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`UPDATE "products" SET "quantity"`).WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := repo.DecrementStock(context.Background(), uuid.New(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "insufficient stock", apperror.MessageOf(err))
}

func TestDecrementStockProductGone(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`UPDATE "products" SET "quantity"`).WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err := repo.DecrementStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%pan%", containsPattern("pan"))
	assert.Equal(t, `%a\_b%`, containsPattern("a_b"))
	assert.Equal(t, `%50\%%`, containsPattern("50%"))
	assert.Equal(t, `%c:\\tmp%`, containsPattern(`c:\tmp`))
}

func TestCatalogSearchMatchesLiterally(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE quantity > 0 AND name ILIKE \$1`).
		WithArgs(`%a\_b%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	products, err := repo.ListAvailable(context.Background(), CatalogFilter{Search: "a_b"})
	require.NoError(t, err)
	assert.Empty(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListSearchMatchesLiterally(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE name ILIKE \$1`).
		WithArgs(`%\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE name ILIKE \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, total, err := repo.List(context.Background(), 1, 20, "%")
	require.NoError(t, err)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSearchMatchesLiterally(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "accounts" WHERE \(?name ILIKE \$1 OR email ILIKE \$2`).
		WithArgs(`%ana\_m%`, `%ana\_m%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE \(?name ILIKE \$1 OR email ILIKE \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, total, err := repo.List(context.Background(), AccountFilter{Search: "ana_m", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Zero(t, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRequestRepository(db, quietLogger())
	company := uuid.New()

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM "product_requests" WHERE company_id = \$1 GROUP BY`).
		WithArgs(company).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(model.RequestPending, 5).
			AddRow(model.RequestApproved, 3).
			AddRow(model.RequestRejected, 2))

	counts, err := repo.CountByStatus(context.Background(), ColumnCompany, company)
	require.NoError(t, err)

	var total model.RequestCounts
	for _, c := range counts {
		total.Add(c.Status, c.Count)
	}
	assert.Equal(t, model.RequestCounts{Total: 10, Pending: 5, Approved: 3, Rejected: 2}, total)
}

func TestAccountCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(`INSERT INTO "accounts"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &model.Account{Email: "A@b.cl", Role: model.RoleCustomer})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}
