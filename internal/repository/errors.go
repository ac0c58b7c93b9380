package repository

import (
	"context"
	"database/sql/driver"
	"errors"

	"ecofood/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// mapError translates gorm and driver errors into apperror kinds.
// Errors that already carry a kind pass through untouched.
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.Conflict(entity + " already exists")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.Conflict(entity + " already exists")
		case pgSerializationFailure, pgDeadlockDetected:
			return apperror.Transient(err, "concurrent update, try again")
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		pgconn.Timeout(err) {
		return apperror.Transient(err, "database unavailable")
	}

	return pkgerrors.Wrapf(err, "%s query failed", entity)
}
