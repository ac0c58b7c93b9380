package database

import (
	"context"
	"time"

	"ecofood/internal/config"
	"ecofood/internal/model"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the server owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Account{},
		&model.Product{},
		&model.ProductRequest{},
		&model.StockMovement{},
		&model.AuditLog{},
	}
}

// NewConnection opens the GORM pool, verifies it with a ping and migrates the schema when enabled.
func NewConnection(ctx context.Context, opts config.DatabaseOptions, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	if opts.AutoMigrate {
		if err := db.AutoMigrate(Models()...); err != nil {
			log.WithError(err).Warn("failed to auto-migrate models")
		}
	}

	return db, nil
}
