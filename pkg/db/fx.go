package db

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/sieve/internal/config"
	"github.com/smallbiznis/sieve/internal/observability/logger"
	"github.com/smallbiznis/sieve/internal/sieve/domain"
)

// Module opens the gorm connection, tunes its pool from config, and
// migrates the sieve schema before any other fx component touches it.
var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(migrate),
)

// Open dials the configured SQL dialect and wires the zap-backed GORM
// logger so slow/erroring queries surface through the same structured log
// pipeline as the rest of the service.
func Open(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gormLog := logger.NewGormLogger(logger.DefaultGormLoggerConfig())

	conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConn)
	}
	if cfg.DBMaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
	}
	if cfg.DBConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	}
	if cfg.DBConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Second)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return sqlDB.Close()
		},
	})

	log.Info("database connected", zap.String("dialect", cfg.DBType))

	return conn, nil
}

// migrate runs AutoMigrate for the sieve schema at startup.
func migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&domain.Vendor{},
		&domain.Invoice{},
		&domain.LineItem{},
		&domain.VendorRemitAccount{},
		&domain.VendorAmountBaseline{},
		&domain.Decision{},
		&domain.Case{},
		&domain.AuditLog{},
		&domain.Config{},
	)
}
