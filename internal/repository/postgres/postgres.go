// Package postgres implements the repositories on PostgreSQL through gorm.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/finscale/finscale-api/internal/model"
	"github.com/finscale/finscale-api/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL; production lowers the gorm log level to Warn
func Open(dsn string, production bool) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if production {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// AutoMigrate is the fallback when the embedded SQL migrations cannot run
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Shift{},
		&model.FCMToken{},
		&model.OTPCode{},
		&model.Notification{},
	)
}

// New returns every repository backed by db
func New(db *gorm.DB) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(db),
		Shifts:        NewShiftRepository(db),
		Tokens:        NewTokenRepository(db),
		OTPs:          NewOTPRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

// translate maps gorm errors onto the repository sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}
