package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohits-web03/estately/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the Postgres connection and runs migrations.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Listing{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("successfully connected to database")
	return db, nil
}

// closeGorm releases the pool behind db.
func closeGorm(_ context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
