// Package db предоставляет подключение к MySQL (GORM) и Redis.
package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/logger"
)

// ConnectMySQL создаёт подключение к MySQL через GORM, проверяет его ping
// и настраивает пул соединений.
func ConnectMySQL(cfg config.MySQLConfig, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения sql.DB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ошибка ping MySQL: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Migrate приводит схему к текущим моделям. Схема одна: недостающие колонки
// добавляются миграцией, а не обходятся во время выполнения запросов.
func Migrate(ctx context.Context, db *gorm.DB, models ...any) error {
	start := time.Now()

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("ошибка миграции схемы: %w", err)
	}

	logger.Info().
		Int("models", len(models)).
		Dur("duration", time.Since(start)).
		Msg("Схема БД актуальна")

	return nil
}

// Close закрывает пул соединений GORM.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
