// Package sqlite is the embedded storage backend, built on gorm.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskReminder/internal/logger"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Storage struct {
	db *gorm.DB
}

// New opens the database at dsn and migrates the schema. A bare path gets foreign keys switched on.
func New(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = "tugas.db"
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on"
	}

	dbLogger := gormlogger.New(
		zap.NewStdLog(logger.Logger),
		gormlogger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Error("Repository: failed to open sqlite", err)
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := db.AutoMigrate(&taskRecord{}, &imageRecord{}, &subscriberRecord{}, &settingsRecord{}); err != nil {
		logger.Error("Repository: sqlite migration failed", err)
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	logger.Info("Repository: opened sqlite database", zap.String("dsn", dsn))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: sqlite ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Tasks() *TaskRepo {
	return &TaskRepo{Storage: s}
}

func (s *Storage) Subscribers() *SubscriberRepo {
	return &SubscriberRepo{db: s.db}
}

func (s *Storage) Settings() *SettingsRepo {
	return &SettingsRepo{db: s.db}
}

func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating db dir %q: %w", dir, err)
	}
	return nil
}
