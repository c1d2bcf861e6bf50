package db

import (
	"context"
	"fmt"
	"time"

	"equipment_lending/lending"
	"equipment_lending/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectDB opens Postgres and migrates the schema.
func ConnectDB(dsn string, zl zerolog.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(zl),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	zl.Info().Msg("database connected")
	return conn, nil
}

// Ping checks the underlying connection pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// NewGormLogger routes gorm's slow-query and error output through zerolog.
func NewGormLogger(zl zerolog.Logger) gormlogger.Interface {
	l := zl.With().Str("component", "gorm").Logger()
	return gormlogger.New(&l, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Equipment{}, &models.BorrowRequest{}); err != nil {
		return err
	}

	// 审批/删除时统计占用中的申请
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_active_by_equipment
	  ON %s (equipment_id, status)
	  WHERE status IN ('%s', '%s', '%s');
	`, models.BorrowRequestTable, models.BorrowRequestTable,
		lending.StatusPending, lending.StatusApproved, lending.StatusBorrowed)).Error; err != nil {
		return err
	}

	// “我的申请”按时间倒序
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_user_requested_desc
	  ON %s (user_id, request_date DESC);
	`, models.BorrowRequestTable, models.BorrowRequestTable)).Error; err != nil {
		return err
	}

	return nil
}
