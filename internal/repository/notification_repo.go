package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
)

// NotificationRepository 接种提醒数据访问接口
type NotificationRepository interface {
	// CreateIfAbsent 三元组不存在时插入，返回是否实际写入（唯一约束兜底去重）
	CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error)
	Exists(ctx context.Context, match model.DueMatch) (bool, error)
	ListByChild(ctx context.Context, childID string, offset, limit int) ([]model.Notification, int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) CreateIfAbsent(ctx context.Context, n *model.Notification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "vaccine_code"}, {Name: "due_date"}},
			DoNothing: true,
		}).
		Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *notificationRepo) Exists(ctx context.Context, match model.DueMatch) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("child_id = ? AND vaccine_code = ? AND due_date = ?", match.ChildID, match.VaccineCode, match.DueDate).
		Count(&count).Error
	return count > 0, err
}

func (r *notificationRepo) ListByChild(ctx context.Context, childID string, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("child_id = ?", childID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC, notification_id DESC").
		Find(&list).Error
	return list, total, err
}
