package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
)

// ChildRepository 儿童档案数据访问接口（接种计划所依赖的儿童登记表）
type ChildRepository interface {
	// CreateWithSchedule 在同一事务内创建儿童及其全部接种计划
	CreateWithSchedule(ctx context.Context, child *model.Child, entries []model.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*model.Child, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Child, error)
	GetBirthDate(ctx context.Context, id string) (model.Date, error)
	ListIDs(ctx context.Context, offset, limit int) ([]string, error)
}

type childRepo struct {
	db *gorm.DB
}

func NewChildRepo(db *gorm.DB) ChildRepository {
	return &childRepo{db: db}
}

func (r *childRepo) CreateWithSchedule(ctx context.Context, child *model.Child, entries []model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(child).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			entries[i].ChildID = child.ChildID
		}
		return tx.Create(&entries).Error
	})
}

func (r *childRepo) GetByID(ctx context.Context, id string) (*model.Child, error) {
	var child model.Child
	err := r.db.WithContext(ctx).
		Where("child_id = ?", id).
		First(&child).Error
	if err != nil {
		return nil, err
	}
	return &child, nil
}

func (r *childRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Child, error) {
	var children []model.Child
	if len(ids) == 0 {
		return children, nil
	}
	err := r.db.WithContext(ctx).
		Where("child_id IN ?", ids).
		Find(&children).Error
	return children, err
}

func (r *childRepo) GetBirthDate(ctx context.Context, id string) (model.Date, error) {
	var child model.Child
	err := r.db.WithContext(ctx).
		Select("child_id", "birth_date").
		Where("child_id = ?", id).
		First(&child).Error
	if err != nil {
		return model.Date{}, err
	}
	return child.BirthDate, nil
}

func (r *childRepo) ListIDs(ctx context.Context, offset, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Child{}).
		Order("child_id ASC").
		Offset(offset).Limit(limit).
		Pluck("child_id", &ids).Error
	return ids, err
}
