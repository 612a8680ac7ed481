package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

// ScheduleRepository 接种计划数据访问接口
type ScheduleRepository interface {
	// Save 在同一事务内 upsert 儿童的全部计划行，并删除不在本次集合中的旧行
	Save(ctx context.Context, childID string, entries []model.ScheduleEntry) error
	// Replace 在同一事务内更新出生日期并整体替换计划行（不保留历史）；
	// 读取后版本号已被并发修改时返回 ErrOptimisticLock
	Replace(ctx context.Context, childID string, birthDate model.Date, entries []model.ScheduleEntry) error
	ListByChild(ctx context.Context, childID string) ([]model.ScheduleEntry, error)
	// ListDueOn 返回所有儿童中 due_date 等于 target 的计划行
	ListDueOn(ctx context.Context, target model.Date) ([]model.DueMatch, error)
}

type scheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Save(ctx context.Context, childID string, entries []model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 共享锁：保证儿童存在，且与 Replace 互斥
		var child model.Child
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("child_id").
			Where("child_id = ?", childID).
			First(&child).Error; err != nil {
			return err
		}

		codes := make([]string, 0, len(entries))
		for i := range entries {
			entries[i].ChildID = childID
			codes = append(codes, entries[i].VaccineCode)
		}

		del := tx.Where("child_id = ?", childID)
		if len(codes) > 0 {
			del = del.Where("vaccine_code NOT IN ?", codes)
		}
		if err := del.Delete(&model.ScheduleEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "child_id"}, {Name: "vaccine_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"offset_days", "due_date", "updated_at"}),
		}).Create(&entries).Error
	})
}

func (r *scheduleRepo) Replace(ctx context.Context, childID string, birthDate model.Date, entries []model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 乐观锁：并发重算中版本号被抢先修改的一方返回 ErrOptimisticLock，整体回滚
		var child model.Child
		if err := tx.Select("child_id", "version").
			Where("child_id = ?", childID).
			First(&child).Error; err != nil {
			return err
		}

		result := tx.Model(&model.Child{}).
			Where("child_id = ? AND version = ?", childID, child.Version).
			Updates(map[string]interface{}{
				"birth_date": birthDate,
				"version":    child.Version + 1,
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		if err := tx.Where("child_id = ?", childID).
			Delete(&model.ScheduleEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for i := range entries {
			entries[i].ChildID = childID
		}
		return tx.Create(&entries).Error
	})
}

func (r *scheduleRepo) ListByChild(ctx context.Context, childID string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("offset_days ASC, vaccine_code ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleRepo) ListDueOn(ctx context.Context, target model.Date) ([]model.DueMatch, error) {
	var matches []model.DueMatch
	err := r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Select("child_id", "vaccine_code", "due_date").
		Where("due_date = ?", target).
		Order("child_id ASC, vaccine_code ASC").
		Scan(&matches).Error
	return matches, err
}
