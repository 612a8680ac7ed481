package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
)

// ClaimOutcome 扫描日占用结果
type ClaimOutcome int

const (
	// ClaimAcquired 本次调用获得执行权
	ClaimAcquired ClaimOutcome = iota
	// ClaimAlreadyCompleted 当日扫描已完成，重复触发为空操作
	ClaimAlreadyCompleted
	// ClaimInProgress 另一个触发正在执行当日扫描
	ClaimInProgress
)

func (o ClaimOutcome) String() string {
	switch o {
	case ClaimAcquired:
		return "acquired"
	case ClaimAlreadyCompleted:
		return "already_completed"
	case ClaimInProgress:
		return "in_progress"
	default:
		return "unknown"
	}
}

// ScanRunRepository 扫描执行记录数据访问接口
type ScanRunRepository interface {
	// Claim 占用扫描日。staleBefore 之前开始且仍为 running 的记录视为中断，可被接管；
	// force 为 true 时已完成的记录也会被重新占用
	Claim(ctx context.Context, run *model.ScanRun, staleBefore time.Time, force bool) (ClaimOutcome, error)
	Finish(ctx context.Context, run *model.ScanRun) error
	Get(ctx context.Context, scanDate model.Date) (*model.ScanRun, error)
	ListRecent(ctx context.Context, limit int) ([]model.ScanRun, error)
}

type scanRunRepo struct {
	db *gorm.DB
}

func NewScanRunRepo(db *gorm.DB) ScanRunRepository {
	return &scanRunRepo{db: db}
}

func (r *scanRunRepo) Claim(ctx context.Context, run *model.ScanRun, staleBefore time.Time, force bool) (ClaimOutcome, error) {
	outcome := ClaimInProgress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run.Status = model.ScanStatusRunning
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(run)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			outcome = ClaimAcquired
			return nil
		}

		var existing model.ScanRun
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("scan_date = ?", run.ScanDate).
			First(&existing).Error; err != nil {
			return err
		}

		switch {
		case existing.IsCompleted() && !force:
			*run = existing
			outcome = ClaimAlreadyCompleted
			return nil
		case existing.Status == model.ScanStatusRunning && existing.StartedAt.After(staleBefore):
			*run = existing
			outcome = ClaimInProgress
			return nil
		}

		// failed / 中断的 running / 强制重跑：接管
		if err := tx.Model(&model.ScanRun{}).
			Where("scan_date = ?", run.ScanDate).
			Updates(map[string]interface{}{
				"target_date": run.TargetDate,
				"lead_days":   run.LeadDays,
				"status":      model.ScanStatusRunning,
				"matched":     0,
				"emitted":     0,
				"skipped":     0,
				"failed":      0,
				"last_error":  "",
				"started_at":  run.StartedAt,
				"executed_at": nil,
			}).Error; err != nil {
			return err
		}
		outcome = ClaimAcquired
		return nil
	})
	return outcome, err
}

func (r *scanRunRepo) Finish(ctx context.Context, run *model.ScanRun) error {
	return r.db.WithContext(ctx).
		Model(&model.ScanRun{}).
		Where("scan_date = ?", run.ScanDate).
		Updates(map[string]interface{}{
			"status":      run.Status,
			"matched":     run.Matched,
			"emitted":     run.Emitted,
			"skipped":     run.Skipped,
			"failed":      run.Failed,
			"last_error":  run.LastError,
			"executed_at": run.ExecutedAt,
		}).Error
}

func (r *scanRunRepo) Get(ctx context.Context, scanDate model.Date) (*model.ScanRun, error) {
	var run model.ScanRun
	err := r.db.WithContext(ctx).
		Where("scan_date = ?", scanDate).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *scanRunRepo) ListRecent(ctx context.Context, limit int) ([]model.ScanRun, error) {
	var runs []model.ScanRun
	err := r.db.WithContext(ctx).
		Order("scan_date DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
