package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/metrics"
)

// ── 到期扫描模块业务错误 ──

var (
	ErrScanInProgress  = fmt.Errorf("当日扫描正在执行: %w", pkgerrors.ErrConflict)
	ErrFutureScanDate  = fmt.Errorf("扫描日不能晚于今天: %w", pkgerrors.ErrInvalidInput)
	ErrScanRunNotFound = fmt.Errorf("扫描记录不存在: %w", pkgerrors.ErrNotFound)
)

// Clock 当前时间来源
type Clock func() time.Time

// Locker 跨进程互斥锁（redis）
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// 触发来源
const (
	TriggerCron = "cron"
	TriggerCLI  = "cli"
)

// RunOptions 一次扫描执行的选项
type RunOptions struct {
	// Force 已完成的扫描日也重新执行；去重保证不会重复提醒
	Force   bool
	Trigger string
}

// ScanService 到期扫描业务接口
type ScanService interface {
	// Today 调度时区下的当天
	Today() model.Date
	// LeadDays 提前提醒天数
	LeadDays() int
	// Scan 纯查询：返回 today+lead_days 到期的全部三元组
	Scan(ctx context.Context, today model.Date) (model.Date, []model.DueMatch, error)
	// Run 带扫描日占用保护的完整执行：扫描 → 去重落库 → 投递。
	// today 晚于 Today() 时拒绝，避免提前消耗提醒
	Run(ctx context.Context, today model.Date, opts RunOptions) (*dto.ScanRunResponse, error)
	// GetRun 指定扫描日的执行记录
	GetRun(ctx context.Context, scanDate model.Date) (*dto.ScanRunResponse, error)
	// ListRuns 最近的扫描记录
	ListRuns(ctx context.Context, req *dto.ScanRunListRequest) ([]dto.ScanRunResponse, error)
}

type scanService struct {
	cfg           *config.SchedulerConfig
	loc           *time.Location
	repo          *repository.Repository
	notifications NotificationService
	locker        Locker
	now           Clock
	logger        *zap.Logger
}

// NewScanService 创建 ScanService；locker 为 nil 时仅依赖数据库占用记录
func NewScanService(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	notifications NotificationService,
	locker Locker,
	clock Clock,
	logger *zap.Logger,
) ScanService {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("调度时区无效，使用本地时区", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	return &scanService{
		cfg:           cfg,
		loc:           loc,
		repo:          repo,
		notifications: notifications,
		locker:        locker,
		now:           clock,
		logger:        logger,
	}
}

func (s *scanService) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func (s *scanService) LeadDays() int { return s.cfg.LeadDays }

func (s *scanService) Scan(ctx context.Context, today model.Date) (model.Date, []model.DueMatch, error) {
	target := today.AddDays(s.cfg.LeadDays)
	matches, err := s.repo.Schedule.ListDueOn(ctx, target)
	if err != nil {
		return target, nil, persistenceError("查询到期计划", err)
	}
	return target, matches, nil
}

func (s *scanService) Run(ctx context.Context, today model.Date, opts RunOptions) (*dto.ScanRunResponse, error) {
	current := s.Today()
	if today.IsZero() {
		today = current
	}
	if today.After(current) {
		return nil, fmt.Errorf("%w: %s", ErrFutureScanDate, today)
	}
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	log := s.logger.With(
		zap.String("scan_date", today.String()),
		zap.String("trigger", opts.Trigger),
		zap.Bool("force", opts.Force),
	)
	started := s.now()

	// 1. 跨进程锁：拿不到说明其他实例正在扫描；redis 故障时退回数据库占用记录
	if s.locker != nil {
		lockKey := "scan:" + today.String()
		token, ok, err := s.locker.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
		switch {
		case err != nil:
			log.Warn("获取扫描锁失败，仅依赖扫描记录互斥", zap.Error(err))
		case !ok:
			metrics.RecordScanRun(repository.ClaimInProgress.String(), time.Since(started))
			log.Info("扫描锁被占用，跳过本次触发")
			return s.pendingResponse(today, repository.ClaimInProgress), ErrScanInProgress
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
					log.Warn("释放扫描锁失败", zap.Error(err))
				}
			}()
		}
	}

	// 2. 占用扫描日
	run := &model.ScanRun{
		ScanDate:   today,
		TargetDate: today.AddDays(s.cfg.LeadDays),
		LeadDays:   s.cfg.LeadDays,
		StartedAt:  started.UTC(),
	}
	outcome, err := s.repo.ScanRun.Claim(ctx, run, s.staleBefore(started), opts.Force)
	if err != nil {
		metrics.RecordScanRun("error", time.Since(started))
		log.Error("占用扫描日失败", zap.Error(err))
		return nil, persistenceError("占用扫描日", err)
	}
	switch outcome {
	case repository.ClaimAlreadyCompleted:
		metrics.RecordScanRun(outcome.String(), time.Since(started))
		log.Info("当日扫描已完成，跳过")
		return toScanRunResponse(run, outcome), nil
	case repository.ClaimInProgress:
		metrics.RecordScanRun(outcome.String(), time.Since(started))
		log.Info("当日扫描正在执行，跳过")
		return toScanRunResponse(run, outcome), ErrScanInProgress
	}

	// 3. 扫描 + 去重落库
	log.Info("扫描开始", zap.String("target_date", run.TargetDate.String()))
	var runErr error
	_, matches, err := s.Scan(ctx, today)
	if err != nil {
		runErr = err
	} else {
		run.Matched = len(matches)
		metrics.AddScanMatches(len(matches))
		res := s.notifications.Emit(ctx, matches)
		run.Emitted, run.Skipped, run.Failed = res.Emitted, res.Skipped, res.Failed
		runErr = res.Err
	}

	// 4. 记录结果；超时或取消后仍需写回状态
	executed := s.now().UTC()
	run.ExecutedAt = &executed
	run.Status = model.ScanStatusCompleted
	run.LastError = ""
	if runErr != nil {
		run.Status = model.ScanStatusFailed
		run.LastError = runErr.Error()
	}
	if err := s.repo.ScanRun.Finish(context.WithoutCancel(ctx), run); err != nil {
		log.Error("写回扫描结果失败", zap.Error(err))
		if runErr == nil {
			runErr = persistenceError("写回扫描结果", err)
		}
	}

	metrics.RecordScanRun(run.Status, time.Since(started))
	fields := []zap.Field{
		zap.String("target_date", run.TargetDate.String()),
		zap.String("status", run.Status),
		zap.Int("matched", run.Matched),
		zap.Int("emitted", run.Emitted),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
		zap.Duration("elapsed", time.Since(started)),
	}
	if runErr != nil {
		log.Error("扫描失败", append(fields, zap.Error(runErr))...)
		return toScanRunResponse(run, outcome), runErr
	}
	log.Info("扫描完成", fields...)
	return toScanRunResponse(run, outcome), nil
}

// staleBefore 在该时刻之前开始的 running 记录可被接管。
// 仅当单次扫描有上限且 stale_after 超过该上限时才允许接管，否则返回零值（永不接管）
func (s *scanService) staleBefore(now time.Time) time.Time {
	if s.cfg.RunTimeout <= 0 || s.cfg.StaleAfter <= s.cfg.RunTimeout {
		return time.Time{}
	}
	return now.Add(-s.cfg.StaleAfter).UTC()
}

func (s *scanService) ListRuns(ctx context.Context, req *dto.ScanRunListRequest) ([]dto.ScanRunResponse, error) {
	runs, err := s.repo.ScanRun.ListRecent(ctx, req.GetLimit())
	if err != nil {
		s.logger.Error("查询扫描记录失败", zap.Error(err))
		return nil, persistenceError("查询扫描记录", err)
	}
	out := make([]dto.ScanRunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, *toScanRunResponse(&runs[i], -1))
	}
	return out, nil
}

func (s *scanService) GetRun(ctx context.Context, scanDate model.Date) (*dto.ScanRunResponse, error) {
	run, err := s.repo.ScanRun.Get(ctx, scanDate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScanRunNotFound
		}
		s.logger.Error("查询扫描记录失败", zap.String("scan_date", scanDate.String()), zap.Error(err))
		return nil, persistenceError("查询扫描记录", err)
	}
	return toScanRunResponse(run, -1), nil
}

func (s *scanService) pendingResponse(today model.Date, outcome repository.ClaimOutcome) *dto.ScanRunResponse {
	return &dto.ScanRunResponse{
		ScanDate:   today.String(),
		TargetDate: today.AddDays(s.cfg.LeadDays).String(),
		LeadDays:   s.cfg.LeadDays,
		Status:     model.ScanStatusRunning,
		Outcome:    outcome.String(),
	}
}

// toScanRunResponse outcome 为负时不输出
func toScanRunResponse(run *model.ScanRun, outcome repository.ClaimOutcome) *dto.ScanRunResponse {
	resp := &dto.ScanRunResponse{
		ScanDate:   run.ScanDate.String(),
		TargetDate: run.TargetDate.String(),
		LeadDays:   run.LeadDays,
		Status:     run.Status,
		Matched:    run.Matched,
		Emitted:    run.Emitted,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		LastError:  run.LastError,
	}
	if outcome >= 0 {
		resp.Outcome = outcome.String()
	}
	if !run.StartedAt.IsZero() {
		resp.StartedAt = run.StartedAt.UTC().Format(time.RFC3339)
	}
	if run.ExecutedAt != nil {
		v := run.ExecutedAt.UTC().Format(time.RFC3339)
		resp.ExecutedAt = &v
	}
	return resp
}
