package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

// ── 接种计划模块业务错误 ──

var (
	ErrChildNotFound     = fmt.Errorf("儿童不存在: %w", pkgerrors.ErrNotFound)
	ErrScheduleConflict  = fmt.Errorf("接种计划正在被其他操作修改: %w", pkgerrors.ErrConflict)
	ErrFirstNameEmpty    = fmt.Errorf("名字不能为空: %w", pkgerrors.ErrInvalidInput)
	// ErrBirthDateMismatch 生成计划时给出的出生日期与档案不一致，更正须走重算接口
	ErrBirthDateMismatch = fmt.Errorf("出生日期与儿童档案不一致，请使用重算接口更正: %w", pkgerrors.ErrInvalidInput)
)

// backfillPageSize 补齐计划时每批读取的儿童数
const backfillPageSize = 200

// ScheduleService 接种计划业务接口
type ScheduleService interface {
	// RegisterChild 登记儿童并在同一事务内生成接种计划
	RegisterChild(ctx context.Context, req *dto.RegisterChildRequest) (*dto.ChildScheduleResponse, error)
	// CreateSchedule 为已登记儿童生成（覆盖写入）接种计划
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	// Recompute 更正出生日期并整体替换接种计划
	Recompute(ctx context.Context, childID string, req *dto.RecomputeScheduleRequest) (*dto.ScheduleResponse, error)
	// GetSchedule 获取儿童接种计划（间隔表顺序）
	GetSchedule(ctx context.Context, childID string) (*dto.ScheduleResponse, error)
	// Backfill 按档案出生日期为全部儿童重写接种计划，返回处理人数
	Backfill(ctx context.Context) (int, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger}
}

func (s *scheduleService) RegisterChild(ctx context.Context, req *dto.RegisterChildRequest) (*dto.ChildScheduleResponse, error) {
	if req.FirstName == "" {
		return nil, ErrFirstNameEmpty
	}
	birthDate, doses, err := DeriveFromString(req.BirthDate)
	if err != nil {
		return nil, err
	}

	child := &model.Child{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BirthDate:    birthDate,
		ContactEmail: req.ContactEmail,
	}
	entries := toScheduleEntries("", doses)
	if err := s.repo.Child.CreateWithSchedule(ctx, child, entries); err != nil {
		s.logger.Error("登记儿童失败", zap.Error(err))
		return nil, persistenceError("登记儿童", err)
	}

	s.logger.Info("儿童已登记",
		zap.String("child_id", child.ChildID),
		zap.String("birth_date", birthDate.String()),
		zap.Int("entries", len(entries)),
	)
	return &dto.ChildScheduleResponse{
		Child:    toChildResponse(child),
		Schedule: *toScheduleResponse(child.ChildID, birthDate, entries),
	}, nil
}

func (s *scheduleService) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	// 显式出生日期先校验，非法输入不触碰存储
	var explicit model.Date
	if req.BirthDate != "" {
		d, _, err := DeriveFromString(req.BirthDate)
		if err != nil {
			return nil, err
		}
		explicit = d
	}

	// 计划总是由档案出生日期推导，保证与 children.birth_date 一致
	birthDate, err := s.repo.Child.GetBirthDate(ctx, req.ChildID)
	if err != nil {
		return nil, s.mapStoreError("读取出生日期", req.ChildID, err)
	}
	if !explicit.IsZero() && !explicit.Equal(birthDate) {
		s.logger.Warn("出生日期与档案不一致",
			zap.String("child_id", req.ChildID),
			zap.String("requested", explicit.String()),
			zap.String("registry", birthDate.String()),
		)
		return nil, ErrBirthDateMismatch
	}
	doses, err := Derive(birthDate)
	if err != nil {
		return nil, err
	}

	entries := toScheduleEntries(req.ChildID, doses)
	if err := s.repo.Schedule.Save(ctx, req.ChildID, entries); err != nil {
		return nil, s.mapStoreError("保存接种计划", req.ChildID, err)
	}

	s.logger.Info("接种计划已生成",
		zap.String("child_id", req.ChildID),
		zap.String("birth_date", birthDate.String()),
	)
	return toScheduleResponse(req.ChildID, birthDate, entries), nil
}

func (s *scheduleService) Recompute(ctx context.Context, childID string, req *dto.RecomputeScheduleRequest) (*dto.ScheduleResponse, error) {
	birthDate, doses, err := DeriveFromString(req.BirthDate)
	if err != nil {
		return nil, err
	}

	entries := toScheduleEntries(childID, doses)
	if err := s.repo.Schedule.Replace(ctx, childID, birthDate, entries); err != nil {
		return nil, s.mapStoreError("重算接种计划", childID, err)
	}

	s.logger.Info("接种计划已重算",
		zap.String("child_id", childID),
		zap.String("birth_date", birthDate.String()),
	)
	return toScheduleResponse(childID, birthDate, entries), nil
}

func (s *scheduleService) GetSchedule(ctx context.Context, childID string) (*dto.ScheduleResponse, error) {
	child, err := s.repo.Child.GetByID(ctx, childID)
	if err != nil {
		return nil, s.mapStoreError("查询儿童", childID, err)
	}
	entries, err := s.repo.Schedule.ListByChild(ctx, childID)
	if err != nil {
		return nil, s.mapStoreError("查询接种计划", childID, err)
	}
	sortByTableOrder(entries)
	return toScheduleResponse(childID, child.BirthDate, entries), nil
}

func (s *scheduleService) Backfill(ctx context.Context) (int, error) {
	processed := 0
	for offset := 0; ; offset += backfillPageSize {
		ids, err := s.repo.Child.ListIDs(ctx, offset, backfillPageSize)
		if err != nil {
			return processed, persistenceError("读取儿童列表", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			if _, err := s.CreateSchedule(ctx, &dto.CreateScheduleRequest{ChildID: id}); err != nil {
				// 单个儿童失败不影响其余儿童
				s.logger.Warn("补齐接种计划失败", zap.String("child_id", id), zap.Error(err))
				continue
			}
			processed++
		}
		if len(ids) < backfillPageSize {
			return processed, nil
		}
	}
}

// mapStoreError 将存储层错误归类
func (s *scheduleService) mapStoreError(op, childID string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrChildNotFound
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		return ErrScheduleConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.logger.Error(op+"失败", zap.String("child_id", childID), zap.Error(err))
	return persistenceError(op, err)
}

// persistenceError 包装为存储类错误，保留原始错误链
func persistenceError(op string, err error) error {
	if pkgerrors.Kind(err) == pkgerrors.KindPersistence {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, pkgerrors.ErrPersistence, err)
}

// ── DTO 转换 ──

func toScheduleResponse(childID string, birthDate model.Date, entries []model.ScheduleEntry) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		ChildID:   childID,
		BirthDate: birthDate.String(),
		Entries:   toEntryResponses(entries),
	}
}

func toEntryResponses(entries []model.ScheduleEntry) []dto.ScheduleEntryResponse {
	out := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ScheduleEntryResponse{
			VaccineCode: e.VaccineCode,
			OffsetDays:  e.OffsetDays,
			DueDate:     e.DueDate.String(),
		})
	}
	return out
}

func toChildResponse(c *model.Child) dto.ChildResponse {
	return dto.ChildResponse{
		ID:           c.ChildID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		BirthDate:    c.BirthDate.String(),
		ContactEmail: c.ContactEmail,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}
