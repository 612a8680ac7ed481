package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/metrics"
)

// ErrChildMissing 命中的计划行找不到儿童档案
var ErrChildMissing = fmt.Errorf("计划行对应的儿童档案缺失: %w", ErrChildNotFound)

// ReminderMessage 提醒文案
func ReminderMessage(childName, vaccineCode string, dueDate model.Date) string {
	return fmt.Sprintf("Reminder: %s has a %s vaccination scheduled for %s", childName, vaccineCode, dueDate.String())
}

// EmitResult 一次 Emit 的统计
type EmitResult struct {
	Emitted int
	Skipped int
	Failed  int
	// Err 首个错误；单条失败不会中断其余命中项的处理
	Err error
}

// NotificationService 提醒去重、落库与查询
type NotificationService interface {
	// Emit 对每个命中三元组：已存在则跳过，否则落库并异步投递
	Emit(ctx context.Context, matches []model.DueMatch) EmitResult
	// List 按 created_at 倒序分页查询儿童的提醒
	List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
}

type notificationService struct {
	repo       *repository.Repository
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewNotificationService 创建 NotificationService；dispatcher 为 nil 时仅落库
func NewNotificationService(repo *repository.Repository, dispatcher *Dispatcher, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, dispatcher: dispatcher, logger: logger}
}

func (s *notificationService) Emit(ctx context.Context, matches []model.DueMatch) EmitResult {
	var res EmitResult
	matches = uniqueMatches(matches)
	if len(matches) == 0 {
		return res
	}

	children, err := s.loadChildren(ctx, matches)
	if err != nil {
		res.Failed = len(matches)
		res.Err = persistenceError("读取儿童档案", err)
		metrics.IncrementNotificationBy("failed", len(matches))
		s.logger.Error("读取儿童档案失败，本次提醒全部放弃", zap.Int("matches", len(matches)), zap.Error(err))
		return res
	}

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			// 已处理的提醒保留，剩余项由下次扫描补发
			s.logger.Warn("提醒处理被取消", zap.Int("remaining", len(matches)-i), zap.Error(err))
			if res.Err == nil {
				res.Err = err
			}
			return res
		}

		inserted, err := s.emitOne(ctx, m, children[m.ChildID])
		switch {
		case err != nil:
			res.Failed++
			if res.Err == nil {
				res.Err = err
			}
			metrics.IncrementNotification("failed")
			s.logger.Error("提醒落库失败",
				zap.String("child_id", m.ChildID),
				zap.String("vaccine_code", m.VaccineCode),
				zap.String("due_date", m.DueDate.String()),
				zap.Error(err),
			)
		case inserted:
			res.Emitted++
			metrics.IncrementNotification("emitted")
		default:
			res.Skipped++
			metrics.IncrementNotification("skipped")
		}
	}
	return res
}

func (s *notificationService) emitOne(ctx context.Context, m model.DueMatch, child *model.Child) (bool, error) {
	exists, err := s.repo.Notification.Exists(ctx, m)
	if err != nil {
		return false, persistenceError("检查提醒记录", err)
	}
	if exists {
		return false, nil
	}
	if child == nil {
		return false, ErrChildMissing
	}

	n := &model.Notification{
		ChildID:     m.ChildID,
		VaccineCode: m.VaccineCode,
		DueDate:     m.DueDate,
		Message:     ReminderMessage(child.FullName(), m.VaccineCode, m.DueDate),
	}
	// 并发扫描在 Exists 之后插入同一三元组时由唯一约束兜底
	inserted, err := s.repo.Notification.CreateIfAbsent(ctx, n)
	if err != nil {
		return false, persistenceError("写入提醒记录", err)
	}
	if !inserted {
		return false, nil
	}

	s.dispatch(Delivery{
		Notification: *n,
		ChildName:    child.FullName(),
		ContactEmail: child.ContactEmail,
	})
	return true, nil
}

// dispatch 投递失败只影响通道，不影响已落库的记录
func (s *notificationService) dispatch(d Delivery) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Enqueue(d); err != nil {
		s.logger.Warn("提醒入队失败",
			zap.String("notification_id", d.Notification.NotificationID),
			zap.Error(err),
		)
	}
}

func (s *notificationService) loadChildren(ctx context.Context, matches []model.DueMatch) (map[string]*model.Child, error) {
	ids := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !seen[m.ChildID] {
			seen[m.ChildID] = true
			ids = append(ids, m.ChildID)
		}
	}
	list, err := s.repo.Child.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	children := make(map[string]*model.Child, len(list))
	for i := range list {
		children[list[i].ChildID] = &list[i]
	}
	return children, nil
}

func (s *notificationService) List(ctx context.Context, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByChild(ctx, req.ChildID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询提醒列表失败", zap.String("child_id", req.ChildID), zap.Error(err))
		return nil, 0, persistenceError("查询提醒列表", err)
	}
	out := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, dto.NotificationResponse{
			ID:          n.NotificationID,
			ChildID:     n.ChildID,
			VaccineCode: n.VaccineCode,
			DueDate:     n.DueDate.String(),
			Message:     n.Message,
			CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, total, nil
}

// uniqueMatches 按三元组去重，保留首次出现的顺序
func uniqueMatches(matches []model.DueMatch) []model.DueMatch {
	seen := make(map[string]bool, len(matches))
	out := make([]model.DueMatch, 0, len(matches))
	for _, m := range matches {
		k := m.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}
