package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/config"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
)

type mockScanService struct {
	today    model.Date
	calls    []model.Date
	triggers []string
	err      error
}

func (m *mockScanService) Today() model.Date { return m.today }
func (m *mockScanService) LeadDays() int     { return 1 }

func (m *mockScanService) Scan(_ context.Context, today model.Date) (model.Date, []model.DueMatch, error) {
	return today.AddDays(1), nil, nil
}

func (m *mockScanService) Run(_ context.Context, today model.Date, opts service.RunOptions) (*dto.ScanRunResponse, error) {
	m.calls = append(m.calls, today)
	m.triggers = append(m.triggers, opts.Trigger)
	return &dto.ScanRunResponse{ScanDate: today.String()}, m.err
}

func (m *mockScanService) ListRuns(_ context.Context, _ *dto.ScanRunListRequest) ([]dto.ScanRunResponse, error) {
	return nil, nil
}

func (m *mockScanService) GetRun(_ context.Context, _ model.Date) (*dto.ScanRunResponse, error) {
	return nil, nil
}

func testConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{Cron: "0 9 * * *", Timezone: "UTC", LeadDays: 1}
}

func TestNew_InvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.Cron = "every morning"
	if _, err := New(cfg, &mockScanService{}, zap.NewNop()); err == nil {
		t.Fatal("非法 cron 表达式应返回错误")
	}
}

func TestTick_UsesScanServiceToday(t *testing.T) {
	scans := &mockScanService{today: model.NewDate(2024, 1, 14)}
	s, err := New(testConfig(), scans, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ScanDate != "2024-01-14" || len(scans.calls) != 1 || scans.triggers[0] != service.TriggerCron {
		t.Fatalf("unexpected tick: %+v %v", resp, scans.triggers)
	}
}

func TestTick_ErrorDoesNotPanic(t *testing.T) {
	scans := &mockScanService{today: model.NewDate(2024, 1, 14), err: errors.New("db down")}
	s, err := New(testConfig(), scans, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Tick(context.Background()); err == nil {
		t.Fatal("应返回扫描错误")
	}
}

func TestNext_DailyAtConfiguredTime(t *testing.T) {
	s, err := New(testConfig(), &mockScanService{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	next := s.Next().UTC()
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Fatalf("下一次触发应为 09:00 UTC, 实际 %s", next)
	}
	if time.Until(next) > 24*time.Hour {
		t.Fatalf("下一次触发应在 24 小时内: %s", next)
	}
}
