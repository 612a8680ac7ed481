package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/repository"
)

var (
	ErrExportNoSchedule   = fmt.Errorf("该儿童暂无接种计划: %w", ErrChildNotFound)
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出以内存缓冲返回，由 Handler 层设置响应头后写入：
//   - 接种卡 (.xlsx)：一剂一行，列为 疫苗 / 间隔天数 / 到期日
//   - 日历 (.ics)：一剂一个全天事件，可导入手机日历
type ExportService interface {
	// ExportCard 导出接种卡 Excel
	ExportCard(ctx context.Context, childID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出 iCalendar
	ExportCalendar(ctx context.Context, childID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) load(ctx context.Context, childID string) (*model.Child, []model.ScheduleEntry, error) {
	child, err := s.repo.Child.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrChildNotFound
		}
		s.logger.Error("查询儿童失败", zap.String("child_id", childID), zap.Error(err))
		return nil, nil, persistenceError("查询儿童", err)
	}
	entries, err := s.repo.Schedule.ListByChild(ctx, childID)
	if err != nil {
		s.logger.Error("查询接种计划失败", zap.String("child_id", childID), zap.Error(err))
		return nil, nil, persistenceError("查询接种计划", err)
	}
	if len(entries) == 0 {
		return nil, nil, ErrExportNoSchedule
	}
	sortByTableOrder(entries)
	return child, entries, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCard 接种卡 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCard(ctx context.Context, childID string) (*bytes.Buffer, string, error) {
	child, entries, err := s.load(ctx, childID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Immunization"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 14)
	f.SetColWidth(sheetName, "D", "D", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%s)", child.FullName(), child.BirthDate.String()))
	f.MergeCell(sheetName, "A1", "D1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "#")
	f.SetCellValue(sheetName, cell("B", row), "Vaccine")
	f.SetCellValue(sheetName, cell("C", row), "Offset (days)")
	f.SetCellValue(sheetName, cell("D", row), "Due date")
	f.SetCellStyle(sheetName, cell("A", row), cell("D", row), headerStyle)

	for i, e := range entries {
		row++
		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), e.VaccineCode)
		f.SetCellValue(sheetName, cell("C", row), e.OffsetDays)
		f.SetCellValue(sheetName, cell("D", row), e.DueDate.String())
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("immunization_%s.xlsx", child.ChildID), nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 接种日历 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, childID string) (*bytes.Buffer, string, error) {
	child, entries, err := s.load(ctx, childID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//SmartChild//Immunization Schedule//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s immunizations", child.FullName()))

	stamp := time.Now().UTC()
	for _, e := range entries {
		// UID 由儿童与疫苗决定，重新导入时覆盖旧事件
		event := cal.AddEvent(fmt.Sprintf("%s-%s@smartchild", child.ChildID, e.VaccineCode))
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(e.DueDate.Time())
		event.SetAllDayEndAt(e.DueDate.AddDays(1).Time())
		event.SetSummary(fmt.Sprintf("%s vaccination", e.VaccineCode))
		event.SetDescription(ReminderMessage(child.FullName(), e.VaccineCode, e.DueDate))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("immunization_%s.ics", child.ChildID), nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
