package service

import (
	"fmt"
	"sort"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
)

// ErrInvalidBirthDate 出生日期格式不合法
var ErrInvalidBirthDate = fmt.Errorf("出生日期必须为合法的 YYYY-MM-DD: %w", pkgerrors.ErrInvalidInput)

// DueDose 推导出的单剂次到期日
type DueDose struct {
	VaccineCode string
	OffsetDays  int
	DueDate     model.Date
}

// Derive 由出生日期推导全部接种到期日，按间隔表顺序输出。
// 纯函数：不读时钟、不依赖时区，同一输入恒得同一输出。
func Derive(birthDate model.Date) ([]DueDose, error) {
	if birthDate.IsZero() {
		return nil, ErrInvalidBirthDate
	}
	doses := make([]DueDose, 0, len(offsetTable))
	for _, e := range offsetTable {
		doses = append(doses, DueDose{
			VaccineCode: e.VaccineCode,
			OffsetDays:  e.OffsetDays,
			DueDate:     birthDate.AddDays(e.OffsetDays),
		})
	}
	return doses, nil
}

// DeriveFromString 严格解析 YYYY-MM-DD 后推导
func DeriveFromString(birthDate string) (model.Date, []DueDose, error) {
	d, err := model.ParseDate(birthDate)
	if err != nil {
		return model.Date{}, nil, fmt.Errorf("%w: %q", ErrInvalidBirthDate, birthDate)
	}
	doses, err := Derive(d)
	return d, doses, err
}

// toScheduleEntries 转为待持久化的计划行
func toScheduleEntries(childID string, doses []DueDose) []model.ScheduleEntry {
	entries := make([]model.ScheduleEntry, 0, len(doses))
	for _, d := range doses {
		entries = append(entries, model.ScheduleEntry{
			ChildID:     childID,
			VaccineCode: d.VaccineCode,
			OffsetDays:  d.OffsetDays,
			DueDate:     d.DueDate,
		})
	}
	return entries
}

// sortByTableOrder 按间隔表顺序排序计划行
func sortByTableOrder(entries []model.ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return VaccinePosition(entries[i].VaccineCode) < VaccinePosition(entries[j].VaccineCode)
	})
}
