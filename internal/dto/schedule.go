package dto

// ── 接种计划 DTO ──

// CreateScheduleRequest 为已登记儿童生成接种计划
// birth_date 可省略；给出时必须与档案一致，更正出生日期请使用重算接口
type CreateScheduleRequest struct {
	ChildID   string `json:"child_id"   binding:"required,uuid"`
	BirthDate string `json:"birth_date" binding:"omitempty"`
}

// RecomputeScheduleRequest 更正出生日期并重算接种计划
type RecomputeScheduleRequest struct {
	BirthDate string `json:"birth_date" binding:"required"`
}

// ScheduleEntryResponse 单剂次计划
type ScheduleEntryResponse struct {
	VaccineCode string `json:"vaccine_code"`
	OffsetDays  int    `json:"offset_days"`
	DueDate     string `json:"due_date"`
}

// ScheduleResponse 儿童完整接种计划（按疫苗表顺序）
type ScheduleResponse struct {
	ChildID   string                  `json:"child_id"`
	BirthDate string                  `json:"birth_date,omitempty"`
	Entries   []ScheduleEntryResponse `json:"entries"`
}
