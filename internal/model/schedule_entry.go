package model

// ScheduleEntry 接种计划明细 对应 schedule_entries
// 复合主键 (child_id, vaccine_code)；due_date 建索引用于到期扫描
type ScheduleEntry struct {
	ChildID     string `gorm:"type:uuid;primaryKey"           json:"child_id"`
	VaccineCode string `gorm:"type:varchar(32);primaryKey"    json:"vaccine_code"`
	OffsetDays  int    `gorm:"not null"                       json:"offset_days"`
	DueDate     Date   `gorm:"type:date;not null;index"       json:"due_date"`
	BaseModel
}

// TableName 指定表名
func (ScheduleEntry) TableName() string { return "schedule_entries" }

// DueMatch 扫描命中的 (child_id, vaccine_code, due_date) 三元组
type DueMatch struct {
	ChildID     string `json:"child_id"`
	VaccineCode string `json:"vaccine_code"`
	DueDate     Date   `json:"due_date"`
}

// Key 三元组去重键
func (m DueMatch) Key() string {
	return m.ChildID + "|" + m.VaccineCode + "|" + m.DueDate.String()
}
