package model

import "time"

// 扫描状态
const (
	ScanStatusRunning   = "running"
	ScanStatusCompleted = "completed"
	ScanStatusFailed    = "failed"
)

// ScanRun 到期扫描执行记录 对应 scan_runs（每个扫描日一行）
type ScanRun struct {
	ScanDate   Date       `gorm:"type:date;primaryKey"                          json:"scan_date"`
	TargetDate Date       `gorm:"type:date;not null"                            json:"target_date"`
	LeadDays   int        `gorm:"not null"                                      json:"lead_days"`
	Status     string     `gorm:"type:varchar(20);not null;default:'running'"   json:"status"` // running | completed | failed
	Matched    int        `gorm:"not null;default:0"                            json:"matched"`
	Emitted    int        `gorm:"not null;default:0"                            json:"emitted"`
	Skipped    int        `gorm:"not null;default:0"                            json:"skipped"`
	Failed     int        `gorm:"not null;default:0"                            json:"failed"`
	LastError  string     `gorm:"type:text;not null;default:''"                 json:"last_error,omitempty"`
	StartedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"            json:"started_at"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// TableName 指定表名
func (ScanRun) TableName() string { return "scan_runs" }

// IsCompleted 当日扫描是否已完成
func (r *ScanRun) IsCompleted() bool { return r.Status == ScanStatusCompleted }
