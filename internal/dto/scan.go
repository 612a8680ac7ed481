package dto

// ── 到期扫描 DTO ──

// ScanRunListRequest 扫描记录查询参数
type ScanRunListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// GetLimit 获取条数（含默认值）
func (r *ScanRunListRequest) GetLimit() int {
	if r.Limit <= 0 {
		return 30
	}
	return r.Limit
}

// ScanRunResponse 扫描执行结果
type ScanRunResponse struct {
	ScanDate   string  `json:"scan_date"`
	TargetDate string  `json:"target_date"`
	LeadDays   int     `json:"lead_days"`
	Status     string  `json:"status"`            // running | completed | failed
	Outcome    string  `json:"outcome,omitempty"` // acquired | already_completed | in_progress
	Matched    int     `json:"matched"`
	Emitted    int     `json:"emitted"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	LastError  string  `json:"last_error,omitempty"`
	StartedAt  string  `json:"started_at,omitempty"`
	ExecutedAt *string `json:"executed_at,omitempty"`
}
