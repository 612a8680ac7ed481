package dto

// ── 接种提醒 DTO ──

// NotificationListRequest 提醒列表查询参数
type NotificationListRequest struct {
	ChildID string `form:"child_id" binding:"required,uuid"`
	PaginationRequest
}

// NotificationResponse 提醒响应
type NotificationResponse struct {
	ID          string `json:"id"`
	ChildID     string `json:"child_id"`
	VaccineCode string `json:"vaccine_code"`
	DueDate     string `json:"due_date"`
	Message     string `json:"message"`
	CreatedAt   string `json:"created_at"`
}
