package dto

// ── 儿童登记 DTO ──

// RegisterChildRequest 登记儿童（同时生成接种计划）
// birth_date 由服务层严格校验，格式错误返回 InvalidInput
type RegisterChildRequest struct {
	FirstName    string `json:"first_name"    binding:"required,min=1,max=100"`
	LastName     string `json:"last_name"     binding:"omitempty,max=100"`
	BirthDate    string `json:"birth_date"    binding:"required"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email,max=255"`
}

// ChildResponse 儿童信息响应
type ChildResponse struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    string `json:"birth_date"`
	ContactEmail string `json:"contact_email,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ChildScheduleResponse 登记成功响应（儿童 + 接种计划）
type ChildScheduleResponse struct {
	Child    ChildResponse    `json:"child"`
	Schedule ScheduleResponse `json:"schedule"`
}
