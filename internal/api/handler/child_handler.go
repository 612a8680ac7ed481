package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

// ChildHandler 儿童登记 HTTP 处理器
type ChildHandler struct {
	scheduleSvc service.ScheduleService
}

// NewChildHandler 创建 ChildHandler
func NewChildHandler(scheduleSvc service.ScheduleService) *ChildHandler {
	return &ChildHandler{scheduleSvc: scheduleSvc}
}

// Register 登记儿童并生成接种计划
// POST /api/v1/children
func (h *ChildHandler) Register(c *gin.Context) {
	var req dto.RegisterChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.scheduleSvc.RegisterChild(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}
