package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

// ScheduleHandler 接种计划 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Create 为已登记儿童生成接种计划
// POST /api/v1/schedule
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.scheduleSvc.CreateSchedule(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.Created(c, result)
}

// Recompute 更正出生日期并重算接种计划
// PUT /api/v1/schedule/:child_id
func (h *ScheduleHandler) Recompute(c *gin.Context) {
	childID := c.Param("child_id")
	if !validChildID(childID) {
		response.BadRequest(c, CodeBindFailed, "child_id 格式错误")
		return
	}

	var req dto.RecomputeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.scheduleSvc.Recompute(c.Request.Context(), childID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}

// Get 获取儿童接种计划
// GET /api/v1/schedule/:child_id
func (h *ScheduleHandler) Get(c *gin.Context) {
	childID := c.Param("child_id")
	if !validChildID(childID) {
		response.BadRequest(c, CodeBindFailed, "child_id 格式错误")
		return
	}

	result, err := h.scheduleSvc.GetSchedule(c.Request.Context(), childID)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, result)
}
