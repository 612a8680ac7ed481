package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

// NotificationHandler 接种提醒 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 儿童提醒列表（created_at 倒序）
// GET /api/v1/notifications?child_id=xxx&page=1&page_size=20
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}
