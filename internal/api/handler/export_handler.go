package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Card 导出接种卡
// GET /api/v1/schedule/:child_id/export
func (h *ExportHandler) Card(c *gin.Context) {
	childID := c.Param("child_id")
	if !validChildID(childID) {
		response.BadRequest(c, CodeBindFailed, "child_id 格式错误")
		return
	}

	buf, filename, err := h.exportSvc.ExportCard(c.Request.Context(), childID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// Calendar 导出接种日历
// GET /api/v1/schedule/:child_id/calendar.ics
func (h *ExportHandler) Calendar(c *gin.Context) {
	childID := c.Param("child_id")
	if !validChildID(childID) {
		response.BadRequest(c, CodeBindFailed, "child_id 格式错误")
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), childID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	attachment(c, filename, contentTypeICS, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExportGenerateFail) {
		response.InternalError(c)
		return
	}
	handleError(c, err)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}
