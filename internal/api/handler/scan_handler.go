package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/dto"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/model"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

// ScanHandler 到期扫描记录 HTTP 处理器（只读；扫描仅由定时任务与运维命令触发）
type ScanHandler struct {
	scanSvc service.ScanService
}

// NewScanHandler 创建 ScanHandler
func NewScanHandler(scanSvc service.ScanService) *ScanHandler {
	return &ScanHandler{scanSvc: scanSvc}
}

// List 最近的扫描记录
// GET /api/v1/scans?limit=30
func (h *ScanHandler) List(c *gin.Context) {
	var req dto.ScanRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	runs, err := h.scanSvc.ListRuns(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": runs})
}

// Get 指定扫描日的执行记录
// GET /api/v1/scans/:scan_date
func (h *ScanHandler) Get(c *gin.Context) {
	scanDate, err := model.ParseDate(c.Param("scan_date"))
	if err != nil {
		response.BadRequest(c, CodeInvalidInput, err.Error())
		return
	}

	run, err := h.scanSvc.GetRun(c.Request.Context(), scanDate)
	if err != nil {
		handleError(c, err)
		return
	}

	response.OK(c, run)
}
