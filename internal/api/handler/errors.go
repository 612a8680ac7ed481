package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/himashiD/SMARTCHILD-FINAL-sub000/internal/service"
	pkgerrors "github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/errors"
	"github.com/himashiD/SMARTCHILD-FINAL-sub000/pkg/response"
)

// ── 业务错误码 ──

const (
	CodeBindFailed   = 10001
	CodeInvalidInput = 20001
	CodeNotFound     = 20004
	CodeConflict     = 20009
	CodePersistence  = 20050
)

// bindError 请求参数绑定/校验失败
func bindError(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, CodeBindFailed, "参数校验失败", err.Error())
}

// handleError 按错误类别映射 HTTP 状态码与业务码
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch pkgerrors.Kind(err) {
	case pkgerrors.KindInvalidInput:
		response.BadRequest(c, CodeInvalidInput, messageOf(err))
	case pkgerrors.KindNotFound:
		response.NotFound(c, CodeNotFound, messageOf(err))
	case pkgerrors.KindConflict:
		response.Conflict(c, CodeConflict, messageOf(err))
	case pkgerrors.KindPersistence:
		response.ServiceUnavailable(c, CodePersistence, "存储暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}

// messageOf 对外只暴露业务错误文案，不暴露存储细节
func messageOf(err error) string {
	for _, known := range []error{
		service.ErrChildNotFound,
		service.ErrExportNoSchedule,
		service.ErrScheduleConflict,
		service.ErrScanInProgress,
		service.ErrInvalidBirthDate,
		service.ErrFirstNameEmpty,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
