package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/pairly/internal/errors"
)

// respondOK 统一成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError 统一错误响应，按错误码映射HTTP状态
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	// 挂到上下文供审计中间件落库
	_ = c.Error(appErr)
	c.JSON(appErr.HTTPStatus(), gin.H{
		"success": false,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})
}

// respondBadRequest 参数绑定失败响应
func respondBadRequest(c *gin.Context, err error) {
	respondError(c, apperrors.Wrap(err, apperrors.ErrInvalidParam))
}
