package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/middleware"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// auditLogs 写操作审计与服务端错误落库
func (r *Router) auditLogs() gin.HandlerFunc {
	systemLogs := repository.NewSystemLogRepository(r.db)
	errorLogs := repository.NewErrorLogRepository(r.db)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		userID, _ := middleware.GetUserID(c)
		status := c.Writer.Status()

		// 5xx错误单独落库，供运维排查
		if status >= http.StatusInternalServerError {
			for _, ginErr := range c.Errors {
				entry := &models.ErrorLog{
					UserID:  userID,
					Level:   "error",
					Module:  "api",
					Message: ginErr.Error(),
					Context: models.JSONMap{
						"path":   c.Request.URL.Path,
						"method": c.Request.Method,
					},
				}
				if appErr, ok := ginErr.Err.(*apperrors.AppError); ok {
					entry.Stack = appErr.GetStack()
				}
				if err := errorLogs.Create(c.Request.Context(), entry); err != nil {
					r.log.Warn("错误日志落库失败", zap.Error(err))
				}
			}
		}

		// 只审计写操作，读接口量大且无副作用
		if c.Request.Method == http.MethodGet {
			return
		}
		entry := &models.SystemLog{
			UserID:   userID,
			Type:     "operation",
			Action:   c.Request.Method + " " + c.FullPath(),
			Module:   "api",
			Status:   strconv.Itoa(status),
			Duration: int(time.Since(start).Milliseconds()),
		}
		if err := systemLogs.Create(c.Request.Context(), entry); err != nil {
			r.log.Warn("操作审计落库失败", zap.Error(err))
		}
	}
}
