package api

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/middleware"
	"github.com/wfunc/pairly/internal/service"
	"go.uber.org/zap"
)

// MatchHandler 会话与匹配处理器
type MatchHandler struct {
	match  service.MatchService
	logger *zap.Logger
}

// NewMatchHandler 创建匹配处理器
func NewMatchHandler(match service.MatchService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{match: match, logger: logger}
}

// SetupRequest 资料设置请求
type SetupRequest struct {
	Gender     string `json:"gender" binding:"required,oneof=male female"`
	GenderPref string `json:"gender_pref" binding:"required,oneof=male female any"`
}

// EnsureSession 获取或创建会话
func (h *MatchHandler) EnsureSession(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	session, err := h.match.EnsureSession(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

// AgreeRules 同意社区规则
func (h *MatchHandler) AgreeRules(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if err := h.match.AgreeRules(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"state": "agreed"})
}

// CompleteSetup 完成资料设置
func (h *MatchHandler) CompleteSetup(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.match.CompleteSetup(c.Request.Context(), userID, req.Gender, req.GenderPref); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"state": "idle"})
}

// RequestMatch 发起匹配
func (h *MatchHandler) RequestMatch(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	result, err := h.match.RequestMatch(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// LeaveOrStop 离开聊天或停止搜索
func (h *MatchHandler) LeaveOrStop(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	result, err := h.match.LeaveOrStop(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Profile 用户画像汇总
func (h *MatchHandler) Profile(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	profile, err := h.match.Profile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, profile)
}

// requireUserID 取认证用户，未认证返回错误
func requireUserID(c *gin.Context) (int64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		respondError(c, apperrors.New(apperrors.ErrAuthentication))
		return 0, false
	}
	return userID, true
}
