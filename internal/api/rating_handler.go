package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/service"
	"go.uber.org/zap"
)

// RatingHandler 评分处理器
type RatingHandler struct {
	ratings service.RatingService
	logger  *zap.Logger
}

// NewRatingHandler 创建评分处理器
func NewRatingHandler(ratings service.RatingService, logger *zap.Logger) *RatingHandler {
	return &RatingHandler{ratings: ratings, logger: logger}
}

// RateRequest 评分请求
type RateRequest struct {
	RatedUserID int64 `json:"rated_user_id" binding:"required"`
	Score       int   `json:"score" binding:"required,min=1,max=5"`
}

// Rate 提交评分
func (h *RatingHandler) Rate(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.ratings.Rate(c.Request.Context(), userID, req.RatedUserID, req.Score)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// Summary 平均分快照
func (h *RatingHandler) Summary(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	summary, err := h.ratings.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// Pending 待评分义务列表
func (h *RatingHandler) Pending(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	pending, err := h.ratings.PendingList(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, pending)
}
