package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/service"
	"go.uber.org/zap"
)

// EconomyHandler 向日葵经济处理器
type EconomyHandler struct {
	economy service.EconomyService
	logger  *zap.Logger
}

// NewEconomyHandler 创建经济处理器
func NewEconomyHandler(economy service.EconomyService, logger *zap.Logger) *EconomyHandler {
	return &EconomyHandler{economy: economy, logger: logger}
}

// GiftRequest 转赠请求
type GiftRequest struct {
	ToUserID int64 `json:"to_user_id" binding:"required"`
	Amount   int   `json:"amount" binding:"required,min=1"`
}

// DeductRequest 扣减请求
type DeductRequest struct {
	Amount int `json:"amount" binding:"required,min=1"`
}

// HistoryResponse 流水列表响应
type HistoryResponse struct {
	Entries  interface{} `json:"entries"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// Balance 获取向日葵余额
func (h *EconomyHandler) Balance(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	balance, err := h.economy.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"balance": balance,
		"total":   balance.Total(),
	})
}

// History 分页查询流水
func (h *EconomyHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, total, err := h.economy.History(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, HistoryResponse{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Gift 向日葵转赠
func (h *EconomyHandler) Gift(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req GiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.economy.Gift(c.Request.Context(), userID, req.ToUserID, req.Amount); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("转赠完成",
		zap.Int64("from", userID),
		zap.Int64("to", req.ToUserID),
		zap.Int("amount", req.Amount))
	respondOK(c, gin.H{"gifted": req.Amount})
}

// Deduct 智能扣减，网关侧消费入口
func (h *EconomyHandler) Deduct(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.economy.DeductSmart(c.Request.Context(), userID, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deducted": req.Amount})
}

// BuyTempPremium 购买临时会员
func (h *EconomyHandler) BuyTempPremium(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	until, err := h.economy.BuyTempPremium(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"premium_until": until})
}
