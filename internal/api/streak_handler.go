package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/service"
	"go.uber.org/zap"
)

// StreakHandler 打卡、花园与宠物处理器
type StreakHandler struct {
	streak service.StreakService
	logger *zap.Logger
}

// NewStreakHandler 创建打卡处理器
func NewStreakHandler(streak service.StreakService, logger *zap.Logger) *StreakHandler {
	return &StreakHandler{streak: streak, logger: logger}
}

// BuyPetRequest 购买宠物请求
type BuyPetRequest struct {
	PetType string `json:"pet_type" binding:"required"`
}

// StreakDays 当前连续打卡天数
func (h *StreakHandler) StreakDays(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	days, err := h.streak.StreakDays(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"days": days})
}

// CreateGarden 创建花园（会员功能）
func (h *StreakHandler) CreateGarden(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	garden, err := h.streak.CreateGarden(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, garden)
}

// UpgradeGarden 升级花园
func (h *StreakHandler) UpgradeGarden(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	upgraded, err := h.streak.UpgradeGarden(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"upgraded": upgraded})
}

// Harvest 每日收获花园产出
func (h *StreakHandler) Harvest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	reward, err := h.streak.Harvest(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("花园收获", zap.Int64("user_id", userID), zap.Int("reward", reward))
	respondOK(c, gin.H{"reward": reward})
}

// BuyPet 购买宠物（会员功能）
func (h *StreakHandler) BuyPet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req BuyPetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	pet, err := h.streak.BuyPet(c.Request.Context(), userID, req.PetType)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, pet)
}

// Pets 宠物列表
func (h *StreakHandler) Pets(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	pets, err := h.streak.Pets(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, pets)
}
