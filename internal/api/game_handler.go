package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/service"
	"go.uber.org/zap"
)

// GameHandler 对战游戏处理器
type GameHandler struct {
	games  service.GameService
	logger *zap.Logger
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(games service.GameService, logger *zap.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

// CreateGameRequest 创建对局请求
type CreateGameRequest struct {
	GameType string `json:"game_type" binding:"required"`
	Bet      int    `json:"bet" binding:"min=0"`
}

// MoveRequest 落子请求
type MoveRequest struct {
	Move string `json:"move" binding:"required"`
}

// CreateGame 创建对局
func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	active, err := h.games.CreateGame(c.Request.Context(), userID, models.GameType(req.GameType), req.Bet)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, active)
}

// SubmitMove 提交一步
func (h *GameHandler) SubmitMove(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	gameID := c.Param("game_id")

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	outcome, err := h.games.SubmitMove(c.Request.Context(), userID, gameID, req.Move)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, outcome)
}

// ActiveGame 查询聊天中进行中的对局
func (h *GameHandler) ActiveGame(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	chatID := c.Param("chat_id")
	active, err := h.games.ActiveGameForChat(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, active)
}
