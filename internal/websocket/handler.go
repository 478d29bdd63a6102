package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/pairly/internal/middleware"
	"go.uber.org/zap"
)

// Handler WebSocket接入处理器
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler 创建WebSocket处理器
func NewHandler(hub *Hub, readBufferSize, writeBufferSize int, logger *zap.Logger) *Handler {
	if readBufferSize <= 0 {
		readBufferSize = 1024
	}
	if writeBufferSize <= 0 {
		writeBufferSize = 1024
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: writeBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// 连接来自内网网关，Origin不做校验
				return true
			},
		},
		logger: logger,
	}
}

// Serve 建立推送连接。必须先经过认证中间件
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "NO_TOKEN",
			"message": "缺少认证令牌",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket升级失败",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.Int64("user_id", userID))
}

// Online 在线统计
func (h *Handler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_count": h.hub.OnlineCount(),
		"online_users": h.hub.OnlineUsers(),
	})
}
