package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/pairly/internal/logger"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，负责把结构化事件推送给在线用户。
// 推送是尽力而为：用户离线或缓冲区满只记日志，不影响调用方
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 用户ID到客户端的映射（同一用户允许多端连接）
	userClients map[int64][]*Client
	userMu      sync.RWMutex

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// Message 推送给网关的消息信封
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// 系统消息类型，业务事件类型由service层定义
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// NewHub 创建Hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[int64][]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      log,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.UserID > 0 {
		h.userMu.Lock()
		h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
		h.userMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Int64("user_id", client.UserID))

	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
	}
	h.sendToClient(client, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if client.UserID > 0 {
		h.userMu.Lock()
		clients := h.userClients[client.UserID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.userClients[client.UserID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.userClients[client.UserID]) == 0 {
			delete(h.userClients, client.UserID)
		}
		h.userMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Int64("user_id", client.UserID))
}

// Notify 把业务事件推送给用户的所有连接。实现service.Notifier
func (h *Hub) Notify(userID int64, event string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("事件序列化失败",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	msg := &Message{
		Type:      event,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	h.userMu.RLock()
	clients := h.userClients[userID]
	h.userMu.RUnlock()

	if len(clients) == 0 {
		// 用户离线不算错误，网关负责兜底投递
		h.logger.Debug("用户不在线，事件丢弃",
			zap.Int64("user_id", userID),
			zap.String("event", event))
		return
	}

	logger.LogWebSocketMessage("out", event, payload)
	for _, client := range clients {
		h.sendToClient(client, msg)
	}
}

// sendToClient 发送消息给单个客户端
func (h *Hub) sendToClient(client *Client, message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("消息序列化失败", zap.Error(err))
		return
	}

	select {
	case client.Send <- data:
	default:
		h.logger.Warn("客户端发送缓冲区满",
			zap.String("client_id", client.ID),
			zap.Int64("user_id", client.UserID))
	}
}

// OnlineUsers 在线用户列表
func (h *Hub) OnlineUsers() []int64 {
	h.userMu.RLock()
	defer h.userMu.RUnlock()

	users := make([]int64, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// OnlineCount 在线连接数
func (h *Hub) OnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
