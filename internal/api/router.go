package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/middleware"
	"github.com/wfunc/pairly/internal/service"
	"github.com/wfunc/pairly/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authMiddleware *middleware.AuthMiddleware
	wsHandler      *websocket.Handler
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, services *service.Services, authMiddleware *middleware.AuthMiddleware, wsHandler *websocket.Handler, log *zap.Logger) *Router {
	engine := gin.New()

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authMiddleware: authMiddleware,
		wsHandler:      wsHandler,
		log:            log,
	}

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(router.auditLogs())

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	matchHandler := NewMatchHandler(r.services.Match, r.log)
	economyHandler := NewEconomyHandler(r.services.Economy, r.log)
	streakHandler := NewStreakHandler(r.services.Streak, r.log)
	gameHandler := NewGameHandler(r.services.Game, r.log)
	ratingHandler := NewRatingHandler(r.services.Rating, r.log)

	// API v1路由组（全部需要网关签发的令牌）
	v1 := r.engine.Group("/api/v1")
	v1.Use(r.authMiddleware.RequireAuth())
	{
		// 会话与匹配
		session := v1.Group("/session")
		{
			session.POST("", matchHandler.EnsureSession)
			session.POST("/agree", matchHandler.AgreeRules)
			session.POST("/setup", matchHandler.CompleteSetup)
		}
		v1.POST("/match", matchHandler.RequestMatch)
		v1.POST("/stop", matchHandler.LeaveOrStop)
		v1.GET("/profile", matchHandler.Profile)

		// 向日葵经济
		sunflowers := v1.Group("/sunflowers")
		{
			sunflowers.GET("/balance", economyHandler.Balance)
			sunflowers.GET("/history", economyHandler.History)
			sunflowers.POST("/gift", economyHandler.Gift)
			sunflowers.POST("/deduct", economyHandler.Deduct)
		}
		v1.POST("/premium/temp", economyHandler.BuyTempPremium)

		// 打卡、花园与宠物
		v1.GET("/streak", streakHandler.StreakDays)
		garden := v1.Group("/garden")
		{
			garden.POST("", streakHandler.CreateGarden)
			garden.POST("/upgrade", streakHandler.UpgradeGarden)
			garden.POST("/harvest", streakHandler.Harvest)
		}
		pets := v1.Group("/pets")
		{
			pets.GET("", streakHandler.Pets)
			pets.POST("", streakHandler.BuyPet)
		}

		// 对战游戏
		games := v1.Group("/games")
		{
			games.POST("", gameHandler.CreateGame)
			games.POST("/:game_id/move", gameHandler.SubmitMove)
		}
		v1.GET("/chats/:chat_id/game", gameHandler.ActiveGame)

		// 评分
		ratings := v1.Group("/ratings")
		{
			ratings.POST("", ratingHandler.Rate)
			ratings.GET("/summary", ratingHandler.Summary)
			ratings.GET("/pending", ratingHandler.Pending)
		}
	}

	// WebSocket推送通道
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("", r.wsHandler.Serve)
		ws.GET("/online", r.wsHandler.Online)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
