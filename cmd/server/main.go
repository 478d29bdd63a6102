package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/pairly/internal/api"
	"github.com/wfunc/pairly/internal/config"
	"github.com/wfunc/pairly/internal/database"
	"github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/logger"
	"github.com/wfunc/pairly/internal/middleware"
	"github.com/wfunc/pairly/internal/repository"
	"github.com/wfunc/pairly/internal/service"
	"github.com/wfunc/pairly/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	repos      *repository.Manager
	hub        *websocket.Hub
	services   *service.Services
	router     *api.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动匹配聊天服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	s.startHTTPServer()
	go s.runLogJanitor()

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.cfg = newCfg
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.httpServer.Addr),
	)

	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	s.logger.Info("初始化组件...")

	// 数据库
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}
	if s.cfg.Database.AutoMigrate {
		s.logger.Info("执行数据库自动迁移...")
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}
	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	db := database.GetDB()
	s.repos = repository.NewManager(db)

	// WebSocket推送中心
	s.hub = websocket.NewHub(s.logger)
	go s.hub.Run()

	// 业务服务
	s.services = service.NewServices(s.repos, s.cfg, s.hub, s.logger)

	// 路由
	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	authMiddleware := middleware.NewAuthMiddleware(s.cfg.Security.JWT.Secret)
	wsHandler := websocket.NewHandler(s.hub,
		s.cfg.WebSocket.ReadBufferSize,
		s.cfg.WebSocket.WriteBufferSize,
		s.logger)
	s.router = api.NewRouter(db, s.services, authMiddleware, wsHandler, s.logger)

	s.logger.Info("所有组件初始化完成")
	return nil
}

// startHTTPServer 启动HTTP服务
func (s *Server) startHTTPServer() {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router.GetEngine(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()
}

// runLogJanitor 每天清理过期的审计日志
func (s *Server) runLogJanitor() {
	retention := s.cfg.Log.File.MaxAge
	if retention <= 0 {
		retention = 30
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.repos.SystemLog().CleanupOldLogs(s.ctx, retention); err != nil {
				s.logger.Warn("审计日志清理失败", zap.Error(err))
			}
		}
	}
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
		}
	}

	s.cancel()

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	// 同步日志
	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}

	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("匹配聊天服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("匹配聊天服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  pairly-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Println("  PAIRLY_SERVER_MODE     运行环境 (development/production/test)")
	fmt.Println("  PAIRLY_SECURITY_JWT_SECRET  网关共享密钥")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  pairly-server -config=/path/to/config.yaml")
	fmt.Println("  pairly-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════════╗
║                                                   ║
║    ____       _      _                            ║
║   |  _ \ __ _(_)_ __| |_   _                      ║
║   | |_) / _` + "`" + ` | | '__| | | | |                     ║
║   |  __/ (_| | | |  | | |_| |                     ║
║   |_|   \__,_|_|_|  |_|\__, |                     ║
║                        |___/                      ║
║                                                   ║
║              匿名匹配聊天后端服务器               ║
║                                                   ║
╚═══════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Println("═══════════════════════════════════════════════════════")
}
