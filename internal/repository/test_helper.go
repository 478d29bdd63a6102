package repository

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// isCI 检查是否在CI环境中运行
func isCI() bool {
	// GitHub Actions 设置 CI=true
	// 其他CI系统也通常设置 CI 环境变量
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 内存库限制单连接，并发事务测试各自开新连接会拿到空库
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 会话状态机
		&models.UserSession{},

		// 匹配系统
		&models.WaitingUser{},
		&models.ActiveChat{},
		&models.MatchHistory{},

		// 经济系统
		&models.LedgerEntry{},
		&models.Streak{},
		&models.Garden{},
		&models.Pet{},

		// 对战游戏
		&models.ActiveGame{},

		// 评分系统
		&models.Rating{},
		&models.PendingRating{},

		// 系统管理
		&models.SystemLog{},
		&models.ErrorLog{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestSessions 创建两个空闲状态的测试会话
func SeedTestSessions(t *testing.T, db *gorm.DB) []models.UserSession {
	sessions := []models.UserSession{
		{
			UserID:         100001,
			State:          models.StateIdle,
			Gender:         "male",
			LastActivityAt: time.Now(),
		},
		{
			UserID:         100002,
			State:          models.StateIdle,
			Gender:         "female",
			LastActivityAt: time.Now(),
		},
	}
	err := db.Create(&sessions).Error
	require.NoError(t, err)
	return sessions
}

// CreateTestWaitingUser 创建测试等待用户
func CreateTestWaitingUser(userID int64, joinedAt time.Time) *models.WaitingUser {
	return &models.WaitingUser{
		UserID:   userID,
		JoinedAt: joinedAt,
	}
}

// CreateTestChat 创建测试聊天
func CreateTestChat(chatID string, user1ID, user2ID int64) *models.ActiveChat {
	return &models.ActiveChat{
		ChatID:    chatID,
		User1ID:   user1ID,
		User2ID:   user2ID,
		StartedAt: time.Now(),
	}
}
