package database

import (
	"fmt"

	"github.com/wfunc/pairly/internal/logger"
	"github.com/wfunc/pairly/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	// 需要迁移的模型
	migrationModels := []interface{}{
		// 会话相关
		&models.UserSession{},

		// 匹配相关
		&models.WaitingUser{},
		&models.ActiveChat{},
		&models.MatchHistory{},

		// 经济相关
		&models.LedgerEntry{},
		&models.Streak{},
		&models.Garden{},
		&models.Pet{},

		// 游戏相关
		&models.ActiveGame{},

		// 评分相关
		&models.Rating{},
		&models.PendingRating{},

		// 系统相关
		&models.SystemLog{},
		&models.ErrorLog{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite迁移期间关闭外键约束，避免重建表时的问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_user_sessions_state ON user_sessions(state)",
		"CREATE INDEX IF NOT EXISTS idx_waiting_users_joined_at ON waiting_users(joined_at)",
		"CREATE INDEX IF NOT EXISTS idx_match_history_matched_at ON match_history(matched_at)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_entries_created_at ON ledger_entries(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_active_games_chat_status ON active_games(chat_id, status)",
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 获取所有表名
	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	// 删除所有表
	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
