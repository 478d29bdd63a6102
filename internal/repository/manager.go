package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Manager 仓储管理器，提供所有仓储的统一访问接口
type Manager struct {
	db *gorm.DB

	// 事务管理器
	txManager TransactionManager

	// 仓储实例（使用懒加载）
	sessionOnce sync.Once
	session     SessionRepository

	poolOnce sync.Once
	pool     PoolRepository

	ledgerOnce sync.Once
	ledger     LedgerRepository

	streakOnce sync.Once
	streak     StreakRepository

	gardenOnce sync.Once
	garden     GardenRepository

	petOnce sync.Once
	pet     PetRepository

	gameOnce sync.Once
	game     GameRepository

	ratingOnce sync.Once
	rating     RatingRepository

	systemLogOnce sync.Once
	systemLog     SystemLogRepository

	errorLogOnce sync.Once
	errorLog     ErrorLogRepository
}

// NewManager 创建仓储管理器
func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:        db,
		txManager: NewTransactionManager(db),
	}
}

// GetDB 获取数据库实例
func (m *Manager) GetDB() *gorm.DB {
	return m.db
}

// Transaction 获取事务管理器
func (m *Manager) Transaction() TransactionManager {
	return m.txManager
}

// Session 获取用户会话仓储
func (m *Manager) Session() SessionRepository {
	m.sessionOnce.Do(func() {
		m.session = NewSessionRepository(m.db)
	})
	return m.session
}

// Pool 获取匹配队列仓储
func (m *Manager) Pool() PoolRepository {
	m.poolOnce.Do(func() {
		m.pool = NewPoolRepository(m.db)
	})
	return m.pool
}

// Ledger 获取流水仓储
func (m *Manager) Ledger() LedgerRepository {
	m.ledgerOnce.Do(func() {
		m.ledger = NewLedgerRepository(m.db)
	})
	return m.ledger
}

// Streak 获取打卡仓储
func (m *Manager) Streak() StreakRepository {
	m.streakOnce.Do(func() {
		m.streak = NewStreakRepository(m.db)
	})
	return m.streak
}

// Garden 获取花园仓储
func (m *Manager) Garden() GardenRepository {
	m.gardenOnce.Do(func() {
		m.garden = NewGardenRepository(m.db)
	})
	return m.garden
}

// Pet 获取宠物仓储
func (m *Manager) Pet() PetRepository {
	m.petOnce.Do(func() {
		m.pet = NewPetRepository(m.db)
	})
	return m.pet
}

// Game 获取对战游戏仓储
func (m *Manager) Game() GameRepository {
	m.gameOnce.Do(func() {
		m.game = NewGameRepository(m.db)
	})
	return m.game
}

// Rating 获取评分仓储
func (m *Manager) Rating() RatingRepository {
	m.ratingOnce.Do(func() {
		m.rating = NewRatingRepository(m.db)
	})
	return m.rating
}

// SystemLog 获取系统日志仓储
func (m *Manager) SystemLog() SystemLogRepository {
	m.systemLogOnce.Do(func() {
		m.systemLog = NewSystemLogRepository(m.db)
	})
	return m.systemLog
}

// ErrorLog 获取错误日志仓储
func (m *Manager) ErrorLog() ErrorLogRepository {
	m.errorLogOnce.Do(func() {
		m.errorLog = NewErrorLogRepository(m.db)
	})
	return m.errorLog
}

// WithTransaction 在事务中执行操作
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.txManager.WithTransaction(ctx, fn)
}

// WithReadOnlyTransaction 在只读事务中执行操作
func (m *Manager) WithReadOnlyTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	opts := &TxOptions{
		ReadOnly: true,
	}
	return m.txManager.WithTransactionOptions(ctx, opts, fn)
}
