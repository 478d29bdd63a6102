package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// BeginWithOptions 使用选项开始事务
	BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
	// WithTransactionOptions 使用选项在事务中执行函数
	WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error
}

// TxOptions 事务选项
type TxOptions struct {
	// IsolationLevel 事务隔离级别
	IsolationLevel string
	// ReadOnly 是否只读事务
	ReadOnly bool
	// Timeout 事务超时时间（秒）
	Timeout int
}

// Transaction 事务包装器
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 事务中的仓储实例
	session SessionRepository
	pool    PoolRepository
	ledger  LedgerRepository
	streak  StreakRepository
	garden  GardenRepository
	pet     PetRepository
	game    GameRepository
	rating  RatingRepository

	systemLog SystemLogRepository
	errorLog  ErrorLogRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	return m.BeginWithOptions(ctx, nil)
}

// BeginWithOptions 使用选项开始事务
func (m *txManager) BeginWithOptions(ctx context.Context, opts *TxOptions) (*Transaction, error) {
	tx := m.db.WithContext(ctx)

	// 开始事务
	tx = tx.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	// SQLite不支持SET TRANSACTION，选项仅在MySQL/PostgreSQL下生效

	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	return m.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions 使用选项在事务中执行函数
func (m *txManager) WithTransactionOptions(ctx context.Context, opts *TxOptions, fn func(tx *Transaction) error) error {
	tx, err := m.BeginWithOptions(ctx, opts)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	// 执行业务逻辑
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	// 提交事务
	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// Session 获取事务中的用户会话仓储
func (t *Transaction) Session() SessionRepository {
	if t.session == nil {
		t.session = &sessionRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.session
}

// Pool 获取事务中的匹配队列仓储
func (t *Transaction) Pool() PoolRepository {
	if t.pool == nil {
		t.pool = &poolRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.pool
}

// Ledger 获取事务中的流水仓储
func (t *Transaction) Ledger() LedgerRepository {
	if t.ledger == nil {
		t.ledger = &ledgerRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.ledger
}

// Streak 获取事务中的打卡仓储
func (t *Transaction) Streak() StreakRepository {
	if t.streak == nil {
		t.streak = &streakRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.streak
}

// Garden 获取事务中的花园仓储
func (t *Transaction) Garden() GardenRepository {
	if t.garden == nil {
		t.garden = &gardenRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.garden
}

// Pet 获取事务中的宠物仓储
func (t *Transaction) Pet() PetRepository {
	if t.pet == nil {
		t.pet = &petRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.pet
}

// Game 获取事务中的对战游戏仓储
func (t *Transaction) Game() GameRepository {
	if t.game == nil {
		t.game = &gameRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.game
}

// Rating 获取事务中的评分仓储
func (t *Transaction) Rating() RatingRepository {
	if t.rating == nil {
		t.rating = &ratingRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.rating
}

// SystemLog 获取事务中的系统日志仓储
func (t *Transaction) SystemLog() SystemLogRepository {
	if t.systemLog == nil {
		t.systemLog = &systemLogRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.systemLog
}

// ErrorLog 获取事务中的错误日志仓储
func (t *Transaction) ErrorLog() ErrorLogRepository {
	if t.errorLog == nil {
		t.errorLog = &errorLogRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.errorLog
}

// TransactionHelper 带锁冲突重试的事务执行器，
// 供撮合这类多方并发写同一批行的路径使用
type TransactionHelper struct {
	manager TransactionManager
}

// NewTransactionHelper 创建事务辅助器
func NewTransactionHelper(manager TransactionManager) *TransactionHelper {
	return &TransactionHelper{manager: manager}
}

// RunWithRetry 执行事务，遇到锁冲突整体重做
// fn必须幂等：每次重试都在全新事务中从头执行
func (h *TransactionHelper) RunWithRetry(ctx context.Context, maxRetries int, fn func(tx *Transaction) error) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := h.manager.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err

		// 业务错误直接透传，只有锁冲突才值得重试
		if !isRetryableError(err) {
			return err
		}
	}

	return fmt.Errorf("事务执行失败，已重试%d次: %w", maxRetries, lastErr)
}

// isRetryableError 识别各数据库方言的锁冲突错误
func isRetryableError(err error) bool {
	errStr := err.Error()

	// MySQL死锁
	if strings.Contains(errStr, "Deadlock") {
		return true
	}

	// PostgreSQL死锁
	if strings.Contains(errStr, "deadlock detected") {
		return true
	}

	// SQLite写锁等待
	if strings.Contains(errStr, "database is locked") {
		return true
	}

	return false
}
