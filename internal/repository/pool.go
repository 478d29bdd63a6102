package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PoolRepository 匹配队列仓储接口
type PoolRepository interface {
	BaseRepository
	// Enqueue 入队（幂等，重复入队刷新快照但保留入队时间）
	Enqueue(ctx context.Context, entry *models.WaitingUser) error
	// Dequeue 出队，返回是否确实在队列中
	Dequeue(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (*models.WaitingUser, error)
	InPool(ctx context.Context, userID int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	// Candidates 返回排除请求者本人及窗口内已匹配对象的候选人
	Candidates(ctx context.Context, requesterID int64, window time.Duration) ([]*models.WaitingUser, error)

	CreateChat(ctx context.Context, chat *models.ActiveChat) error
	GetChatByUser(ctx context.Context, userID int64) (*models.ActiveChat, error)
	GetChatByID(ctx context.Context, chatID string) (*models.ActiveChat, error)
	DeleteChat(ctx context.Context, chatID string) error
	CountChats(ctx context.Context) (int64, error)

	// RecordMatch 双向写入匹配历史（同一对用户刷新时间戳）
	RecordMatch(ctx context.Context, user1ID, user2ID int64, matchedAt time.Time) error
	LastMatchedAt(ctx context.Context, userID, otherID int64) (*time.Time, error)
}

// poolRepo 匹配队列仓储实现
type poolRepo struct {
	*BaseRepo
}

// NewPoolRepository 创建匹配队列仓储
func NewPoolRepository(db *gorm.DB) PoolRepository {
	return &poolRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Enqueue 入队
func (r *poolRepo) Enqueue(ctx context.Context, entry *models.WaitingUser) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now()
	}

	// 重复入队只刷新快照字段，入队时间保留首次值
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rating", "rating_count", "is_premium", "gender", "gender_preference",
			}),
		}).
		Create(entry).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// Dequeue 出队
func (r *poolRepo) Dequeue(ctx context.Context, userID int64) (bool, error) {
	// 物理删除，软删除会占住user_id唯一索引导致无法重新入队
	result := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.WaitingUser{})

	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseDelete)
	}
	return result.RowsAffected > 0, nil
}

// Get 查询队列条目
func (r *poolRepo) Get(ctx context.Context, userID int64) (*models.WaitingUser, error) {
	var entry models.WaitingUser
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "队列条目不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &entry, nil
}

// InPool 检查用户是否在队列中
func (r *poolRepo) InPool(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WaitingUser{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count > 0, nil
}

// Count 队列总人数
func (r *poolRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WaitingUser{}).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// Candidates 候选人查询：排除请求者本人，以及窗口内和请求者匹配过的用户
func (r *poolRepo) Candidates(ctx context.Context, requesterID int64, window time.Duration) ([]*models.WaitingUser, error) {
	cutoff := time.Now().Add(-window)

	var candidates []*models.WaitingUser
	err := r.db.WithContext(ctx).
		Where("user_id <> ?", requesterID).
		Where(`user_id NOT IN (
			SELECT matched_user_id FROM match_history
			WHERE user_id = ? AND matched_at > ?
		)`, requesterID, cutoff).
		Order("joined_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return candidates, nil
}

// CreateChat 创建聊天记录
func (r *poolRepo) CreateChat(ctx context.Context, chat *models.ActiveChat) error {
	if chat.StartedAt.IsZero() {
		chat.StartedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// GetChatByUser 查找用户参与的聊天
func (r *poolRepo) GetChatByUser(ctx context.Context, userID int64) (*models.ActiveChat, error) {
	var chat models.ActiveChat
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotChatting)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &chat, nil
}

// GetChatByID 根据聊天ID查找
func (r *poolRepo) GetChatByID(ctx context.Context, chatID string) (*models.ActiveChat, error) {
	var chat models.ActiveChat
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "聊天不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &chat, nil
}

// DeleteChat 删除聊天记录
func (r *poolRepo) DeleteChat(ctx context.Context, chatID string) error {
	result := r.db.WithContext(ctx).Unscoped().
		Where("chat_id = ?", chatID).
		Delete(&models.ActiveChat{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseDelete)
	}
	return nil
}

// CountChats 进行中的聊天数
func (r *poolRepo) CountChats(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActiveChat{}).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// RecordMatch 双向写入匹配历史
func (r *poolRepo) RecordMatch(ctx context.Context, user1ID, user2ID int64, matchedAt time.Time) error {
	records := []models.MatchHistory{
		{UserID: user1ID, MatchedUserID: user2ID, MatchedAt: matchedAt},
		{UserID: user2ID, MatchedUserID: user1ID, MatchedAt: matchedAt},
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "matched_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"matched_at"}),
		}).
		Create(&records).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// LastMatchedAt 查询一对用户上次匹配时间
func (r *poolRepo) LastMatchedAt(ctx context.Context, userID, otherID int64) (*time.Time, error) {
	var record models.MatchHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND matched_user_id = ?", userID, otherID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &record.MatchedAt, nil
}

// WithTx 使用事务
func (r *poolRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &poolRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
