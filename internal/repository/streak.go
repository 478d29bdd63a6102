package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// StreakRepository 打卡记录仓储接口
type StreakRepository interface {
	BaseRepository
	Get(ctx context.Context, userID int64) (*models.Streak, error)
	// GetOrCreate 不存在则按activeOn创建0天记录
	GetOrCreate(ctx context.Context, userID int64, activeOn time.Time) (*models.Streak, error)
	// Set 写回天数和最后活跃日期
	Set(ctx context.Context, userID int64, days int, activeOn time.Time) error
}

// streakRepo 打卡记录仓储实现
type streakRepo struct {
	*BaseRepo
}

// NewStreakRepository 创建打卡记录仓储
func NewStreakRepository(db *gorm.DB) StreakRepository {
	return &streakRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Get 查询打卡记录
func (r *streakRepo) Get(ctx context.Context, userID int64) (*models.Streak, error) {
	var streak models.Streak
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "打卡记录不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &streak, nil
}

// GetOrCreate 查询或创建打卡记录
func (r *streakRepo) GetOrCreate(ctx context.Context, userID int64, activeOn time.Time) (*models.Streak, error) {
	var streak models.Streak
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&streak).Error
	if err == nil {
		return &streak, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	streak = models.Streak{
		UserID:       userID,
		CurrentDays:  0,
		LastActiveOn: truncateToDay(activeOn),
	}
	if err := r.db.WithContext(ctx).Create(&streak).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return &streak, nil
}

// Set 写回打卡状态
func (r *streakRepo) Set(ctx context.Context, userID int64, days int, activeOn time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Streak{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_days":   days,
			"last_active_on": truncateToDay(activeOn),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "打卡记录不存在")
	}
	return nil
}

// truncateToDay 截断到日期（本地时区）
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WithTx 使用事务
func (r *streakRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &streakRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
