package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// GardenRepository 花园仓储接口
type GardenRepository interface {
	BaseRepository
	Create(ctx context.Context, userID int64) (*models.Garden, error)
	Get(ctx context.Context, userID int64) (*models.Garden, error)
	Has(ctx context.Context, userID int64) (bool, error)
	// Upgrade 升一级，已达上限返回false
	Upgrade(ctx context.Context, userID int64, maxLevel int) (bool, error)
	// Degrade 降一级，等级下限为1
	Degrade(ctx context.Context, userID int64) error
	Destroy(ctx context.Context, userID int64) error
	// MarkHarvested 标记当日已收获，今天已收获过则返回false
	MarkHarvested(ctx context.Context, userID int64, day time.Time) (bool, error)
}

// gardenRepo 花园仓储实现
type gardenRepo struct {
	*BaseRepo
}

// NewGardenRepository 创建花园仓储
func NewGardenRepository(db *gorm.DB) GardenRepository {
	return &gardenRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建1级花园
func (r *gardenRepo) Create(ctx context.Context, userID int64) (*models.Garden, error) {
	garden := &models.Garden{
		UserID: userID,
		Level:  1,
	}
	if err := r.db.WithContext(ctx).Create(garden).Error; err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrGardenExists)
	}
	return garden, nil
}

// Get 查询花园
func (r *gardenRepo) Get(ctx context.Context, userID int64) (*models.Garden, error) {
	var garden models.Garden
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&garden).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGardenNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &garden, nil
}

// Has 检查是否拥有花园
func (r *gardenRepo) Has(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Garden{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count > 0, nil
}

// Upgrade 升级花园
func (r *gardenRepo) Upgrade(ctx context.Context, userID int64, maxLevel int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Garden{}).
		Where("user_id = ? AND level < ?", userID, maxLevel).
		Update("level", gorm.Expr("level + 1"))
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	return result.RowsAffected > 0, nil
}

// Degrade 降级花园（下限1级）
func (r *gardenRepo) Degrade(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Garden{}).
		Where("user_id = ? AND level > 1", userID).
		Update("level", gorm.Expr("level - 1"))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	return nil
}

// Destroy 销毁花园
func (r *gardenRepo) Destroy(ctx context.Context, userID int64) error {
	// 物理删除，软删除会占住user_id唯一索引导致无法重建
	result := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ?", userID).
		Delete(&models.Garden{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseDelete)
	}
	return nil
}

// MarkHarvested 当日收获标记（条件更新保证幂等）
func (r *gardenRepo) MarkHarvested(ctx context.Context, userID int64, day time.Time) (bool, error) {
	today := truncateToDay(day)

	result := r.db.WithContext(ctx).
		Model(&models.Garden{}).
		Where("user_id = ? AND (last_harvest_on IS NULL OR last_harvest_on < ?)", userID, today).
		Update("last_harvest_on", today)
	if result.Error != nil {
		return false, apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	return result.RowsAffected > 0, nil
}

// WithTx 使用事务
func (r *gardenRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gardenRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
