package repository

import (
	"context"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingRepository 评分仓储接口
type RatingRepository interface {
	BaseRepository
	// Upsert 写入评分，同一对用户覆盖旧评分
	Upsert(ctx context.Context, rating *models.Rating) error
	// Summary 平均分快照，评分数不足minCount时返回nil
	Summary(ctx context.Context, userID int64, minCount int) (*models.RatingSummary, error)
	// AddPending 写入待评分义务（已存在则忽略）
	AddPending(ctx context.Context, userID, ratedUserID int64) error
	// RemovePending 移除待评分义务
	RemovePending(ctx context.Context, userID, ratedUserID int64) error
	PendingCount(ctx context.Context, userID int64) (int64, error)
	PendingList(ctx context.Context, userID int64) ([]*models.PendingRating, error)
	TotalCount(ctx context.Context) (int64, error)
}

// ratingRepo 评分仓储实现
type ratingRepo struct {
	*BaseRepo
}

// NewRatingRepository 创建评分仓储
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Upsert 写入评分
func (r *ratingRepo) Upsert(ctx context.Context, rating *models.Rating) error {
	if rating.Score < 1 || rating.Score > 5 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "评分必须在1-5之间: %d", rating.Score)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rated_user_id"}, {Name: "rater_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "updated_at"}),
		}).
		Create(rating).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// Summary 平均分快照
func (r *ratingRepo) Summary(ctx context.Context, userID int64, minCount int) (*models.RatingSummary, error) {
	var row struct {
		Average float64
		Count   int
	}

	err := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("rated_user_id = ?", userID).
		Select("COALESCE(AVG(score), 0) AS average, COUNT(*) AS count").
		Scan(&row).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if row.Count < minCount {
		return nil, nil
	}
	return &models.RatingSummary{Average: row.Average, Count: row.Count}, nil
}

// AddPending 写入待评分义务（幂等）
func (r *ratingRepo) AddPending(ctx context.Context, userID, ratedUserID int64) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "rated_user_id"}},
			DoNothing: true,
		}).
		Create(&models.PendingRating{UserID: userID, RatedUserID: ratedUserID}).Error
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// RemovePending 移除待评分义务
func (r *ratingRepo) RemovePending(ctx context.Context, userID, ratedUserID int64) error {
	// 物理删除，软删除会占住唯一索引导致下次聊天无法再写入
	result := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND rated_user_id = ?", userID, ratedUserID).
		Delete(&models.PendingRating{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseDelete)
	}
	return nil
}

// PendingCount 待评分义务数量
func (r *ratingRepo) PendingCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PendingRating{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// PendingList 待评分义务列表
func (r *ratingRepo) PendingList(ctx context.Context, userID int64) ([]*models.PendingRating, error) {
	var pendings []*models.PendingRating
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&pendings).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return pendings, nil
}

// TotalCount 评分总数
func (r *ratingRepo) TotalCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Rating{}).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// WithTx 使用事务
func (r *ratingRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &ratingRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
