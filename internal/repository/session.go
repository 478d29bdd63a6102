package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/logger"
	"github.com/wfunc/pairly/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 用户会话仓储接口
type SessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.UserSession) error
	GetByUserID(ctx context.Context, userID int64) (*models.UserSession, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	// TransitionState 条件状态迁移，当前状态不等于from时返回ErrPreconditionFailed
	TransitionState(ctx context.Context, userID int64, from, to models.UserState) error
	// ForceSetState 无条件设置状态（仅限管理修复，记录警告日志）
	ForceSetState(ctx context.Context, userID int64, state models.UserState) error
	SetPartner(ctx context.Context, userID int64, partnerID *int64) error
	SetGender(ctx context.Context, userID int64, gender string) error
	SetGenderPreference(ctx context.Context, userID int64, pref string) error
	SetPremiumUntil(ctx context.Context, userID int64, until *time.Time) error
	SetTempPremiumUsedAt(ctx context.Context, userID int64, usedAt time.Time) error
	TouchActivity(ctx context.Context, userID int64) error
	LockForUpdate(ctx context.Context, userID int64) (*models.UserSession, error)
	CountByState(ctx context.Context, state models.UserState) (int64, error)
}

// sessionRepo 用户会话仓储实现
type sessionRepo struct {
	*BaseRepo
}

// NewSessionRepository 创建用户会话仓储
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建会话
func (r *sessionRepo) Create(ctx context.Context, session *models.UserSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// GetByUserID 根据用户ID查找会话
func (r *sessionRepo) GetByUserID(ctx context.Context, userID int64) (*models.UserSession, error) {
	var session models.UserSession
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &session, nil
}

// Exists 检查会话是否存在
func (r *sessionRepo) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count > 0, nil
}

// TransitionState 条件状态迁移（唯一合法的状态变更入口）
func (r *sessionRepo) TransitionState(ctx context.Context, userID int64, from, to models.UserState) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ? AND state = ?", userID, from).
		Update("state", to)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrPreconditionFailed,
			"user=%d expected=%s target=%s", userID, from, to)
	}

	return nil
}

// ForceSetState 无条件设置状态
func (r *sessionRepo) ForceSetState(ctx context.Context, userID int64, state models.UserState) error {
	logger.Warn("强制设置会话状态",
		zap.Int64("user_id", userID),
		zap.String("state", string(state)),
	)

	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ?", userID).
		Update("state", state)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSessionNotFound)
	}
	return nil
}

// SetPartner 设置聊天对象（nil表示清空）
func (r *sessionRepo) SetPartner(ctx context.Context, userID int64, partnerID *int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ?", userID).
		Update("partner_id", partnerID)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSessionNotFound)
	}
	return nil
}

// SetGender 设置性别
func (r *sessionRepo) SetGender(ctx context.Context, userID int64, gender string) error {
	return r.updateColumn(ctx, userID, "gender", gender)
}

// SetGenderPreference 设置性别偏好
func (r *sessionRepo) SetGenderPreference(ctx context.Context, userID int64, pref string) error {
	return r.updateColumn(ctx, userID, "gender_preference", pref)
}

// SetPremiumUntil 设置会员到期时间
func (r *sessionRepo) SetPremiumUntil(ctx context.Context, userID int64, until *time.Time) error {
	return r.updateColumn(ctx, userID, "premium_until", until)
}

// SetTempPremiumUsedAt 记录临时会员购买时间（冷却起点）
func (r *sessionRepo) SetTempPremiumUsedAt(ctx context.Context, userID int64, usedAt time.Time) error {
	return r.updateColumn(ctx, userID, "temp_premium_used_at", usedAt)
}

// TouchActivity 更新最后活跃时间
func (r *sessionRepo) TouchActivity(ctx context.Context, userID int64) error {
	return r.updateColumn(ctx, userID, "last_activity_at", time.Now())
}

// LockForUpdate 锁定会话行（悲观锁，用于按用户串行化经济操作）
func (r *sessionRepo) LockForUpdate(ctx context.Context, userID int64) (*models.UserSession, error) {
	var session models.UserSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrSessionNotFound)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return &session, nil
}

// CountByState 按状态统计会话数
func (r *sessionRepo) CountByState(ctx context.Context, state models.UserState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("state = ?", state).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return count, nil
}

// updateColumn 更新单列并校验会话存在
func (r *sessionRepo) updateColumn(ctx context.Context, userID int64, column string, value interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserSession{}).
		Where("user_id = ?", userID).
		Update(column, value)

	if result.Error != nil {
		return apperrors.Wrap(result.Error, apperrors.ErrDatabaseUpdate)
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrSessionNotFound)
	}
	return nil
}

// WithTx 使用事务
func (r *sessionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &sessionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
