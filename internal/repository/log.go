package repository

import (
	"context"
	"time"

	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// SystemLogRepository 系统日志仓储接口
type SystemLogRepository interface {
	BaseRepository
	Create(ctx context.Context, log *models.SystemLog) error
	BatchCreate(ctx context.Context, logs []*models.SystemLog) error
	FindByUserID(ctx context.Context, userID int64, pagination *Pagination) ([]*models.SystemLog, error)
	CleanupOldLogs(ctx context.Context, days int) error
}

// systemLogRepo 系统日志仓储实现
type systemLogRepo struct {
	*BaseRepo
}

// NewSystemLogRepository 创建系统日志仓储
func NewSystemLogRepository(db *gorm.DB) SystemLogRepository {
	return &systemLogRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建日志
func (r *systemLogRepo) Create(ctx context.Context, log *models.SystemLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// BatchCreate 批量创建日志
func (r *systemLogRepo) BatchCreate(ctx context.Context, logs []*models.SystemLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// FindByUserID 根据用户ID查找
func (r *systemLogRepo) FindByUserID(ctx context.Context, userID int64, pagination *Pagination) ([]*models.SystemLog, error) {
	var logs []*models.SystemLog
	query := r.db.WithContext(ctx).Model(&models.SystemLog{}).Where("user_id = ?", userID)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&logs).Error

	return logs, err
}

// CleanupOldLogs 清理旧日志
func (r *systemLogRepo) CleanupOldLogs(ctx context.Context, days int) error {
	cutoffDate := time.Now().AddDate(0, 0, -days)
	return r.db.WithContext(ctx).
		Where("created_at < ?", cutoffDate).
		Delete(&models.SystemLog{}).Error
}

// WithTx 使用事务
func (r *systemLogRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &systemLogRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// ErrorLogRepository 错误日志仓储接口
type ErrorLogRepository interface {
	BaseRepository
	Create(ctx context.Context, log *models.ErrorLog) error
	FindUnresolved(ctx context.Context, pagination *Pagination) ([]*models.ErrorLog, error)
	MarkAsResolved(ctx context.Context, id uint) error
}

// errorLogRepo 错误日志仓储实现
type errorLogRepo struct {
	*BaseRepo
}

// NewErrorLogRepository 创建错误日志仓储
func NewErrorLogRepository(db *gorm.DB) ErrorLogRepository {
	return &errorLogRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建错误日志
func (r *errorLogRepo) Create(ctx context.Context, log *models.ErrorLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindUnresolved 查找未解决的错误
func (r *errorLogRepo) FindUnresolved(ctx context.Context, pagination *Pagination) ([]*models.ErrorLog, error) {
	var logs []*models.ErrorLog
	query := r.db.WithContext(ctx).Model(&models.ErrorLog{}).Where("is_resolved = ?", false)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&logs).Error

	return logs, err
}

// MarkAsResolved 标记为已解决
func (r *errorLogRepo) MarkAsResolved(ctx context.Context, id uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.ErrorLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"resolved_at": &now,
		}).Error
}

// WithTx 使用事务
func (r *errorLogRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &errorLogRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
