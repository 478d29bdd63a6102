package repository

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/models"
	"gorm.io/gorm"
)

// LedgerRepository 向日葵流水仓储接口
type LedgerRepository interface {
	BaseRepository
	// Append 追加一条流水（amount<=0且source非扣减场景由上层过滤）
	Append(ctx context.Context, entry *models.LedgerEntry) error
	// SumSource 单来源原始求和（可为负）
	SumSource(ctx context.Context, userID int64, source models.CurrencySource) (int, error)
	// BalanceFor 分来源余额快照，各来源向下取零
	BalanceFor(ctx context.Context, userID int64) (models.Balance, error)
	// History 按时间倒序的流水记录
	History(ctx context.Context, userID int64, pagination *Pagination) ([]*models.LedgerEntry, error)
}

// ledgerRepo 流水仓储实现
type ledgerRepo struct {
	*BaseRepo
}

// NewLedgerRepository 创建流水仓储
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Append 追加流水
func (r *ledgerRepo) Append(ctx context.Context, entry *models.LedgerEntry) error {
	if !models.ValidSource(entry.Source) {
		return apperrors.Newf(apperrors.ErrInvalidParam, "未知的来源: %s", entry.Source)
	}
	if entry.OrderNo == "" {
		entry.OrderNo = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}
	return nil
}

// SumSource 单来源原始求和
func (r *ledgerRepo) SumSource(ctx context.Context, userID int64, source models.CurrencySource) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ? AND source = ?", userID, source).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return sum, nil
}

// BalanceFor 分来源余额快照
func (r *ledgerRepo) BalanceFor(ctx context.Context, userID int64) (models.Balance, error) {
	var rows []struct {
		Source models.CurrencySource
		Sum    int
	}

	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("source, COALESCE(SUM(amount), 0) AS sum").
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return models.Balance{}, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	var balance models.Balance
	for _, row := range rows {
		// 展示余额不为负
		amount := row.Sum
		if amount < 0 {
			amount = 0
		}
		switch row.Source {
		case models.SourceStreak:
			balance.Streak = amount
		case models.SourceGame:
			balance.Game = amount
		case models.SourceGift:
			balance.Gift = amount
		case models.SourceRating:
			balance.Rating = amount
		}
	}

	return balance, nil
}

// History 流水记录
func (r *ledgerRepo) History(ctx context.Context, userID int64, pagination *Pagination) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("user_id = ?", userID)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return entries, nil
}

// WithTx 使用事务
func (r *ledgerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &ledgerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
