package service

import (
	"context"
	"time"

	apperrors "github.com/wfunc/pairly/internal/errors"
	"github.com/wfunc/pairly/internal/logger"
	"github.com/wfunc/pairly/internal/models"
	"github.com/wfunc/pairly/internal/repository"
	"go.uber.org/zap"
)

// economyService 向日葵经济服务实现
type economyService struct {
	repos    *repository.Manager
	cfg      *EconomyConfig
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// EconomyConfig 经济服务参数
type EconomyConfig struct {
	TempPremiumCost     int
	TempPremiumDuration time.Duration
	TempPremiumCooldown time.Duration
}

// NewEconomyService 创建经济服务
func NewEconomyService(repos *repository.Manager, cfg *EconomyConfig, notifier Notifier, log *zap.Logger) EconomyService {
	return &economyService{
		repos:    repos,
		cfg:      cfg,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// Add 追加正向流水
func (s *economyService) Add(ctx context.Context, userID int64, amount int, source models.CurrencySource, remark string) error {
	// 非正数追加是无操作，调用方负责校验意图
	if amount <= 0 {
		return nil
	}

	entry := &models.LedgerEntry{
		UserID: userID,
		Source: source,
		Amount: amount,
		Remark: remark,
	}
	if err := s.repos.Ledger().Append(ctx, entry); err != nil {
		return err
	}

	logger.LogCurrencyChange(userID, string(source), amount, -1)
	s.notifyBalance(ctx, userID, amount, source)
	return nil
}

// AddInTx 事务内追加正向流水
func (s *economyService) AddInTx(ctx context.Context, tx *repository.Transaction, userID int64, amount int, source models.CurrencySource, remark string) error {
	if amount <= 0 {
		return nil
	}
	return tx.Ledger().Append(ctx, &models.LedgerEntry{
		UserID: userID,
		Source: source,
		Amount: amount,
		Remark: remark,
	})
}

// Balance 分来源余额
func (s *economyService) Balance(ctx context.Context, userID int64) (models.Balance, error) {
	return s.repos.Ledger().BalanceFor(ctx, userID)
}

// DeductSmart 智能扣减
func (s *economyService) DeductSmart(ctx context.Context, userID int64, amount int) error {
	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		return s.DeductSmartInTx(ctx, tx, userID, amount)
	})
	if err != nil {
		return err
	}

	logger.LogCurrencyChange(userID, "smart_deduct", -amount, -1)
	s.notifyBalance(ctx, userID, -amount, "")
	return nil
}

// DeductSmartInTx 事务内智能扣减。锁定会话行将同一用户的扣减串行化，
// 快照和负向流水在同一事务中产生，避免并发双花
func (s *economyService) DeductSmartInTx(ctx context.Context, tx *repository.Transaction, userID int64, amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidAmount, "amount=%d", amount)
	}

	if _, err := tx.Session().LockForUpdate(ctx, userID); err != nil {
		return err
	}

	balance, err := tx.Ledger().BalanceFor(ctx, userID)
	if err != nil {
		return err
	}
	if balance.Total() < amount {
		return apperrors.Newf(apperrors.ErrInsufficientBalance,
			"需要%d，当前%d", amount, balance.Total())
	}

	remaining := amount
	for _, source := range models.DeductOrder {
		if remaining == 0 {
			break
		}
		available := balance.Get(source)
		if available <= 0 {
			continue
		}

		draw := available
		if draw > remaining {
			draw = remaining
		}
		err := tx.Ledger().Append(ctx, &models.LedgerEntry{
			UserID: userID,
			Source: source,
			Amount: -draw,
			Remark: "smart_deduct",
		})
		if err != nil {
			return err
		}
		remaining -= draw
	}

	return nil
}

// Gift 向日葵转赠
func (s *economyService) Gift(ctx context.Context, fromID, toID int64, amount int) error {
	if amount <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidAmount, "amount=%d", amount)
	}
	if fromID == toID {
		return apperrors.New(apperrors.ErrInvalidParam, "不能赠送给自己")
	}

	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := s.DeductSmartInTx(ctx, tx, fromID, amount); err != nil {
			return err
		}
		return tx.Ledger().Append(ctx, &models.LedgerEntry{
			UserID: toID,
			Source: models.SourceGift,
			Amount: amount,
			Remark: "gift",
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("向日葵转赠完成",
		zap.Int64("from", fromID),
		zap.Int64("to", toID),
		zap.Int("amount", amount),
	)
	s.notifyBalance(ctx, fromID, -amount, "")
	s.notifyBalance(ctx, toID, amount, models.SourceGift)
	return nil
}

// BuyTempPremium 购买临时会员
func (s *economyService) BuyTempPremium(ctx context.Context, userID int64) (*time.Time, error) {
	now := s.now()
	var until time.Time

	err := s.repos.WithTransaction(ctx, func(tx *repository.Transaction) error {
		session, err := tx.Session().LockForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		if session.TempPremiumUsedAt != nil {
			nextAllowed := session.TempPremiumUsedAt.Add(s.cfg.TempPremiumCooldown)
			if now.Before(nextAllowed) {
				return apperrors.Newf(apperrors.ErrPremiumCooldown,
					"冷却至%s", nextAllowed.Format(time.RFC3339))
			}
		}

		if err := s.DeductSmartInTx(ctx, tx, userID, s.cfg.TempPremiumCost); err != nil {
			return err
		}

		until = now.Add(s.cfg.TempPremiumDuration)
		if err := tx.Session().SetPremiumUntil(ctx, userID, &until); err != nil {
			return err
		}
		return tx.Session().SetTempPremiumUsedAt(ctx, userID, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("临时会员购买成功",
		zap.Int64("user_id", userID),
		zap.Time("until", until),
	)
	return &until, nil
}

// History 流水记录
func (s *economyService) History(ctx context.Context, userID int64, page, pageSize int) ([]*models.LedgerEntry, int64, error) {
	pagination := repository.NewPagination(page, pageSize)
	entries, err := s.repos.Ledger().History(ctx, userID, pagination)
	if err != nil {
		return nil, 0, err
	}
	return entries, pagination.Total, nil
}

// notifyBalance 推送余额变动
func (s *economyService) notifyBalance(ctx context.Context, userID int64, delta int, source models.CurrencySource) {
	balance, err := s.repos.Ledger().BalanceFor(ctx, userID)
	if err != nil {
		s.log.Warn("余额推送查询失败", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.notifier.Notify(userID, EventCurrencyChange, map[string]interface{}{
		"delta":   delta,
		"source":  string(source),
		"balance": balance,
		"total":   balance.Total(),
	})
}
